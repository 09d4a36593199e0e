package repository

import (
	"github.com/andrefurlan/adega/app/models"
	"gorm.io/gorm"
)

// wineRepository implements the WineRepository interface
type wineRepository struct {
	db *gorm.DB
}

// NewWineRepository creates a new wine repository instance
func NewWineRepository(db *gorm.DB) WineRepository {
	return &wineRepository{db: db}
}

func (r *wineRepository) Create(wine *models.Wine) error {
	return r.db.Create(wine).Error
}

func (r *wineRepository) GetByID(id uint) (*models.Wine, error) {
	var wine models.Wine
	err := r.db.Preload("PurchaseLinks").First(&wine, id).Error
	if err != nil {
		return nil, err
	}
	return &wine, nil
}

// GetByUserID retrieves a user's wine evaluations with pagination
func (r *wineRepository) GetByUserID(userID uint, offset, limit int) ([]models.Wine, error) {
	var wines []models.Wine
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&wines).Error
	return wines, err
}

func (r *wineRepository) Update(wine *models.Wine) error {
	return r.db.Save(wine).Error
}

// Delete soft deletes a wine evaluation
func (r *wineRepository) Delete(id uint) error {
	return r.db.Delete(&models.Wine{}, id).Error
}

func (r *wineRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Wine{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Search matches name, winery or grape within a user's evaluations
func (r *wineRepository) Search(userID uint, query string) ([]models.Wine, error) {
	var wines []models.Wine
	like := "%" + query + "%"
	err := r.db.Where("user_id = ?", userID).
		Where("name LIKE ? OR winery LIKE ? OR grape LIKE ?", like, like, like).
		Order("rating DESC").Find(&wines).Error
	return wines, err
}
