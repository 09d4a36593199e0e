package repository

import (
	"github.com/andrefurlan/adega/app/models"
	"gorm.io/gorm"
)

// purchaseLinkRepository implements the PurchaseLinkRepository interface
type purchaseLinkRepository struct {
	db *gorm.DB
}

// NewPurchaseLinkRepository creates a new purchase link repository instance
func NewPurchaseLinkRepository(db *gorm.DB) PurchaseLinkRepository {
	return &purchaseLinkRepository{db: db}
}

func (r *purchaseLinkRepository) Create(link *models.PurchaseLink) error {
	return r.db.Create(link).Error
}

func (r *purchaseLinkRepository) GetByID(id uint) (*models.PurchaseLink, error) {
	var link models.PurchaseLink
	if err := r.db.First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *purchaseLinkRepository) GetByWineID(wineID uint) ([]models.PurchaseLink, error) {
	var links []models.PurchaseLink
	err := r.db.Where("wine_id = ?", wineID).Order("price ASC").Find(&links).Error
	return links, err
}

func (r *purchaseLinkRepository) Update(link *models.PurchaseLink) error {
	return r.db.Save(link).Error
}

func (r *purchaseLinkRepository) Delete(id uint) error {
	return r.db.Delete(&models.PurchaseLink{}, id).Error
}
