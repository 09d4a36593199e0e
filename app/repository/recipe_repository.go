package repository

import (
	"github.com/andrefurlan/adega/app/models"
	"gorm.io/gorm"
)

// recipeRepository implements the RecipeRepository interface
type recipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository instance
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) Create(recipe *models.Recipe) error {
	return r.db.Create(recipe).Error
}

func (r *recipeRepository) GetByID(id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) List(offset, limit int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepository) GetByWineID(wineID uint) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.Where("wine_id = ?", wineID).Order("created_at DESC").Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepository) Update(recipe *models.Recipe) error {
	return r.db.Save(recipe).Error
}

// Delete soft deletes a recipe
func (r *recipeRepository) Delete(id uint) error {
	return r.db.Delete(&models.Recipe{}, id).Error
}

func (r *recipeRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Recipe{}).Count(&count).Error
	return count, err
}
