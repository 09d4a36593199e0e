package repository

import (
	"github.com/andrefurlan/adega/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// WineRepository defines the interface for wine evaluation operations
type WineRepository interface {
	Create(wine *models.Wine) error
	GetByID(id uint) (*models.Wine, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Wine, error)
	Update(wine *models.Wine) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
	Search(userID uint, query string) ([]models.Wine, error)
}

// RecipeRepository defines the interface for recipe operations
type RecipeRepository interface {
	Create(recipe *models.Recipe) error
	GetByID(id uint) (*models.Recipe, error)
	List(offset, limit int) ([]models.Recipe, error)
	GetByWineID(wineID uint) ([]models.Recipe, error)
	Update(recipe *models.Recipe) error
	Delete(id uint) error
	Count() (int64, error)
}

// PurchaseLinkRepository defines the interface for purchase link operations
type PurchaseLinkRepository interface {
	Create(link *models.PurchaseLink) error
	GetByID(id uint) (*models.PurchaseLink, error)
	GetByWineID(wineID uint) ([]models.PurchaseLink, error)
	Update(link *models.PurchaseLink) error
	Delete(id uint) error
}

// PlanRepository reads the externally managed plan catalog
type PlanRepository interface {
	GetByID(id string) (*models.Plan, error)
	ListActive() ([]models.Plan, error)
}
