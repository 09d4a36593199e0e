package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Wine         WineRepository
	Recipe       RecipeRepository
	PurchaseLink PurchaseLinkRepository
	Plan         PlanRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Wine:         NewWineRepository(db),
		Recipe:       NewRecipeRepository(db),
		PurchaseLink: NewPurchaseLinkRepository(db),
		Plan:         NewPlanRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetWineRepository returns the wine repository instance
func (f *Factory) GetWineRepository() WineRepository {
	return f.GetRepositories().Wine
}

// GetRecipeRepository returns the recipe repository instance
func (f *Factory) GetRecipeRepository() RecipeRepository {
	return f.GetRepositories().Recipe
}

// GetPurchaseLinkRepository returns the purchase link repository instance
func (f *Factory) GetPurchaseLinkRepository() PurchaseLinkRepository {
	return f.GetRepositories().PurchaseLink
}

// GetPlanRepository returns the plan repository instance
func (f *Factory) GetPlanRepository() PlanRepository {
	return f.GetRepositories().Plan
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}
