package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Recipe is a dish suggestion, optionally paired with a wine evaluation.
// Premium recipes expose their full content only to entitled users.
type Recipe struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	WineID       *uint          `gorm:"index" json:"wine_id,omitempty"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=2,max=200"`
	Summary      string         `gorm:"type:varchar(500)" json:"summary" validate:"max=500"`
	Ingredients  string         `gorm:"type:text" json:"ingredients,omitempty" validate:"max=10000"`
	Instructions string         `gorm:"type:text" json:"instructions,omitempty" validate:"max=20000"`
	IsPremium    bool           `gorm:"default:false;index" json:"is_premium"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Recipe) Validate() error {
	return validator.New().Struct(r)
}
