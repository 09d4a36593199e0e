package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Wine is a user's evaluation of a bottle: the tasting record the catalog
// is built around.
type Wine struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Winery    string         `gorm:"type:varchar(200)" json:"winery" validate:"max=200"`
	Country   string         `gorm:"type:varchar(100)" json:"country" validate:"max=100"`
	Region    string         `gorm:"type:varchar(100)" json:"region" validate:"max=100"`
	Grape     string         `gorm:"type:varchar(100)" json:"grape" validate:"max=100"`
	Vintage   int            `json:"vintage" validate:"omitempty,min=1900,max=2100"`
	Rating    int            `gorm:"not null;default:0;index" json:"rating" validate:"min=0,max=5"`
	Notes     string         `gorm:"type:text" json:"notes" validate:"max=5000"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PurchaseLinks []PurchaseLink `gorm:"foreignKey:WineID" json:"purchase_links,omitempty"`
}

func (w *Wine) Validate() error {
	return validator.New().Struct(w)
}
