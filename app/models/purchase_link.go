package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// PurchaseLink points to a merchant page for a wine, with an optional
// price snapshot in minor units.
type PurchaseLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WineID    uint      `gorm:"not null;index" json:"wine_id"`
	Merchant  string    `gorm:"type:varchar(200);not null" json:"merchant" validate:"required,min=2,max=200"`
	URL       string    `gorm:"type:varchar(500);not null" json:"url" validate:"required,url,max=500"`
	Price     int64     `json:"price" validate:"min=0"`
	Currency  string    `gorm:"type:varchar(8)" json:"currency" validate:"omitempty,len=3"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PurchaseLink) Validate() error {
	return validator.New().Struct(p)
}
