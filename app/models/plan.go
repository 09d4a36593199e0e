package models

import "time"

const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanReserva = "reserva"
)

const (
	BillingIntervalMonth = "month"
	BillingIntervalYear  = "year"
)

// Plan is the externally managed plan catalog: display fields plus the
// provider price references the checkout flow needs. Rows are seeded by
// migrations, not written by application code.
type Plan struct {
	ID              string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	PriceRefMonthly string    `gorm:"type:varchar(191);not null;default:''" json:"-"`
	PriceRefYearly  string    `gorm:"type:varchar(191);not null;default:''" json:"-"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PriceRef returns the provider price reference for a billing interval,
// defaulting to monthly.
func (p *Plan) PriceRef(interval string) string {
	if interval == BillingIntervalYear && p.PriceRefYearly != "" {
		return p.PriceRefYearly
	}
	return p.PriceRefMonthly
}
