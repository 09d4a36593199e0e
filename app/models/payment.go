package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
)

// Payment is an append-only ledger entry, one per settled invoice event.
// ExternalPaymentRef is the idempotency key: replays of the same provider
// event must not create a second row.
type Payment struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID          uint      `gorm:"not null;index" json:"subscription_id"`
	ExternalSubscriptionRef string    `gorm:"type:varchar(191);not null;index" json:"external_subscription_ref"`
	ExternalPaymentRef      string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_external_ref" json:"external_payment_ref"`
	Amount                  int64     `gorm:"not null" json:"amount"`
	Currency                string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	Status                  string    `gorm:"type:varchar(16);not null;default:'succeeded'" json:"status"`
	PaidAt                  time.Time `gorm:"type:timestamp;not null" json:"paid_at"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
}
