package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
)

// Subscription is the durable record of a user's most recent subscription
// lifecycle, mirrored from the payment provider by the reconciler. Rows are
// created and mutated only by the reconciler; cancellation is a status
// transition, never a row removal.
type Subscription struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	UserID                  uint       `gorm:"not null;index" json:"user_id"`
	PlanID                  string     `gorm:"type:varchar(50);not null;default:''" json:"plan_id"`
	ExternalCustomerRef     string     `gorm:"type:varchar(191);not null;index" json:"external_customer_ref"`
	ExternalSubscriptionRef string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_external_ref" json:"external_subscription_ref"`
	Status                  string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	CurrentPeriodStart      *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd        *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd       bool       `gorm:"default:false" json:"cancel_at_period_end"`
	TrialEnd                *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	LastEventAt             *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitled reports whether this record grants premium access at the given
// instant. Entitlement is always recomputed from status and period end;
// there is no stored flag that could drift.
func (s *Subscription) IsEntitled(now time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
	default:
		return false
	}
	return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// IsTerminal reports whether the record is in a state that accepts no
// further mutation.
func (s *Subscription) IsTerminal() bool {
	return s != nil && s.Status == SubscriptionStatusCanceled
}
