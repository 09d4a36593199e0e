package billing

import (
	"context"
	"time"

	"github.com/andrefurlan/adega/app/models"
)

// StatusView assembles a user's subscription state plus plan display fields
// for presentation.
type StatusView struct {
	Status             string       `json:"status"`
	HasAccess          bool         `json:"has_access"`
	Plan               *models.Plan `json:"plan,omitempty"`
	CurrentPeriodStart *time.Time   `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time   `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	TrialEnd           *time.Time   `json:"trial_end,omitempty"`
}

// Entitlements is the read-only query API the rest of the application uses
// for access control decisions.
type Entitlements struct {
	repo Repository
}

// NewEntitlements creates the query API on top of the entitlement store.
func NewEntitlements(repo Repository) *Entitlements {
	return &Entitlements{repo: repo}
}

// HasActiveSubscription reports whether the user currently has premium
// access. The result is recomputed from the freshest record on every call
// and is never cached: it is true exactly when the record's status is
// active or trialing and its period end lies in the future.
func (e *Entitlements) HasActiveSubscription(ctx context.Context, userID uint) (bool, error) {
	sub, err := e.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.IsEntitled(time.Now()), nil
}

// GetSubscriptionStatus returns the user's subscription state for display.
// A user without any record gets a zero-value view with HasAccess false.
func (e *Entitlements) GetSubscriptionStatus(ctx context.Context, userID uint) (*StatusView, error) {
	sub, err := e.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &StatusView{Status: "none"}, nil
	}

	view := &StatusView{
		Status:             sub.Status,
		HasAccess:          sub.IsEntitled(time.Now()),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		TrialEnd:           sub.TrialEnd,
	}
	if sub.PlanID != "" {
		plan, err := e.repo.GetPlan(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		view.Plan = plan
	}
	return view, nil
}
