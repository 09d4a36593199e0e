package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/andrefurlan/adega/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service is the command surface: user-initiated billing actions that call
// out to the provider. Local writes made here are optimistic UI mirrors
// only; the authoritative state change arrives later through the webhook
// reconciliation path and supersedes them.
type Service struct {
	repo     Repository
	provider ProviderClient
}

// NewService creates a command service from an injected store and provider.
func NewService(repo Repository, provider ProviderClient) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB wires the command service with the GORM store and the
// env-configured Stripe client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv())
}

// StartCheckout creates a provider checkout session for a plan and returns
// the redirect URL. No local subscription row is written here; the record is
// created by the reconciler when the provider confirms the checkout.
func (s *Service) StartCheckout(ctx context.Context, userID uint, email, planID, interval string) (string, error) {
	if userID == 0 {
		return "", &Error{Code: CodeUnauthorized, Message: "login required"}
	}
	email = strings.TrimSpace(email)
	planID = strings.ToLower(strings.TrimSpace(planID))
	if email == "" || planID == "" {
		return "", errors.New("email and plan are required")
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan == nil || !plan.IsActive {
		return "", NewNotFound("unknown plan " + planID)
	}
	priceRef := plan.PriceRef(normalizeInterval(interval))
	if priceRef == "" {
		return "", NewNotFound("plan " + planID + " has no price for interval " + interval)
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:   userID,
		Email:    email,
		PlanID:   plan.ID,
		PriceRef: priceRef,
	})
}

// OpenPortal creates a provider billing-portal session for the user's
// existing customer. Fails with NOT_FOUND when no provider customer exists.
func (s *Service) OpenPortal(ctx context.Context, userID uint) (string, error) {
	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.ExternalCustomerRef == "" {
		return "", NewNotFound("no billing customer for this user")
	}
	return s.provider.CreatePortalSession(ctx, sub.ExternalCustomerRef)
}

// Cancel requests cancellation at period end for the user's subscription.
func (s *Service) Cancel(ctx context.Context, userID uint) error {
	return s.setCancelFlag(ctx, userID, true)
}

// Reactivate withdraws a pending cancellation.
func (s *Service) Reactivate(ctx context.Context, userID uint) error {
	return s.setCancelFlag(ctx, userID, false)
}

func (s *Service) setCancelFlag(ctx context.Context, userID uint, cancel bool) error {
	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || sub.IsTerminal() || sub.ExternalSubscriptionRef == "" {
		return NewNotFound("no active subscription for this user")
	}

	if err := s.provider.SetCancelAtPeriodEnd(ctx, sub.ExternalSubscriptionRef, cancel); err != nil {
		return err
	}

	// Best-effort mirror so the UI reflects the request immediately. The
	// next SubscriptionUpdated event carries the authoritative value.
	if err := s.repo.SetCancelAtPeriodEnd(ctx, sub.ExternalSubscriptionRef, cancel); err != nil {
		log.Warnf("billing: mirror write for %s failed: %v", sub.ExternalSubscriptionRef, err)
	}
	return nil
}

func normalizeInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case models.BillingIntervalYear:
		return models.BillingIntervalYear
	default:
		return models.BillingIntervalMonth
	}
}
