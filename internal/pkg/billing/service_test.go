package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrefurlan/adega/app/models"
)

type fakeProvider struct {
	checkoutURL  string
	portalURL    string
	lastCheckout CheckoutParams
	lastRef      string
	lastCancel   bool
	cancelCalls  int
	failWith     error
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (string, error) {
	if p.failWith != nil {
		return "", p.failWith
	}
	p.lastCheckout = params
	return p.checkoutURL, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerRef string) (string, error) {
	if p.failWith != nil {
		return "", p.failWith
	}
	p.lastRef = customerRef
	return p.portalURL, nil
}

func (p *fakeProvider) SetCancelAtPeriodEnd(_ context.Context, subscriptionRef string, cancel bool) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.lastRef = subscriptionRef
	p.lastCancel = cancel
	p.cancelCalls++
	return nil
}

func premiumPlan() *models.Plan {
	return &models.Plan{
		ID:              "premium",
		Name:            "Premium",
		PriceRefMonthly: "price_m",
		PriceRefYearly:  "price_y",
		IsActive:        true,
	}
}

func TestStartCheckout(t *testing.T) {
	repo := newFakeRepo()
	repo.plans["premium"] = premiumPlan()
	provider := &fakeProvider{checkoutURL: "https://pay.example/cs_1"}
	svc := NewService(repo, provider)

	url, err := svc.StartCheckout(context.Background(), 7, "user@example.com", "premium", "year")
	if err != nil {
		t.Fatalf("StartCheckout failed: %v", err)
	}
	if url != "https://pay.example/cs_1" {
		t.Fatalf("expected checkout URL, got %q", url)
	}
	if provider.lastCheckout.UserID != 7 {
		t.Fatalf("expected user 7 on checkout params, got %d", provider.lastCheckout.UserID)
	}
	if provider.lastCheckout.PriceRef != "price_y" {
		t.Fatalf("expected yearly price ref, got %q", provider.lastCheckout.PriceRef)
	}
}

func TestStartCheckout_UnknownIntervalFallsBackToMonthly(t *testing.T) {
	repo := newFakeRepo()
	repo.plans["premium"] = premiumPlan()
	provider := &fakeProvider{checkoutURL: "https://pay.example/cs_1"}
	svc := NewService(repo, provider)

	if _, err := svc.StartCheckout(context.Background(), 7, "user@example.com", "premium", "weekly"); err != nil {
		t.Fatalf("StartCheckout failed: %v", err)
	}
	if provider.lastCheckout.PriceRef != "price_m" {
		t.Fatalf("expected monthly fallback, got %q", provider.lastCheckout.PriceRef)
	}
}

func TestStartCheckout_UnknownPlan(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{})

	_, err := svc.StartCheckout(context.Background(), 7, "user@example.com", "platinum", "month")
	if ErrorCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestStartCheckout_InactivePlan(t *testing.T) {
	repo := newFakeRepo()
	plan := premiumPlan()
	plan.IsActive = false
	repo.plans["premium"] = plan
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.StartCheckout(context.Background(), 7, "user@example.com", "premium", "month")
	if ErrorCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestStartCheckout_AnonymousRejected(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{})

	_, err := svc.StartCheckout(context.Background(), 0, "user@example.com", "premium", "month")
	if ErrorCode(err) != CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestOpenPortal(t *testing.T) {
	repo := newFakeRepo()
	repo.subs["sub_1"] = &models.Subscription{
		ID:                      1,
		UserID:                  7,
		ExternalCustomerRef:     "cus_9",
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
	}
	provider := &fakeProvider{portalURL: "https://pay.example/portal"}
	svc := NewService(repo, provider)

	url, err := svc.OpenPortal(context.Background(), 7)
	if err != nil {
		t.Fatalf("OpenPortal failed: %v", err)
	}
	if url != "https://pay.example/portal" {
		t.Fatalf("expected portal URL, got %q", url)
	}
	if provider.lastRef != "cus_9" {
		t.Fatalf("expected customer ref cus_9, got %q", provider.lastRef)
	}
}

func TestOpenPortal_NoCustomer(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{})

	_, err := svc.OpenPortal(context.Background(), 7)
	if ErrorCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCancel_SetsFlagAndMirrors(t *testing.T) {
	repo := newFakeRepo()
	end := time.Now().Add(24 * time.Hour)
	repo.subs["sub_1"] = &models.Subscription{
		ID:                      1,
		UserID:                  7,
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
		CurrentPeriodEnd:        &end,
	}
	provider := &fakeProvider{}
	svc := NewService(repo, provider)

	if err := svc.Cancel(context.Background(), 7); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !provider.lastCancel || !repo.subs["sub_1"].CancelAtPeriodEnd {
		t.Fatalf("expected cancel flag set at provider and mirrored locally")
	}

	if err := svc.Reactivate(context.Background(), 7); err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}
	if provider.lastCancel || repo.subs["sub_1"].CancelAtPeriodEnd {
		t.Fatalf("expected cancel flag cleared at provider and mirrored locally")
	}
	if provider.cancelCalls != 2 {
		t.Fatalf("expected two provider calls, got %d", provider.cancelCalls)
	}
}

func TestCancel_NoSubscription(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeProvider{})

	if err := svc.Cancel(context.Background(), 7); ErrorCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCancel_TerminalSubscription(t *testing.T) {
	repo := newFakeRepo()
	repo.subs["sub_1"] = &models.Subscription{
		ID:                      1,
		UserID:                  7,
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusCanceled,
	}
	provider := &fakeProvider{}
	svc := NewService(repo, provider)

	if err := svc.Cancel(context.Background(), 7); ErrorCode(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if provider.cancelCalls != 0 {
		t.Fatalf("expected no provider call for a terminal record")
	}
}

func TestCancel_ProviderFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.subs["sub_1"] = &models.Subscription{
		ID:                      1,
		UserID:                  7,
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
	}
	provider := &fakeProvider{failWith: errors.New("provider down")}
	svc := NewService(repo, provider)

	if err := svc.Cancel(context.Background(), 7); err == nil {
		t.Fatalf("expected provider failure to surface")
	}
	// The local flag must not move when the provider call failed.
	if repo.subs["sub_1"].CancelAtPeriodEnd {
		t.Fatalf("mirror write happened despite provider failure")
	}
}
