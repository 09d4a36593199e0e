package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrefurlan/adega/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// Reconciler applies normalized provider events to the entitlement store.
// Provider webhooks are delivered at-least-once and out of order, so every
// apply is idempotent and guarded: replays are no-ops, canceled is terminal,
// and stale snapshots never overwrite newer ones. Apply returns an error
// only for storage failures (the webhook endpoint then signals the provider
// to retry); idempotent duplicates and guard hits are not errors.
type Reconciler struct {
	repo Repository
}

// NewReconciler creates a reconciler on top of an entitlement store.
func NewReconciler(repo Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// Apply dispatches one normalized event. The type switch is exhaustive over
// the event vocabulary; an unlisted variant is a programming error.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case CheckoutCompleted:
		return r.applyCheckoutCompleted(ctx, e)
	case SubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, e)
	case SubscriptionCanceled:
		return r.applySubscriptionCanceled(ctx, e)
	case PaymentSucceeded:
		return r.applyPaymentSucceeded(ctx, e)
	case PaymentFailed:
		return r.applyPaymentFailed(ctx, e)
	case UnknownEvent:
		log.Infof("billing: ignoring unhandled provider event type %s", e.Type)
		return nil
	default:
		return fmt.Errorf("billing: no reconciler case for event %T", ev)
	}
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, e CheckoutCompleted) error {
	status := strings.ToLower(strings.TrimSpace(e.Status))
	if status == "" {
		status = models.SubscriptionStatusIncomplete
	}
	occurred := e.OccurredAt
	sub := &models.Subscription{
		UserID:                  e.UserID,
		PlanID:                  e.PlanID,
		ExternalCustomerRef:     e.ExternalCustomerRef,
		ExternalSubscriptionRef: e.ExternalSubscriptionRef,
		Status:                  status,
		CurrentPeriodStart:      e.PeriodStart,
		CurrentPeriodEnd:        e.PeriodEnd,
		TrialEnd:                e.TrialEnd,
		LastEventAt:             &occurred,
	}
	created, err := r.repo.CreateSubscriptionIfAbsent(ctx, sub)
	if err != nil {
		return fmt.Errorf("billing: create subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if !created {
		log.Infof("billing: duplicate checkout delivery for %s, no-op", e.ExternalSubscriptionRef)
		return nil
	}
	log.Infof("billing: subscription %s created for user %d (%s)", e.ExternalSubscriptionRef, e.UserID, status)
	return nil
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, e SubscriptionUpdated) error {
	snap := SubscriptionSnapshot{
		Status:            strings.ToLower(strings.TrimSpace(e.Status)),
		PeriodStart:       e.PeriodStart,
		PeriodEnd:         e.PeriodEnd,
		CancelAtPeriodEnd: e.CancelAtPeriodEnd,
		OccurredAt:        e.OccurredAt,
	}
	applied, err := r.repo.UpdateSnapshot(ctx, e.ExternalSubscriptionRef, snap)
	if err != nil {
		return fmt.Errorf("billing: update subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if applied {
		return nil
	}

	// The guard suppressed the write; distinguish why, for the log only.
	sub, err := r.repo.GetSubscriptionByExternalRef(ctx, e.ExternalSubscriptionRef)
	if err != nil {
		return fmt.Errorf("billing: look up subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	switch {
	case sub == nil:
		log.Warnf("billing: update for unknown subscription %s, acknowledged", e.ExternalSubscriptionRef)
	case sub.IsTerminal():
		log.Infof("billing: update for canceled subscription %s suppressed", e.ExternalSubscriptionRef)
	default:
		log.Warnf("billing: stale snapshot for subscription %s dropped (event %s older than %v)",
			e.ExternalSubscriptionRef, e.OccurredAt.Format("2006-01-02T15:04:05Z"), sub.LastEventAt)
	}
	return nil
}

func (r *Reconciler) applySubscriptionCanceled(ctx context.Context, e SubscriptionCanceled) error {
	changed, err := r.repo.MarkCanceled(ctx, e.ExternalSubscriptionRef, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("billing: cancel subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if changed {
		log.Infof("billing: subscription %s canceled", e.ExternalSubscriptionRef)
		return nil
	}
	sub, err := r.repo.GetSubscriptionByExternalRef(ctx, e.ExternalSubscriptionRef)
	if err != nil {
		return fmt.Errorf("billing: look up subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if sub == nil {
		log.Warnf("billing: cancellation for unknown subscription %s, acknowledged", e.ExternalSubscriptionRef)
	}
	// Already canceled is an idempotent replay.
	return nil
}

func (r *Reconciler) applyPaymentSucceeded(ctx context.Context, e PaymentSucceeded) error {
	sub, err := r.repo.GetSubscriptionByExternalRef(ctx, e.ExternalSubscriptionRef)
	if err != nil {
		return fmt.Errorf("billing: look up subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if sub == nil {
		log.Warnf("billing: payment %s references unknown subscription %s, acknowledged",
			e.ExternalPaymentRef, e.ExternalSubscriptionRef)
		return nil
	}

	created, err := r.repo.AppendPayment(ctx, &models.Payment{
		SubscriptionID:          sub.ID,
		ExternalSubscriptionRef: e.ExternalSubscriptionRef,
		ExternalPaymentRef:      e.ExternalPaymentRef,
		Amount:                  e.Amount,
		Currency:                e.Currency,
		Status:                  models.PaymentStatusSucceeded,
		PaidAt:                  e.PaidAt,
	})
	if err != nil {
		return fmt.Errorf("billing: append payment %s: %w", e.ExternalPaymentRef, err)
	}
	if !created {
		log.Infof("billing: duplicate payment delivery %s skipped", e.ExternalPaymentRef)
	}
	return nil
}

func (r *Reconciler) applyPaymentFailed(ctx context.Context, e PaymentFailed) error {
	changed, err := r.repo.MarkPastDue(ctx, e.ExternalSubscriptionRef, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("billing: mark subscription %s past due: %w", e.ExternalSubscriptionRef, err)
	}
	if changed {
		log.Infof("billing: subscription %s marked past_due", e.ExternalSubscriptionRef)
		return nil
	}
	sub, err := r.repo.GetSubscriptionByExternalRef(ctx, e.ExternalSubscriptionRef)
	if err != nil {
		return fmt.Errorf("billing: look up subscription %s: %w", e.ExternalSubscriptionRef, err)
	}
	if sub == nil {
		log.Warnf("billing: payment failure for unknown subscription %s, acknowledged", e.ExternalSubscriptionRef)
	}
	// Canceled records keep their terminal status.
	return nil
}
