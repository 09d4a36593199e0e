package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrefurlan/adega/app/models"
)

// fakeRepo is an in-memory Repository with the same conditional-write
// semantics as the GORM store.
type fakeRepo struct {
	plans    map[string]*models.Plan
	subs     map[string]*models.Subscription // keyed by external subscription ref
	payments map[string]*models.Payment      // keyed by external payment ref
	events   map[string]*models.BillingWebhookEvent
	nextID   uint
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:    map[string]*models.Plan{},
		subs:     map[string]*models.Subscription{},
		payments: map[string]*models.Payment{},
		events:   map[string]*models.BillingWebhookEvent{},
	}
}

func (f *fakeRepo) GetPlan(_ context.Context, id string) (*models.Plan, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.plans[id], nil
}

func (f *fakeRepo) GetSubscriptionByUserID(_ context.Context, userID uint) (*models.Subscription, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var latest *models.Subscription
	for _, sub := range f.subs {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	return latest, nil
}

func (f *fakeRepo) GetSubscriptionByExternalRef(_ context.Context, ref string) (*models.Subscription, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.subs[ref], nil
}

func (f *fakeRepo) CreateSubscriptionIfAbsent(_ context.Context, sub *models.Subscription) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	if _, ok := f.subs[sub.ExternalSubscriptionRef]; ok {
		return false, nil
	}
	f.nextID++
	sub.ID = f.nextID
	f.subs[sub.ExternalSubscriptionRef] = sub
	return true, nil
}

func (f *fakeRepo) UpdateSnapshot(_ context.Context, ref string, snap SubscriptionSnapshot) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	sub, ok := f.subs[ref]
	if !ok || sub.Status == models.SubscriptionStatusCanceled {
		return false, nil
	}
	if sub.LastEventAt != nil && sub.LastEventAt.After(snap.OccurredAt) {
		return false, nil
	}
	occurred := snap.OccurredAt
	sub.Status = snap.Status
	sub.CurrentPeriodStart = snap.PeriodStart
	sub.CurrentPeriodEnd = snap.PeriodEnd
	sub.CancelAtPeriodEnd = snap.CancelAtPeriodEnd
	sub.LastEventAt = &occurred
	return true, nil
}

// raiseWatermark mirrors the GREATEST(...) write: the watermark never moves
// backwards.
func raiseWatermark(sub *models.Subscription, occurredAt time.Time) {
	if sub.LastEventAt == nil || sub.LastEventAt.Before(occurredAt) {
		sub.LastEventAt = &occurredAt
	}
}

func (f *fakeRepo) MarkCanceled(_ context.Context, ref string, occurredAt time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	sub, ok := f.subs[ref]
	if !ok || sub.Status == models.SubscriptionStatusCanceled {
		return false, nil
	}
	sub.Status = models.SubscriptionStatusCanceled
	raiseWatermark(sub, occurredAt)
	return true, nil
}

func (f *fakeRepo) MarkPastDue(_ context.Context, ref string, occurredAt time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	sub, ok := f.subs[ref]
	if !ok || sub.Status == models.SubscriptionStatusCanceled {
		return false, nil
	}
	sub.Status = models.SubscriptionStatusPastDue
	raiseWatermark(sub, occurredAt)
	return true, nil
}

func (f *fakeRepo) SetCancelAtPeriodEnd(_ context.Context, ref string, cancel bool) error {
	if f.failWith != nil {
		return f.failWith
	}
	if sub, ok := f.subs[ref]; ok && sub.Status != models.SubscriptionStatusCanceled {
		sub.CancelAtPeriodEnd = cancel
	}
	return nil
}

func (f *fakeRepo) AppendPayment(_ context.Context, payment *models.Payment) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	if _, ok := f.payments[payment.ExternalPaymentRef]; ok {
		return false, nil
	}
	f.nextID++
	payment.ID = f.nextID
	f.payments[payment.ExternalPaymentRef] = payment
	return true, nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if f.failWith != nil {
		return false, nil, f.failWith
	}
	if stored, ok := f.events[event.ProviderEventID]; ok {
		return false, stored, nil
	}
	f.nextID++
	event.ID = f.nextID
	f.events[event.ProviderEventID] = event
	return true, event, nil
}

func (f *fakeRepo) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func checkoutEvent(ref string, occurredAt time.Time) CheckoutCompleted {
	return CheckoutCompleted{
		UserID:                  7,
		PlanID:                  "premium",
		ExternalCustomerRef:     "cus_123",
		ExternalSubscriptionRef: ref,
		Status:                  models.SubscriptionStatusActive,
		PeriodStart:             timePtr(occurredAt),
		PeriodEnd:               timePtr(occurredAt.Add(30 * 24 * time.Hour)),
		OccurredAt:              occurredAt,
	}
}

func mustApply(t *testing.T, rec *Reconciler, ev Event) {
	t.Helper()
	if err := rec.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply(%T) returned error: %v", ev, err)
	}
}

func TestApplyCheckoutCompleted_CreatesSubscription(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC().Truncate(time.Second)

	mustApply(t, rec, checkoutEvent("sub_1", now))

	sub := repo.subs["sub_1"]
	if sub == nil {
		t.Fatalf("expected subscription record to be created")
	}
	if sub.UserID != 7 || sub.PlanID != "premium" {
		t.Fatalf("record attribution wrong: user %d plan %q", sub.UserID, sub.PlanID)
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected status active, got %q", sub.Status)
	}
	if sub.LastEventAt == nil || !sub.LastEventAt.Equal(now) {
		t.Fatalf("expected last_event_at %v, got %v", now, sub.LastEventAt)
	}
}

func TestApplyCheckoutCompleted_ReplayIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	firstID := repo.subs["sub_1"].ID

	mustApply(t, rec, checkoutEvent("sub_1", now))
	if len(repo.subs) != 1 {
		t.Fatalf("expected one record after replay, got %d", len(repo.subs))
	}
	if repo.subs["sub_1"].ID != firstID {
		t.Fatalf("replay replaced the record: id %d -> %d", firstID, repo.subs["sub_1"].ID)
	}
}

func TestApplyCheckoutCompleted_EmptyStatusDefaultsToIncomplete(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)

	ev := checkoutEvent("sub_1", time.Now())
	ev.Status = ""
	mustApply(t, rec, ev)
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusIncomplete {
		t.Fatalf("expected incomplete, got %q", got)
	}
}

func TestApplySubscriptionUpdated_OverwritesSnapshot(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))

	newEnd := now.Add(60 * 24 * time.Hour)
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusPastDue,
		PeriodStart:             timePtr(now),
		PeriodEnd:               timePtr(newEnd),
		CancelAtPeriodEnd:       true,
		OccurredAt:              now.Add(time.Hour),
	})

	sub := repo.subs["sub_1"]
	if sub.Status != models.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %q", sub.Status)
	}
	if !sub.CancelAtPeriodEnd {
		t.Fatalf("expected cancel_at_period_end to be set")
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(newEnd) {
		t.Fatalf("expected period end %v, got %v", newEnd, sub.CurrentPeriodEnd)
	}
}

func TestApplySubscriptionUpdated_UnknownRefAcknowledged(t *testing.T) {
	rec := NewReconciler(newFakeRepo())

	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_missing",
		Status:                  models.SubscriptionStatusActive,
		OccurredAt:              time.Now(),
	})
}

func TestApplySubscriptionUpdated_TerminalStateWins(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	mustApply(t, rec, SubscriptionCanceled{
		ExternalSubscriptionRef: "sub_1",
		OccurredAt:              now.Add(time.Hour),
	})

	// A late update must not resurrect the canceled record.
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
		PeriodEnd:               timePtr(now.Add(90 * 24 * time.Hour)),
		OccurredAt:              now.Add(2 * time.Hour),
	})
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusCanceled {
		t.Fatalf("canceled record was resurrected to %q", got)
	}
}

func TestApplySubscriptionUpdated_StaleSnapshotDropped(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
		PeriodEnd:               timePtr(now.Add(60 * 24 * time.Hour)),
		OccurredAt:              now.Add(2 * time.Hour),
	})

	// An older snapshot delivered late must not roll the record back.
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusIncomplete,
		PeriodEnd:               timePtr(now.Add(24 * time.Hour)),
		OccurredAt:              now.Add(time.Hour),
	})
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusActive {
		t.Fatalf("stale snapshot rolled the record back to %q", got)
	}
}

func TestApplySubscriptionUpdated_LatePaymentFailureKeepsWatermark(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))

	freshEnd := now.Add(60 * 24 * time.Hour)
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusActive,
		PeriodEnd:               timePtr(freshEnd),
		OccurredAt:              now.Add(10 * time.Hour),
	})

	// A failure event delivered late carries an old timestamp; it may flip
	// the status, but it must not lower the watermark.
	mustApply(t, rec, PaymentFailed{
		ExternalSubscriptionRef: "sub_1",
		OccurredAt:              now.Add(5 * time.Hour),
	})

	// This snapshot is older than the T+10h one; it has to stay dropped
	// even after the late failure event.
	mustApply(t, rec, SubscriptionUpdated{
		ExternalSubscriptionRef: "sub_1",
		Status:                  models.SubscriptionStatusIncomplete,
		PeriodEnd:               timePtr(now.Add(24 * time.Hour)),
		OccurredAt:              now.Add(7 * time.Hour),
	})

	sub := repo.subs["sub_1"]
	if sub.Status == models.SubscriptionStatusIncomplete {
		t.Fatalf("stale snapshot applied after late payment failure lowered the watermark")
	}
	if sub.Status != models.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due from the failure event, got %q", sub.Status)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(freshEnd) {
		t.Fatalf("period end rolled back: want %v, got %v", freshEnd, sub.CurrentPeriodEnd)
	}
	if sub.LastEventAt == nil || sub.LastEventAt.Before(now.Add(10*time.Hour)) {
		t.Fatalf("watermark moved backwards: %v", sub.LastEventAt)
	}
}

func TestApplySubscriptionCanceled_IsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	cancel := SubscriptionCanceled{ExternalSubscriptionRef: "sub_1", OccurredAt: now.Add(time.Hour)}
	mustApply(t, rec, cancel)
	mustApply(t, rec, cancel)
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled, got %q", got)
	}
}

func TestApplyPaymentSucceeded_AppendsOnce(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))

	pay := PaymentSucceeded{
		ExternalSubscriptionRef: "sub_1",
		ExternalPaymentRef:      "pi_1",
		Amount:                  1990,
		Currency:                "eur",
		PaidAt:                  now,
		OccurredAt:              now,
	}
	mustApply(t, rec, pay)
	mustApply(t, rec, pay)

	if len(repo.payments) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(repo.payments))
	}
	stored := repo.payments["pi_1"]
	if stored.SubscriptionID != repo.subs["sub_1"].ID {
		t.Fatalf("ledger row not linked to subscription: %d", stored.SubscriptionID)
	}
	if stored.Amount != 1990 || stored.Status != models.PaymentStatusSucceeded {
		t.Fatalf("ledger row wrong: amount %d status %q", stored.Amount, stored.Status)
	}
}

func TestApplyPaymentSucceeded_UnknownSubscriptionAcknowledged(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)

	mustApply(t, rec, PaymentSucceeded{
		ExternalSubscriptionRef: "sub_missing",
		ExternalPaymentRef:      "pi_1",
		OccurredAt:              time.Now(),
	})
	if len(repo.payments) != 0 {
		t.Fatalf("dangling payment was stored")
	}
}

func TestApplyPaymentFailed_MarksPastDue(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	mustApply(t, rec, PaymentFailed{
		ExternalSubscriptionRef: "sub_1",
		OccurredAt:              now.Add(time.Hour),
	})
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %q", got)
	}
}

func TestApplyPaymentFailed_DoesNotTouchCanceled(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)
	now := time.Now().UTC()

	mustApply(t, rec, checkoutEvent("sub_1", now))
	mustApply(t, rec, SubscriptionCanceled{
		ExternalSubscriptionRef: "sub_1",
		OccurredAt:              now.Add(time.Hour),
	})
	mustApply(t, rec, PaymentFailed{
		ExternalSubscriptionRef: "sub_1",
		OccurredAt:              now.Add(2 * time.Hour),
	})
	if got := repo.subs["sub_1"].Status; got != models.SubscriptionStatusCanceled {
		t.Fatalf("failure event moved a canceled record to %q", got)
	}
}

func TestApplyUnknownEvent_IsNoOp(t *testing.T) {
	repo := newFakeRepo()
	rec := NewReconciler(repo)

	mustApply(t, rec, UnknownEvent{Type: "charge.refunded"})
	if len(repo.subs) != 0 || len(repo.payments) != 0 {
		t.Fatalf("unknown event touched state")
	}
}

func TestApply_StorageFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("connection lost")
	rec := NewReconciler(repo)

	if err := rec.Apply(context.Background(), checkoutEvent("sub_1", time.Now())); err == nil {
		t.Fatalf("expected storage failure to surface")
	}
}
