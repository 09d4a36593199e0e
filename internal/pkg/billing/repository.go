package billing

import (
	"context"
	"errors"
	"time"

	"github.com/andrefurlan/adega/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionSnapshot is the full provider snapshot applied by
// SubscriptionUpdated events. It overwrites the stored fields
// unconditionally; there is no field-level merge.
type SubscriptionSnapshot struct {
	Status            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	OccurredAt        time.Time
}

// Repository is the entitlement store. The uniqueness, terminal-state and
// staleness invariants are enforced here, in the conditional statements
// themselves, so concurrent applies for the same external ref serialize on
// the row and cannot interleave into a record matching neither event.
// Lookup methods return (nil, nil) when no row exists.
type Repository interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	GetSubscriptionByUserID(ctx context.Context, userID uint) (*models.Subscription, error)
	GetSubscriptionByExternalRef(ctx context.Context, ref string) (*models.Subscription, error)
	CreateSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error)
	UpdateSnapshot(ctx context.Context, ref string, snap SubscriptionSnapshot) (bool, error)
	MarkCanceled(ctx context.Context, ref string, occurredAt time.Time) (bool, error)
	MarkPastDue(ctx context.Context, ref string, occurredAt time.Time) (bool, error)
	SetCancelAtPeriodEnd(ctx context.Context, ref string, cancel bool) error
	AppendPayment(ctx context.Context, payment *models.Payment) (bool, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlement store backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetSubscriptionByUserID(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByExternalRef(ctx context.Context, ref string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("external_subscription_ref = ?", ref).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriptionIfAbsent inserts the record unless one already exists
// for its external ref. Duplicate checkout deliveries therefore neither
// create a second record nor overwrite newer data with older data.
func (r *gormRepository) CreateSubscriptionIfAbsent(ctx context.Context, sub *models.Subscription) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_subscription_ref"}},
		DoNothing: true,
	}).Create(sub)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpdateSnapshot applies a full provider snapshot in one conditional UPDATE.
// The WHERE clause carries the terminal-state guard and drops snapshots
// older than the last applied event, so a stale update can never roll a
// newer one back. Returns false when the guard (or a missing row) suppressed
// the write.
func (r *gormRepository) UpdateSnapshot(ctx context.Context, ref string, snap SubscriptionSnapshot) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("external_subscription_ref = ? AND status <> ?", ref, models.SubscriptionStatusCanceled).
		Where("last_event_at IS NULL OR last_event_at <= ?", snap.OccurredAt).
		Updates(map[string]interface{}{
			"status":               snap.Status,
			"current_period_start": snap.PeriodStart,
			"current_period_end":   snap.PeriodEnd,
			"cancel_at_period_end": snap.CancelAtPeriodEnd,
			"last_event_at":        snap.OccurredAt,
		})
	return tx.RowsAffected > 0, tx.Error
}

// MarkCanceled and MarkPastDue carry no staleness guard of their own, but
// the watermark only ever moves forward: a delayed event with an old
// timestamp must not lower last_event_at, or a snapshot older than the
// newest applied one would pass the UpdateSnapshot guard afterwards.
func (r *gormRepository) MarkCanceled(ctx context.Context, ref string, occurredAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("external_subscription_ref = ? AND status <> ?", ref, models.SubscriptionStatusCanceled).
		Updates(map[string]interface{}{
			"status":        models.SubscriptionStatusCanceled,
			"last_event_at": gorm.Expr("GREATEST(COALESCE(last_event_at, ?), ?)", occurredAt, occurredAt),
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) MarkPastDue(ctx context.Context, ref string, occurredAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("external_subscription_ref = ? AND status <> ?", ref, models.SubscriptionStatusCanceled).
		Updates(map[string]interface{}{
			"status":        models.SubscriptionStatusPastDue,
			"last_event_at": gorm.Expr("GREATEST(COALESCE(last_event_at, ?), ?)", occurredAt, occurredAt),
		})
	return tx.RowsAffected > 0, tx.Error
}

// SetCancelAtPeriodEnd is the command surface's optimistic mirror write. It
// touches only the flag and respects the terminal guard; the authoritative
// value arrives later via a SubscriptionUpdated event.
func (r *gormRepository) SetCancelAtPeriodEnd(ctx context.Context, ref string, cancel bool) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("external_subscription_ref = ? AND status <> ?", ref, models.SubscriptionStatusCanceled).
		Update("cancel_at_period_end", cancel).Error
}

// AppendPayment inserts a ledger row unless its external payment ref is
// already present. Duplicate deliveries are skipped silently instead of
// raising a uniqueness violation.
func (r *gormRepository) AppendPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_payment_ref"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}
