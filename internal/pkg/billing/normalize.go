package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Provider event types handled by the normalizer. Everything else becomes an
// UnknownEvent marker. checkout.session.completed is intentionally in the
// unknown bucket: the authoritative create arrives on
// customer.subscription.created, which carries the period bounds the local
// record needs (the checkout session object does not).
const (
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventInvoicePaid         = "invoice.payment_succeeded"
	eventInvoiceFailed       = "invoice.payment_failed"
)

// Envelope is the outer shape of a provider webhook payload.
type Envelope struct {
	ID         string
	Type       string
	OccurredAt time.Time
	object     json.RawMessage
}

// ParseEnvelope decodes the outer event wrapper without touching the inner
// object. The caller uses ID/Type for delivery deduplication before the
// event is normalized.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var raw struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("billing: malformed webhook payload: %w", err)
	}
	if strings.TrimSpace(raw.ID) == "" || strings.TrimSpace(raw.Type) == "" {
		return nil, errors.New("billing: webhook payload missing event id or type")
	}
	return &Envelope{
		ID:         strings.TrimSpace(raw.ID),
		Type:       strings.TrimSpace(raw.Type),
		OccurredAt: time.Unix(raw.Created, 0).UTC(),
		object:     raw.Data.Object,
	}, nil
}

// Normalize maps a parsed envelope into the internal event vocabulary.
// Parsing is the only side effect; signature verification happens before
// this is called.
func Normalize(env *Envelope) (Event, error) {
	switch env.Type {
	case eventSubscriptionCreated:
		return normalizeSubscriptionCreated(env)
	case eventSubscriptionUpdated:
		sub, err := parseSubscriptionObject(env)
		if err != nil {
			return nil, err
		}
		return SubscriptionUpdated{
			ExternalSubscriptionRef: sub.ID,
			Status:                  sub.Status,
			PeriodStart:             unixPtr(sub.CurrentPeriodStart),
			PeriodEnd:               unixPtr(sub.CurrentPeriodEnd),
			CancelAtPeriodEnd:       sub.CancelAtPeriodEnd,
			OccurredAt:              env.OccurredAt,
		}, nil
	case eventSubscriptionDeleted:
		sub, err := parseSubscriptionObject(env)
		if err != nil {
			return nil, err
		}
		return SubscriptionCanceled{
			ExternalSubscriptionRef: sub.ID,
			OccurredAt:              env.OccurredAt,
		}, nil
	case eventInvoicePaid:
		return normalizeInvoicePaid(env)
	case eventInvoiceFailed:
		inv, err := parseInvoiceObject(env)
		if err != nil {
			return nil, err
		}
		return PaymentFailed{
			ExternalSubscriptionRef: inv.Subscription,
			OccurredAt:              env.OccurredAt,
		}, nil
	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}

type rawSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	TrialEnd           int64             `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
}

type rawInvoice struct {
	ID                string `json:"id"`
	Subscription      string `json:"subscription"`
	PaymentIntent     string `json:"payment_intent"`
	AmountPaid        int64  `json:"amount_paid"`
	Currency          string `json:"currency"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

func normalizeSubscriptionCreated(env *Envelope) (Event, error) {
	sub, err := parseSubscriptionObject(env)
	if err != nil {
		return nil, err
	}
	// The checkout session pins the local user id and plan onto the created
	// subscription's metadata; without it the event cannot be attributed.
	userID, err := strconv.ParseUint(strings.TrimSpace(sub.Metadata["user_id"]), 10, 64)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("billing: subscription %s missing user_id metadata", sub.ID)
	}
	return CheckoutCompleted{
		UserID:                  uint(userID),
		PlanID:                  strings.TrimSpace(sub.Metadata["plan_id"]),
		ExternalCustomerRef:     sub.Customer,
		ExternalSubscriptionRef: sub.ID,
		Status:                  sub.Status,
		PeriodStart:             unixPtr(sub.CurrentPeriodStart),
		PeriodEnd:               unixPtr(sub.CurrentPeriodEnd),
		TrialEnd:                unixPtr(sub.TrialEnd),
		OccurredAt:              env.OccurredAt,
	}, nil
}

func normalizeInvoicePaid(env *Envelope) (Event, error) {
	inv, err := parseInvoiceObject(env)
	if err != nil {
		return nil, err
	}
	paymentRef := strings.TrimSpace(inv.PaymentIntent)
	if paymentRef == "" {
		paymentRef = inv.ID
	}
	paidAt := env.OccurredAt
	if inv.StatusTransitions.PaidAt > 0 {
		paidAt = time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
	}
	return PaymentSucceeded{
		ExternalSubscriptionRef: inv.Subscription,
		ExternalPaymentRef:      paymentRef,
		Amount:                  inv.AmountPaid,
		Currency:                strings.ToLower(strings.TrimSpace(inv.Currency)),
		PaidAt:                  paidAt,
		OccurredAt:              env.OccurredAt,
	}, nil
}

func parseSubscriptionObject(env *Envelope) (*rawSubscription, error) {
	var sub rawSubscription
	if err := json.Unmarshal(env.object, &sub); err != nil {
		return nil, fmt.Errorf("billing: malformed subscription object in %s: %w", env.Type, err)
	}
	sub.ID = strings.TrimSpace(sub.ID)
	if sub.ID == "" {
		return nil, fmt.Errorf("billing: %s missing subscription id", env.Type)
	}
	sub.Status = strings.ToLower(strings.TrimSpace(sub.Status))
	sub.Customer = strings.TrimSpace(sub.Customer)
	return &sub, nil
}

func parseInvoiceObject(env *Envelope) (*rawInvoice, error) {
	var inv rawInvoice
	if err := json.Unmarshal(env.object, &inv); err != nil {
		return nil, fmt.Errorf("billing: malformed invoice object in %s: %w", env.Type, err)
	}
	inv.ID = strings.TrimSpace(inv.ID)
	inv.Subscription = strings.TrimSpace(inv.Subscription)
	if inv.ID == "" {
		return nil, fmt.Errorf("billing: %s missing invoice id", env.Type)
	}
	return &inv, nil
}

func unixPtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
