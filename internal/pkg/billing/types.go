package billing

import "time"

// Event is the provider-agnostic vocabulary the reconciler consumes. Every
// webhook payload is normalized into exactly one of the concrete variants
// below before any state is touched; the reconciler switches exhaustively
// over them so new provider event types cannot be mishandled silently.
type Event interface {
	billingEvent()
}

// CheckoutCompleted is emitted when the provider confirms a finished checkout
// and reports the newly created subscription. It is the only event that may
// create a local subscription record.
type CheckoutCompleted struct {
	UserID                  uint
	PlanID                  string
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
	Status                  string
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	TrialEnd                *time.Time
	OccurredAt              time.Time
}

// SubscriptionUpdated carries the provider's full current snapshot of a
// subscription. It overwrites, never patches.
type SubscriptionUpdated struct {
	ExternalSubscriptionRef string
	Status                  string
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool
	OccurredAt              time.Time
}

// SubscriptionCanceled marks a subscription lifecycle as terminally ended.
type SubscriptionCanceled struct {
	ExternalSubscriptionRef string
	OccurredAt              time.Time
}

// PaymentSucceeded reports a settled invoice for a subscription.
type PaymentSucceeded struct {
	ExternalSubscriptionRef string
	ExternalPaymentRef      string
	Amount                  int64 // minor units
	Currency                string
	PaidAt                  time.Time
	OccurredAt              time.Time
}

// PaymentFailed reports a failed charge attempt for a subscription.
type PaymentFailed struct {
	ExternalSubscriptionRef string
	OccurredAt              time.Time
}

// UnknownEvent is the no-op marker for provider event types we do not
// process. The webhook endpoint acknowledges these so provider-side
// additions never turn into delivery failures.
type UnknownEvent struct {
	Type string
}

func (CheckoutCompleted) billingEvent()    {}
func (SubscriptionUpdated) billingEvent()  {}
func (SubscriptionCanceled) billingEvent() {}
func (PaymentSucceeded) billingEvent()     {}
func (PaymentFailed) billingEvent()        {}
func (UnknownEvent) billingEvent()         {}
