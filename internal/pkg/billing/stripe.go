package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andrefurlan/adega/internal/pkg/env"
	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
)

// CheckoutParams carries what the provider needs to start a subscription
// checkout. The user id and plan id are pinned onto the created
// subscription's metadata so the webhook events can be attributed later.
type CheckoutParams struct {
	UserID   uint
	Email    string
	PlanID   string
	PriceRef string
}

// ProviderClient is the outbound half of the billing integration: the calls
// the command surface makes against the payment provider. The reconciler
// never uses it; authoritative state always arrives via webhook events.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerRef string) (string, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error
}

// StripeClient implements ProviderClient against the Stripe API.
type StripeClient struct {
	SuccessURL string
	CancelURL  string
	ReturnURL  string
}

// NewStripeClientFromEnv configures the global Stripe key and the redirect
// URLs from the environment.
func NewStripeClientFromEnv() *StripeClient {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	return &StripeClient{
		SuccessURL: env.GetEnv("STRIPE_SUCCESS_URL", base+"/subscription/success"),
		CancelURL:  env.GetEnv("STRIPE_CANCEL_URL", base+"/pricing"),
		ReturnURL:  env.GetEnv("STRIPE_PORTAL_RETURN_URL", base+"/account"),
	}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	if stripe.Key == "" {
		return "", errors.New("STRIPE_SECRET_KEY is not configured")
	}
	uid := strconv.FormatUint(uint64(p.UserID), 10)
	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(uid),
		CustomerEmail:     stripe.String(p.Email),
		SuccessURL:        stripe.String(c.SuccessURL),
		CancelURL:         stripe.String(c.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceRef), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": uid,
				"plan_id": p.PlanID,
			},
		},
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe checkout session: %w", err)
	}
	return sess.URL, nil
}

func (c *StripeClient) CreatePortalSession(ctx context.Context, customerRef string) (string, error) {
	if stripe.Key == "" {
		return "", errors.New("STRIPE_SECRET_KEY is not configured")
	}
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(c.ReturnURL),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe portal session: %w", err)
	}
	return sess.URL, nil
}

func (c *StripeClient) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	if stripe.Key == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	if _, err := subscription.Update(subscriptionRef, params); err != nil {
		return fmt.Errorf("billing: update stripe subscription %s: %w", subscriptionRef, err)
	}
	return nil
}
