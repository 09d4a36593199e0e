package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsEntitled(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"nil record", nil, false},
		{"active in period", &Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: &future}, true},
		{"trialing in period", &Subscription{Status: SubscriptionStatusTrialing, CurrentPeriodEnd: &future}, true},
		{"active expired", &Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: &past}, false},
		{"active without period end", &Subscription{Status: SubscriptionStatusActive}, false},
		{"past_due in period", &Subscription{Status: SubscriptionStatusPastDue, CurrentPeriodEnd: &future}, false},
		{"canceled in period", &Subscription{Status: SubscriptionStatusCanceled, CurrentPeriodEnd: &future}, false},
		{"incomplete in period", &Subscription{Status: SubscriptionStatusIncomplete, CurrentPeriodEnd: &future}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sub.IsEntitled(now))
		})
	}
}

func TestSubscriptionIsTerminal(t *testing.T) {
	var nilSub *Subscription
	assert.False(t, nilSub.IsTerminal())
	assert.False(t, (&Subscription{Status: SubscriptionStatusActive}).IsTerminal())
	assert.False(t, (&Subscription{Status: SubscriptionStatusPastDue}).IsTerminal())
	assert.True(t, (&Subscription{Status: SubscriptionStatusCanceled}).IsTerminal())
}

func TestPlanPriceRef(t *testing.T) {
	plan := &Plan{PriceRefMonthly: "price_m", PriceRefYearly: "price_y"}
	assert.Equal(t, "price_m", plan.PriceRef(BillingIntervalMonth))
	assert.Equal(t, "price_y", plan.PriceRef(BillingIntervalYear))
	assert.Equal(t, "price_m", plan.PriceRef("weekly"))

	monthlyOnly := &Plan{PriceRefMonthly: "price_m"}
	assert.Equal(t, "price_m", monthlyOnly.PriceRef(BillingIntervalYear))
}
