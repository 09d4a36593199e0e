package controllers

import (
	"github.com/andrefurlan/adega/app/models"
	"github.com/andrefurlan/adega/app/repository"
	"github.com/andrefurlan/adega/internal/pkg/billing"
	"github.com/andrefurlan/adega/internal/pkg/database"
	"github.com/andrefurlan/adega/internal/pkg/env"
	"github.com/andrefurlan/adega/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type checkoutRequest struct {
	PlanID   string `json:"plan_id"`
	Interval string `json:"interval"`
}

// HandleBillingWebhook receives provider webhook deliveries. The order is
// strict: verify the signature before any state change, record the delivery
// for deduplication, normalize, then reconcile. A failed reconciliation
// returns 500 so the provider retries the delivery.
func HandleBillingWebhook(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.BodyRaw()...)

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if !billing.VerifyWebhookSignature(raw, c.Get("Stripe-Signature"), secret) {
		log.Warnf("billing webhook: invalid signature from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	envlp, err := billing.ParseEnvelope(raw)
	if err != nil {
		log.Warnf("billing webhook: %v", err)
		return badRequest(c, "invalid payload")
	}

	repo := billing.NewRepository(database.GetDB())
	created, stored, err := repo.CreateWebhookEventIfNotExists(c.Context(), &models.BillingWebhookEvent{
		ProviderEventID: envlp.ID,
		EventType:       envlp.Type,
		PayloadJSON:     string(raw),
	})
	if err != nil {
		log.Errorf("billing webhook: could not record delivery %s: %v", envlp.ID, err)
		return internalError(c, "could not record event")
	}
	// A redelivery is only acknowledged as duplicate once a previous attempt
	// completed cleanly; failed attempts get reprocessed here.
	if !created && stored.Processed() {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	ev, err := billing.Normalize(envlp)
	if err != nil {
		if markErr := repo.MarkWebhookProcessed(c.Context(), stored.ID, err.Error()); markErr != nil {
			log.Errorf("billing webhook: could not mark %s: %v", envlp.ID, markErr)
		}
		log.Warnf("billing webhook: %v", err)
		return badRequest(c, "unprocessable event")
	}

	applyErr := billing.NewReconciler(repo).Apply(c.Context(), ev)
	processingError := ""
	if applyErr != nil {
		processingError = applyErr.Error()
	}
	if err := repo.MarkWebhookProcessed(c.Context(), stored.ID, processingError); err != nil {
		log.Errorf("billing webhook: could not mark %s: %v", envlp.ID, err)
	}
	if applyErr != nil {
		log.Errorf("billing webhook: apply %s (%s) failed: %v", envlp.ID, envlp.Type, applyErr)
		return internalError(c, "subscription sync failed")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleCreateCheckout starts a provider checkout session for the requested
// plan and returns the redirect URL.
func HandleCreateCheckout(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	url, err := billing.NewServiceFromDB(database.GetDB()).
		StartCheckout(c.Context(), user.UserID, user.Email, req.PlanID, req.Interval)
	if err != nil {
		return billingError(c, "checkout", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleOpenPortal returns a billing-portal URL for the user's provider
// customer.
func HandleOpenPortal(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	url, err := billing.NewServiceFromDB(database.GetDB()).OpenPortal(c.Context(), user.UserID)
	if err != nil {
		return billingError(c, "portal", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleCancelSubscription requests cancellation at period end.
func HandleCancelSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	if err := billing.NewServiceFromDB(database.GetDB()).Cancel(c.Context(), user.UserID); err != nil {
		return billingError(c, "cancel", err)
	}
	return c.JSON(fiber.Map{"ok": true, "cancel_at_period_end": true})
}

// HandleReactivateSubscription withdraws a pending cancellation.
func HandleReactivateSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	if err := billing.NewServiceFromDB(database.GetDB()).Reactivate(c.Context(), user.UserID); err != nil {
		return billingError(c, "reactivate", err)
	}
	return c.JSON(fiber.Map{"ok": true, "cancel_at_period_end": false})
}

// HandleSubscriptionStatus returns the caller's subscription state for
// display, including the resolved plan.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	view, err := billing.NewEntitlements(billing.NewRepository(database.GetDB())).
		GetSubscriptionStatus(c.Context(), user.UserID)
	if err != nil {
		log.Errorf("subscription status for user %d failed: %v", user.UserID, err)
		return internalError(c, "could not load subscription")
	}
	return c.JSON(view)
}

// HandleListPlans returns the purchasable plan catalog.
func HandleListPlans(c *fiber.Ctx) error {
	plans, err := repository.GetGlobalFactory().GetPlanRepository().ListActive()
	if err != nil {
		log.Errorf("plan list failed: %v", err)
		return internalError(c, "could not load plans")
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// billingError maps command-surface errors onto HTTP status codes.
func billingError(c *fiber.Ctx, op string, err error) error {
	switch billing.ErrorCode(err) {
	case billing.CodeNotFound:
		return notFound(c, err.Error())
	case billing.CodeUnauthorized:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": err.Error()})
	case billing.CodeForbidden:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": err.Error()})
	default:
		log.Errorf("billing %s for user failed: %v", op, err)
		return internalError(c, "billing operation failed")
	}
}
