package router

import (
	"github.com/andrefurlan/adega/app/controllers"
	"github.com/andrefurlan/adega/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "adega api",
		})
	})

	v1 := api.Group("/v1", middleware.SessionAuth())

	// Public surface. The webhook endpoint authenticates with the provider
	// signature, not a session.
	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/webhooks/billing", controllers.HandleBillingWebhook)
	v1.Get("/plans", controllers.HandleListPlans)

	auth := v1.Group("", middleware.RequireAuth)
	auth.Post("/auth/logout", controllers.HandleLogout)
	auth.Get("/me", controllers.HandleMe)

	auth.Get("/wines", controllers.HandleWineList)
	auth.Post("/wines", controllers.HandleWineCreate)
	auth.Get("/wines/:id", controllers.HandleWineGet)
	auth.Put("/wines/:id", controllers.HandleWineUpdate)
	auth.Delete("/wines/:id", controllers.HandleWineDelete)

	auth.Get("/wines/:wine_id/purchase-links", controllers.HandlePurchaseLinkList)
	auth.Post("/wines/:wine_id/purchase-links", controllers.HandlePurchaseLinkCreate)
	auth.Put("/wines/:wine_id/purchase-links/:id", controllers.HandlePurchaseLinkUpdate)
	auth.Delete("/wines/:wine_id/purchase-links/:id", controllers.HandlePurchaseLinkDelete)

	auth.Get("/recipes", controllers.HandleRecipeList)
	auth.Post("/recipes", controllers.HandleRecipeCreate)
	auth.Get("/recipes/:id", controllers.HandleRecipeGet)
	auth.Put("/recipes/:id", controllers.HandleRecipeUpdate)
	auth.Delete("/recipes/:id", controllers.HandleRecipeDelete)

	auth.Post("/billing/checkout", controllers.HandleCreateCheckout)
	auth.Post("/billing/portal", controllers.HandleOpenPortal)
	auth.Post("/billing/cancel", controllers.HandleCancelSubscription)
	auth.Post("/billing/reactivate", controllers.HandleReactivateSubscription)
	auth.Get("/billing/subscription", controllers.HandleSubscriptionStatus)
}
