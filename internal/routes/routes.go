package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/internal/handlers"
	"github.com/kamermarket/kamermarket-backend/internal/middleware"
	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	app *fiber.App,
	store storage.Store,
	whatsappHandler *handlers.WhatsAppHandler,
	paymentHandler *handlers.PaymentHandler,
	twilioService *services.TwilioService,
) {
	listingHandler := handlers.NewListingHandler(store)
	adminHandler := handlers.NewAdminHandler(store, twilioService)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to KamerMarket Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":        "/health",
				"api":           "/api",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"admin":         "/admin",
			},
		})
	})

	// API routes
	api := app.Group("/api")

	listings := api.Group("/listings")
	listings.Post("/", listingHandler.Create)
	listings.Get("/", listingHandler.Search)
	listings.Get("/:id", listingHandler.Get)

	orders := api.Group("/orders")
	orders.Get("/:reference", paymentHandler.GetOrder)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook, signature-checked outside development
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		log.Println("⚠️  WhatsApp webhook validation DISABLED for development")
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// Payment provider webhook, same environment switch
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		webhooks.Post("/payment", paymentHandler.HandleWebhook)
	} else {
		webhooks.Post("/payment", middleware.ValidatePaymentSignature(), paymentHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Post("/login", adminHandler.Login)
	admin.Get("/overview", middleware.RequireAdmin(), adminHandler.Overview)
	admin.Get("/groups", middleware.RequireAdmin(), adminHandler.ListGroups)
	admin.Get("/orders", middleware.RequireAdmin(), adminHandler.ListOrdersByStatus)
	admin.Delete("/listings/:id", middleware.RequireAdmin(), adminHandler.RemoveListing)
	admin.Get("/payments/pending", middleware.RequireAdmin(), paymentHandler.GetPendingOrders)
}
