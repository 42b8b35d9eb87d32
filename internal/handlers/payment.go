package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// PaymentHandler receives payment provider webhooks and serves order lookups
type PaymentHandler struct {
	store          storage.Store
	paymentService *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(store storage.Store, paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		store:          store,
		paymentService: paymentService,
	}
}

// HandleWebhook processes asynchronous payment status updates
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty webhook body",
		})
	}

	if err := h.paymentService.ProcessPaymentWebhook(body); err != nil {
		log.Printf("❌ Payment webhook failed: %v", err)
		// 200 anyway so the provider does not retry unrecoverable events forever
	}

	return c.JSON(fiber.Map{"received": true})
}

// GetOrder returns one order by reference
func (h *PaymentHandler) GetOrder(c *fiber.Ctx) error {
	reference := c.Params("reference")
	order, err := h.store.GetOrder(reference)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	return c.JSON(order)
}

// GetPendingOrders lists orders still waiting on payment
func (h *PaymentHandler) GetPendingOrders(c *fiber.Ctx) error {
	pending, err := h.store.GetOrdersByStatus(models.OrderStatusAwaiting)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch orders",
		})
	}
	return c.JSON(fiber.Map{
		"count":  len(pending),
		"orders": pending,
	})
}
