package handlers

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/internal/middleware"
	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// AdminHandler handles marketplace back-office operations
type AdminHandler struct {
	store         storage.Store
	twilioService *services.TwilioService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, twilioService *services.TwilioService) *AdminHandler {
	return &AdminHandler{
		store:         store,
		twilioService: twilioService,
	}
}

// Login exchanges the admin API key for a JWT
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	expected := os.Getenv("ADMIN_API_KEY")
	if expected == "" || subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(expected)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	token, err := middleware.IssueAdminToken()
	if err != nil {
		log.Printf("Failed to issue admin token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}

	return c.JSON(fiber.Map{"token": token})
}

// Overview returns marketplace-wide counts
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	groups, err := h.store.GetAllGroups()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}

	awaiting, _ := h.store.GetOrdersByStatus(models.OrderStatusAwaiting)
	paid, _ := h.store.GetOrdersByStatus(models.OrderStatusPaid)
	delivered, _ := h.store.GetOrdersByStatus(models.OrderStatusDelivered)

	return c.JSON(fiber.Map{
		"groups": len(groups),
		"orders": fiber.Map{
			"awaiting_payment": len(awaiting),
			"paid":             len(paid),
			"delivered":        len(delivered),
		},
	})
}

// ListGroups returns every registered marketplace group
func (h *AdminHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.store.GetAllGroups()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch groups",
		})
	}
	return c.JSON(fiber.Map{
		"count":  len(groups),
		"groups": groups,
	})
}

// ListOrdersByStatus returns orders filtered by status
func (h *AdminHandler) ListOrdersByStatus(c *fiber.Ctx) error {
	status := c.Query("status", models.OrderStatusAwaiting)
	orders, err := h.store.GetOrdersByStatus(status)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch orders",
		})
	}
	return c.JSON(fiber.Map{
		"count":  len(orders),
		"orders": orders,
	})
}

// RemoveListing takes a listing off the marketplace and tells the seller
func (h *AdminHandler) RemoveListing(c *fiber.Ctx) error {
	id := c.Params("id")
	listing, err := h.store.GetListing(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Listing not found",
		})
	}

	listing.Status = "removed"
	if err := h.store.UpdateListing(listing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update listing",
		})
	}

	if h.twilioService != nil {
		if seller, err := h.store.GetSeller(listing.SellerID); err == nil {
			msg := "⚠️ Your listing *" + listing.Title + "* was removed by a marketplace moderator."
			if err := h.twilioService.SendWhatsAppMessage(seller.Phone, msg); err != nil {
				log.Printf("Failed to notify seller %s: %v", seller.Phone, err)
			}
		}
	}

	log.Printf("Listing %s removed by admin", id)
	return c.JSON(fiber.Map{"success": true})
}
