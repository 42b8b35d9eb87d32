package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// ListingHandler serves the listing ingestion and lookup API, used by the
// group-scraper side of the platform to push listings into the read model
type ListingHandler struct {
	store storage.Store
}

// NewListingHandler creates a new listing handler
func NewListingHandler(store storage.Store) *ListingHandler {
	return &ListingHandler{store: store}
}

// CreateListingRequest is the ingestion payload
type CreateListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
	SellerPhone string  `json:"seller_phone"`
	SellerName  string  `json:"seller_name"`
	GroupID     string  `json:"group_id"`
}

// Create ingests one listing, creating the seller record on first sight
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" || req.Price <= 0 || req.SellerPhone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title, price and seller_phone are required",
		})
	}

	seller, err := h.store.GetSellerByPhone(req.SellerPhone)
	if err != nil {
		seller, err = h.store.CreateSeller(&models.Seller{
			Phone: req.SellerPhone,
			Name:  req.SellerName,
		})
		if err != nil {
			log.Printf("Failed to create seller %s: %v", req.SellerPhone, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create seller",
			})
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "FCFA"
	}

	listing, err := h.store.CreateListing(&models.Listing{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    currency,
		Category:    req.Category,
		Location:    req.Location,
		SellerID:    seller.ID,
		GroupID:     req.GroupID,
		Status:      "active",
	})
	if err != nil {
		log.Printf("Failed to create listing: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create listing",
		})
	}

	log.Printf("📦 Listing ingested: #%s %s (%s)", listing.ID, listing.Title, req.SellerPhone)
	return c.Status(fiber.StatusCreated).JSON(listing)
}

// Get returns one listing by id
func (h *ListingHandler) Get(c *fiber.Ctx) error {
	listing, err := h.store.GetListing(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Listing not found",
		})
	}
	return c.JSON(listing)
}

// Search runs the same read-model query the bot uses
func (h *ListingHandler) Search(c *fiber.Ctx) error {
	search := &models.ListingSearch{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Currency: c.Query("currency"),
		MinPrice: c.QueryFloat("min_price"),
		MaxPrice: c.QueryFloat("max_price"),
		Limit:    c.QueryInt("limit", 20),
	}

	listings, err := h.store.SearchListings(search)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"count":    len(listings),
		"listings": listings,
	})
}
