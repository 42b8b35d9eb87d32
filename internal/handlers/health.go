package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/database"
	"github.com/kamermarket/kamermarket-backend/internal/services"
)

// HealthHandler reports service liveness for monitoring
type HealthHandler struct {
	Version  string
	Sessions *services.SessionManager
	Twilio   bool
	AI       bool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions *services.SessionManager, hasTwilio, hasAI bool) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		Sessions: sessions,
		Twilio:   hasTwilio,
		AI:       hasAI,
	}
}

// Check returns the health status of the service. The database ping only
// runs against a real database; the memory store is always healthy.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	sessionCount := 0
	if h.Sessions != nil {
		sessionCount = h.Sessions.ActiveSessionCount()
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"service": "KamerMarket Backend",
		"version": h.Version,
		"services": fiber.Map{
			"database": status == "healthy",
			"twilio":   h.Twilio,
			"ai":       h.AI,
			"sessions": sessionCount,
		},
	})
}
