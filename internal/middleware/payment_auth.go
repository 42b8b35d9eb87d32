package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// ValidatePaymentSignature verifies the payment provider's webhook signature:
// hex HMAC-SHA256 of the raw body with the shared webhook secret
func ValidatePaymentSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
		if secret == "" {
			log.Println("ERROR: PAYMENT_WEBHOOK_SECRET not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		signature := c.Get("X-Webhook-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing webhook signature",
			})
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(c.Body())
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		}

		return c.Next()
	}
}
