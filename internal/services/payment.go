package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// PaymentService talks to the mobile-money provider and processes its
// asynchronous status webhooks
type PaymentService struct {
	store         storage.Store
	twilioService *TwilioService
	apiURL        string
	apiKey        string
	client        *http.Client
}

// NewPaymentService creates a new payment service
func NewPaymentService(store storage.Store, twilioService *TwilioService) *PaymentService {
	return &PaymentService{
		store:         store,
		twilioService: twilioService,
		apiURL:        os.Getenv("PAYMENT_API_URL"),
		apiKey:        os.Getenv("PAYMENT_API_KEY"),
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutPayment is the provider's answer to a collection request
type CheckoutPayment struct {
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
}

type collectRequest struct {
	Amount            float64 `json:"amount"`
	From              string  `json:"from"`
	ExternalReference string  `json:"external_reference"`
	IdempotencyKey    string  `json:"idempotency_key"`
}

// CreateCheckoutPayment asks the provider to collect `amount` from the buyer.
// Status arrives later via webhook, never synchronously.
func (p *PaymentService) CreateCheckoutPayment(amount float64, payerPhone, reference string) (*CheckoutPayment, error) {
	if p.apiURL == "" {
		return nil, fmt.Errorf("payment provider not configured")
	}

	body, err := json.Marshal(collectRequest{
		Amount:            amount,
		From:              payerPhone,
		ExternalReference: reference,
		IdempotencyKey:    uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, p.apiURL+"/collect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var payment CheckoutPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}

	log.Printf("💳 Payment initiated: %s (order %s)", payment.Reference, reference)
	return &payment, nil
}

// PaymentWebhookPayload represents the webhook data from the provider
type PaymentWebhookPayload struct {
	Event             string  `json:"event"` // "payment.success" / "payment.failed"
	Reference         string  `json:"reference"`
	ExternalReference string  `json:"external_reference"`
	Amount            float64 `json:"amount"`
	CreatedAt         int64   `json:"created_at"`
}

// ProcessPaymentWebhook handles payment provider webhooks
func (p *PaymentService) ProcessPaymentWebhook(payload []byte) error {
	var webhook PaymentWebhookPayload
	if err := json.Unmarshal(payload, &webhook); err != nil {
		return fmt.Errorf("failed to parse webhook: %v", err)
	}

	log.Printf("Processing payment webhook: %s (%s)", webhook.Event, webhook.ExternalReference)

	switch webhook.Event {
	case "payment.success":
		return p.handlePaymentSuccess(&webhook)
	case "payment.failed":
		return p.handlePaymentFailed(&webhook)
	default:
		log.Printf("Unhandled webhook event: %s", webhook.Event)
		return nil
	}
}

func (p *PaymentService) handlePaymentSuccess(webhook *PaymentWebhookPayload) error {
	// Subscriptions and boosts come through the same provider
	if sub, err := p.store.GetSubscriptionByPaymentRef(webhook.Reference); err == nil && sub != nil {
		return p.activateSubscription(sub)
	}
	if strings.HasPrefix(webhook.ExternalReference, "BST-") {
		return p.activateBoost(webhook.ExternalReference)
	}

	order, err := p.store.GetOrder(webhook.ExternalReference)
	if err != nil {
		return fmt.Errorf("order not found: %v", err)
	}

	now := time.Now()
	order.Status = models.OrderStatusPaid
	order.PaymentRef = webhook.Reference
	order.PaidAt = &now
	if err := p.store.UpdateOrder(order); err != nil {
		return fmt.Errorf("failed to update order: %v", err)
	}

	listing, _ := p.store.GetListing(order.ListingID)

	// Notify the buyer
	if p.twilioService != nil {
		buyerMsg := fmt.Sprintf(`✅ *Payment Received!*

*Order:* %s
*Total:* %s

The seller has been notified to arrange delivery. Once you receive the item, reply "delivered %s" to release the payment.`,
			order.Reference, formatAmount(order.Total, order.Currency), order.Reference)
		if err := p.twilioService.SendWhatsAppMessage(order.BuyerPhone, buyerMsg); err != nil {
			log.Printf("Failed to notify buyer %s: %v", order.BuyerPhone, err)
		}
	}

	// Notify the seller
	if p.twilioService != nil && listing != nil {
		if seller, err := p.store.GetSeller(listing.SellerID); err == nil {
			sellerMsg := fmt.Sprintf(`🎉 *Item Sold!*

*%s* has been paid for (order %s).
%s is held in escrow and will be released when the buyer confirms delivery.

Please arrange delivery with the buyer: %s`,
				listing.Title, order.Reference,
				formatAmount(order.Amount, order.Currency), order.BuyerPhone)
			_ = p.twilioService.SendWhatsAppMessage(seller.Phone, sellerMsg)
		}
	}

	log.Printf("Payment confirmed: %s for order %s", webhook.Reference, order.Reference)
	return nil
}

func (p *PaymentService) handlePaymentFailed(webhook *PaymentWebhookPayload) error {
	order, err := p.store.GetOrder(webhook.ExternalReference)
	if err != nil {
		return fmt.Errorf("order not found: %v", err)
	}

	order.Status = models.OrderStatusFailed
	if err := p.store.UpdateOrder(order); err != nil {
		return fmt.Errorf("failed to update order: %v", err)
	}

	if p.twilioService != nil {
		msg := fmt.Sprintf(`❌ *Payment Failed*

Your payment for order %s did not go through. No money was taken.

Reply "payment sent" to try again, or "cancel" to abandon the order.`,
			order.Reference)
		if err := p.twilioService.SendWhatsAppMessage(order.BuyerPhone, msg); err != nil {
			log.Printf("Failed to notify buyer %s: %v", order.BuyerPhone, err)
		}
	}

	return nil
}

func (p *PaymentService) activateSubscription(sub *models.Subscription) error {
	now := time.Now()
	expires := now.Add(planDuration(sub.Plan))
	sub.Status = "active"
	sub.StartsAt = &now
	sub.ExpiresAt = &expires
	if err := p.store.UpdateSubscription(sub); err != nil {
		return fmt.Errorf("failed to activate subscription: %v", err)
	}

	if p.twilioService != nil {
		msg := fmt.Sprintf(`✅ *Subscription Active!*

*Plan:* %s
*Valid until:* %s

You can now post listings in all marketplace groups. Happy selling!`,
			sub.Plan, expires.Format("2 Jan 2006"))
		_ = p.twilioService.SendWhatsAppMessage(sub.SellerPhone, msg)
	}

	log.Printf("Subscription activated for %s (%s plan)", sub.SellerPhone, sub.Plan)
	return nil
}

// activateBoost decodes a "BST-<listingId>-<days>" reference and flips the
// listing's ranking priority on
func (p *PaymentService) activateBoost(reference string) error {
	parts := strings.Split(reference, "-")
	if len(parts) != 3 {
		return fmt.Errorf("malformed boost reference: %s", reference)
	}
	listingID := parts[1]
	days, err := strconv.Atoi(parts[2])
	if err != nil || days < 1 {
		return fmt.Errorf("malformed boost duration in %s", reference)
	}

	listing, err := p.store.GetListing(listingID)
	if err != nil {
		return fmt.Errorf("listing not found for boost %s: %v", reference, err)
	}

	expires := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	listing.IsBoosted = true
	listing.BoostExpiresAt = &expires
	if err := p.store.UpdateListing(listing); err != nil {
		return fmt.Errorf("failed to boost listing %s: %v", listingID, err)
	}

	if p.twilioService != nil {
		if seller, err := p.store.GetSeller(listing.SellerID); err == nil {
			msg := fmt.Sprintf(`🚀 *Boost Active!*

*%s* is now at the top of search results until %s.`,
				listing.Title, expires.Format("2 Jan 2006"))
			_ = p.twilioService.SendWhatsAppMessage(seller.Phone, msg)
		}
	}

	log.Printf("Boost activated for listing %s (%d days)", listingID, days)
	return nil
}

func planDuration(plan string) time.Duration {
	switch plan {
	case models.PlanWeekly:
		return 7 * 24 * time.Hour
	case models.PlanQuarterly:
		return 90 * 24 * time.Hour
	default: // monthly
		return 30 * 24 * time.Hour
	}
}
