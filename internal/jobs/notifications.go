package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// NotificationJob runs the marketplace's background sweeps: boost expiry,
// subscription expiry and payment reminders
type NotificationJob struct {
	store         storage.Store
	twilioService *services.TwilioService
	stop          chan struct{}
	isRunning     bool
}

// NewNotificationJob creates a new notification job scheduler
func NewNotificationJob(store storage.Store, twilioService *services.TwilioService) *NotificationJob {
	return &NotificationJob{
		store:         store,
		twilioService: twilioService,
		stop:          make(chan struct{}),
	}
}

// Start begins all scheduled jobs
func (n *NotificationJob) Start() {
	if n.isRunning {
		log.Println("Notification jobs already running")
		return
	}
	n.isRunning = true
	log.Println("Starting scheduled notification jobs...")

	go n.runEvery(15*time.Minute, n.expireBoosts)
	go n.runEvery(1*time.Hour, n.expireSubscriptions)
	go n.runEvery(30*time.Minute, n.remindPendingPayments)

	log.Println("All notification jobs started successfully")
}

// Stop halts all scheduled jobs
func (n *NotificationJob) Stop() {
	if !n.isRunning {
		return
	}
	n.isRunning = false
	close(n.stop)
	log.Println("Stopping scheduled notification jobs...")
}

func (n *NotificationJob) runEvery(interval time.Duration, task func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			task()
		}
	}
}

// expireBoosts switches off boosts whose paid window has passed
func (n *NotificationJob) expireBoosts() {
	expired, err := n.store.GetExpiredBoosts()
	if err != nil {
		log.Printf("Failed to fetch expired boosts: %v", err)
		return
	}

	for _, listing := range expired {
		listing.IsBoosted = false
		listing.BoostExpiresAt = nil
		if err := n.store.UpdateListing(listing); err != nil {
			log.Printf("Failed to expire boost on listing %s: %v", listing.ID, err)
			continue
		}

		if n.twilioService != nil {
			if seller, err := n.store.GetSeller(listing.SellerID); err == nil {
				msg := fmt.Sprintf(`⏰ Your boost on *%s* has ended.

Boost again anytime with: !boost %s <days>`, listing.Title, listing.ID)
				_ = n.twilioService.SendWhatsAppMessage(seller.Phone, msg)
			}
		}

		log.Printf("Boost expired for listing %s", listing.ID)
	}
}

// expireSubscriptions marks lapsed plans and nudges the seller to renew
func (n *NotificationJob) expireSubscriptions() {
	expired, err := n.store.GetExpiredSubscriptions()
	if err != nil {
		log.Printf("Failed to fetch expired subscriptions: %v", err)
		return
	}

	for _, sub := range expired {
		sub.Status = "expired"
		if err := n.store.UpdateSubscription(sub); err != nil {
			log.Printf("Failed to expire subscription %d: %v", sub.ID, err)
			continue
		}

		if n.twilioService != nil {
			msg := fmt.Sprintf(`⏰ Your *%s* seller plan has expired.

Renew to keep posting: !subscribe %s`, sub.Plan, sub.Plan)
			_ = n.twilioService.SendWhatsAppMessage(sub.SellerPhone, msg)
		}

		log.Printf("Subscription expired for %s", sub.SellerPhone)
	}
}

// paymentReminderAge is how long an order may sit unpaid before we nudge
const paymentReminderAge = 1 * time.Hour

// remindPendingPayments nudges buyers whose payment link went stale
func (n *NotificationJob) remindPendingPayments() {
	awaiting, err := n.store.GetOrdersByStatus(models.OrderStatusAwaiting)
	if err != nil {
		log.Printf("Failed to fetch awaiting orders: %v", err)
		return
	}

	cutoff := time.Now().Add(-paymentReminderAge)
	for _, order := range awaiting {
		if order.UpdatedAt.After(cutoff) {
			continue
		}

		if n.twilioService != nil {
			msg := fmt.Sprintf(`⏰ *Payment Reminder*

Your order %s (%s) is still waiting for payment.

Pay here:
%s

Or reply "cancel" to abandon the order.`,
				order.Reference, formatOrderAmount(order), order.PaymentURL)
			if err := n.twilioService.SendWhatsAppMessage(order.BuyerPhone, msg); err != nil {
				log.Printf("Failed to remind buyer %s: %v", order.BuyerPhone, err)
				continue
			}
		}

		// Touch the order so the next sweep skips it
		if err := n.store.UpdateOrder(order); err != nil {
			log.Printf("Failed to touch order %s: %v", order.Reference, err)
		}

		log.Printf("Payment reminder sent for order %s", order.Reference)
	}
}

func formatOrderAmount(order *models.Order) string {
	currency := order.Currency
	if currency == "" {
		currency = "FCFA"
	}
	return fmt.Sprintf("%.0f %s", order.Total, currency)
}
