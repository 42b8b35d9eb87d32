package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// Seller plan pricing in FCFA
var planPrices = map[string]float64{
	models.PlanWeekly:    1000,
	models.PlanMonthly:   3000,
	models.PlanQuarterly: 7500,
}

// SubscriptionService sells and tracks seller posting plans
type SubscriptionService struct {
	store          storage.Store
	paymentService *PaymentService
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(store storage.Store, paymentService *PaymentService) *SubscriptionService {
	return &SubscriptionService{store: store, paymentService: paymentService}
}

// PlansText renders the plan menu
func (s *SubscriptionService) PlansText() string {
	return fmt.Sprintf(`💼 *Seller Plans*

📅 *weekly* — %s
🗓️ *monthly* — %s
📆 *quarterly* — %s

Subscribe with: !subscribe <plan>
Example: !subscribe monthly`,
		formatAmount(planPrices[models.PlanWeekly], CurrencyFCFA),
		formatAmount(planPrices[models.PlanMonthly], CurrencyFCFA),
		formatAmount(planPrices[models.PlanQuarterly], CurrencyFCFA))
}

// Subscribe starts a plan purchase for the seller and returns the text to send back
func (s *SubscriptionService) Subscribe(sellerPhone, plan string) string {
	plan = strings.ToLower(strings.TrimSpace(plan))
	price, ok := planPrices[plan]
	if !ok {
		return "Unknown plan. Valid plans: weekly, monthly, quarterly.\n\n" + s.PlansText()
	}

	if active, err := s.store.GetActiveSubscription(sellerPhone); err == nil && active != nil {
		return fmt.Sprintf("You already have an active *%s* plan until %s. No need to subscribe again yet!",
			active.Plan, active.ExpiresAt.Format("2 Jan 2006"))
	}

	sub := &models.Subscription{
		SellerPhone: sellerPhone,
		Plan:        plan,
		Amount:      price,
		Currency:    CurrencyFCFA,
		Status:      "pending",
	}
	created, err := s.store.CreateSubscription(sub)
	if err != nil {
		log.Printf("Failed to create subscription for %s: %v", sellerPhone, err)
		return "😕 Could not start your subscription right now. Please try again later."
	}

	reference := fmt.Sprintf("SUB-%d", created.ID)
	payment, err := s.paymentService.CreateCheckoutPayment(price, sellerPhone, reference)
	if err != nil {
		log.Printf("Failed to initiate subscription payment for %s: %v", sellerPhone, err)
		return "😕 Payment could not be started. Please try again later."
	}

	created.PaymentRef = payment.Reference
	if err := s.store.UpdateSubscription(created); err != nil {
		log.Printf("Failed to save payment ref on subscription %d: %v", created.ID, err)
	}

	return fmt.Sprintf(`💼 *%s plan* — %s

Pay here to activate:
%s

Your plan starts the moment payment is confirmed.`,
		plan, formatAmount(price, CurrencyFCFA), payment.PaymentURL)
}

// Status reports the seller's current plan
func (s *SubscriptionService) Status(sellerPhone string) string {
	active, err := s.store.GetActiveSubscription(sellerPhone)
	if err != nil || active == nil {
		return "You have no active plan.\n\n" + s.PlansText()
	}
	return fmt.Sprintf(`💼 *Your Plan*

*Plan:* %s
*Expires:* %s`,
		active.Plan, active.ExpiresAt.Format("2 Jan 2006"))
}
