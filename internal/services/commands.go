package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/kamermarket/kamermarket-backend/internal/models"
)

// ReplyFunc delivers a command's answer back to the sender
type ReplyFunc func(text string) error

// CommandRouter dispatches "!" prefixed messages to the seller subsystems.
// Anything it does not recognize falls through to the conversational pipeline.
type CommandRouter struct {
	subscriptions *SubscriptionService
	boosts        *BoostService
	payments      *PaymentService
}

// NewCommandRouter creates a new command router
func NewCommandRouter(subscriptions *SubscriptionService, boosts *BoostService, payments *PaymentService) *CommandRouter {
	return &CommandRouter{
		subscriptions: subscriptions,
		boosts:        boosts,
		payments:      payments,
	}
}

// Route handles one prefixed message. Returns false when the text is not a
// recognized command, leaving routing to the caller.
func (cr *CommandRouter) Route(text, sender string, reply ReplyFunc) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "!") {
		return false
	}

	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return false
	}

	command := strings.ToLower(fields[0])
	args := fields[1:]

	var answer string
	switch command {
	case "plans":
		answer = cr.subscriptions.PlansText()
	case "subscribe":
		if len(args) != 1 {
			answer = "Usage: !subscribe <weekly|monthly|quarterly>"
		} else {
			answer = cr.subscriptions.Subscribe(sender, args[0])
		}
	case "myplan":
		answer = cr.subscriptions.Status(sender)
	case "boost":
		if len(args) != 2 {
			answer = "Usage: !boost <listing-id> <days>"
		} else {
			answer = cr.boosts.Boost(sender, args[0], args[1])
		}
	case "pay":
		if len(args) != 1 {
			answer = "Usage: !pay <order-reference>"
		} else {
			answer = cr.directPayment(sender, args[0])
		}
	default:
		return false
	}

	if err := reply(answer); err != nil {
		log.Printf("Failed to deliver command reply to %s: %v", sender, err)
	}
	return true
}

// directPayment re-issues a payment link for a pending order
func (cr *CommandRouter) directPayment(sender, reference string) string {
	order, err := cr.payments.store.GetOrder(strings.ToUpper(reference))
	if err != nil || order == nil || order.BuyerPhone != sender {
		return fmt.Sprintf("Order %s was not found among your orders.", reference)
	}

	switch order.Status {
	case models.OrderStatusPaid, models.OrderStatusDelivered:
		return fmt.Sprintf("Order %s is already paid. Nothing to do!", order.Reference)
	case models.OrderStatusCancelled:
		return fmt.Sprintf("Order %s was cancelled. Start a new purchase to buy again.", order.Reference)
	}

	payment, err := cr.payments.CreateCheckoutPayment(order.Total, sender, order.Reference)
	if err != nil {
		log.Printf("Failed to initiate direct payment for %s: %v", reference, err)
		return "😕 Payment could not be started. Please try again later."
	}

	order.Status = models.OrderStatusAwaiting
	order.PaymentRef = payment.Reference
	order.PaymentURL = payment.PaymentURL
	if err := cr.payments.store.UpdateOrder(order); err != nil {
		log.Printf("Failed to update order %s: %v", order.Reference, err)
	}

	return fmt.Sprintf(`💳 *Pay for %s*

*Total:* %s

Pay here:
%s`, order.Reference, formatAmount(order.Total, order.Currency), payment.PaymentURL)
}
