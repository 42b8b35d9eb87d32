package services

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

var deliveredRe = regexp.MustCompile(`(?i)^\s*delivered\s+(MP-\S+)`)

// ConversationService orchestrates one chat turn: extraction, state
// transition, response generation and history bookkeeping
type ConversationService struct {
	store     storage.Store
	sessions  *SessionManager
	extractor *Extractor
	responder *Responder
	assistant *AIAssistant
}

// NewConversationService creates the orchestrator. assistant may be nil, in
// which case every turn runs on the rule-based extractor.
func NewConversationService(store storage.Store, sessions *SessionManager, responder *Responder, assistant *AIAssistant) *ConversationService {
	return &ConversationService{
		store:     store,
		sessions:  sessions,
		extractor: NewExtractor(),
		responder: responder,
		assistant: assistant,
	}
}

// Process handles one inbound message for one user. Calls for the same user
// are serialized by the session manager; different users run concurrently.
func (c *ConversationService) Process(ctx context.Context, userID, message string) (*Response, error) {
	// Delivery confirmation releases the escrow; it works from any state
	if m := deliveredRe.FindStringSubmatch(message); m != nil {
		return c.confirmDelivery(userID, m[1]), nil
	}

	var response *Response

	err := c.sessions.WithSession(userID, func(session *Session) error {
		result := c.extract(ctx, session, message)
		result = normalizeResult(session, result)

		session.AddTurn("user", message, c.sessions.historyLimit)

		nextState, responseType := Resolve(session.State, result.Intent)

		// A fresh search clears leftovers from the previous one before the
		// new entities land
		if result.Intent == IntentSearch && session.State != StateSearching {
			clearSearchContext(session.Context)
		}

		MergeEntities(session.Context, result.Entities)

		if pid, ok := result.Entities["productId"].(string); ok && pid != "" {
			session.Context["activeProductId"] = pid
		}

		// Cancel from SEARCHING abandons the whole flow, including anything
		// the cancel message itself happened to carry. Cancel elsewhere
		// (e.g. CHECKOUT) steps back and keeps the selection.
		if result.Intent == IntentCancel && session.State == StateSearching {
			clearSearchContext(session.Context)
			delete(session.Context, "activeProductId")
			delete(session.Context, "orderRef")
		}

		session.State = nextState

		response = c.responder.Generate(responseType, session, result)
		response.State = session.State
		response.Intent = result.Intent
		response.Entities = result.Entities

		session.AddTurn("assistant", response.Text, c.sessions.historyLimit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

// confirmDelivery moves a paid order to delivered and tells the seller their
// money is released
func (c *ConversationService) confirmDelivery(userID, reference string) *Response {
	order, err := c.store.GetOrder(reference)
	if err != nil || order.BuyerPhone != userID {
		return &Response{
			Text:    fmt.Sprintf("Order %s was not found among your orders.", reference),
			Actions: []string{"My orders", "Help"},
		}
	}
	if order.Status != models.OrderStatusPaid {
		return &Response{
			Text:    fmt.Sprintf("Order %s is not waiting for a delivery confirmation (status: %s).", order.Reference, order.Status),
			Actions: []string{"Help"},
		}
	}

	order.Status = models.OrderStatusDelivered
	if err := c.store.UpdateOrder(order); err != nil {
		log.Printf("Failed to mark order %s delivered: %v", order.Reference, err)
		return degraded()
	}

	if twilio := GetTwilioService(); twilio != nil {
		if listing, err := c.store.GetListing(order.ListingID); err == nil {
			if seller, err := c.store.GetSeller(listing.SellerID); err == nil {
				msg := fmt.Sprintf(`💸 *Escrow Released!*

The buyer confirmed delivery of *%s* (order %s). %s is on its way to you.`,
					listing.Title, order.Reference, formatAmount(order.Amount, order.Currency))
				_ = twilio.SendWhatsAppMessage(seller.Phone, msg)
			}
		}
	}

	// Move the conversation into the rating flow for this purchase
	if err := c.sessions.WithSession(userID, func(session *Session) error {
		session.State = StateRating
		session.Context["activeProductId"] = order.ListingID
		return nil
	}); err != nil {
		log.Printf("Failed to update session for %s: %v", userID, err)
	}

	log.Printf("Order %s confirmed delivered by %s", order.Reference, userID)
	return &Response{
		Text: fmt.Sprintf(`✅ *Delivery Confirmed!*

Order %s is complete and the seller has been paid.

⭐ How was your experience? Rate the seller from 1 to 5 stars.`, order.Reference),
		Actions: []string{"⭐⭐⭐⭐⭐", "Shop more"},
		State:   StateRating,
		Intent:  IntentTrackOrder,
	}
}

// extract tries the AI path first and falls back to the rule pipeline on any
// failure. Both produce the same ExtractionResult shape, so the rest of the
// turn does not care which one answered.
func (c *ConversationService) extract(ctx context.Context, session *Session, message string) ExtractionResult {
	if c.assistant != nil {
		result, err := c.assistant.ExtractIntent(ctx, session.History, message)
		if err == nil {
			return result
		}
		log.Printf("⚠️ AI extraction failed for %s, using rules: %v", session.UserID, err)
	}
	return c.extractor.Extract(message)
}

// normalizeResult downgrades intents whose required entity is missing, so the
// state machine never transitions on a half-formed request
func normalizeResult(session *Session, result ExtractionResult) ExtractionResult {
	if result.Entities == nil {
		result.Entities = map[string]interface{}{}
	}

	switch result.Intent {
	case IntentSelectProduct:
		if _, ok := result.Entities["productId"]; !ok {
			result.Intent = IntentUnknown
		}
	case IntentSubmitRating:
		if _, ok := result.Entities["rating"]; !ok {
			result.Intent = IntentUnknown
		}
	case IntentBuy, IntentContactSeller:
		// Buying needs a product in hand, either from this message or from
		// an earlier selection
		if _, ok := result.Entities["productId"]; !ok {
			if _, ok := session.Context["activeProductId"]; !ok && session.State != StateViewingProduct {
				result.Intent = IntentSearch
			}
		}
	}
	return result
}

func clearSearchContext(ctx map[string]interface{}) {
	for _, key := range []string{"query", "category", "location", "minPrice", "maxPrice", "exactPrice", "currency"} {
		delete(ctx, key)
	}
}
