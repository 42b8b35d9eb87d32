package services

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// Escrow fee charged on top of the listing price, held until the buyer
// confirms receipt
const escrowFeeRate = 0.05

const searchResultLimit = 5

// Response is a rendered conversational reply plus its turn metadata
type Response struct {
	Text     string                 `json:"text"`
	Actions  []string               `json:"actions"`
	State    string                 `json:"state"`
	Intent   string                 `json:"intent"`
	Entities map[string]interface{} `json:"entities"`
}

// Responder builds user-facing replies from the marketplace read-model. It
// never returns an error outward: every internal failure degrades to a
// user-safe message with retry/help actions.
type Responder struct {
	store          storage.Store
	paymentService *PaymentService
}

// NewResponder creates a new response generator
func NewResponder(store storage.Store, paymentService *PaymentService) *Responder {
	return &Responder{
		store:          store,
		paymentService: paymentService,
	}
}

// Generate renders the response for a resolved turn. session holds the
// accumulated context; result carries the turn-scoped entities (productId,
// rating).
func (r *Responder) Generate(responseType string, session *Session, result ExtractionResult) *Response {
	switch responseType {
	case ResponseSearchResults:
		return r.searchResults(session)
	case ResponseProductView:
		return r.productView(session, result)
	case ResponseCheckout:
		return r.checkout(session)
	case ResponseContactSeller:
		return r.contactSeller(session)
	case ResponsePaymentConfirmation:
		return r.paymentConfirmation(session)
	case ResponseRatingSubmission:
		return r.ratingSubmission(session, result)
	case ResponseRatingPrompt:
		return &Response{
			Text:    "⭐ How was your experience? Please rate the seller from 1 to 5 stars.\n\nExample: 4 stars",
			Actions: []string{"⭐⭐⭐⭐⭐", "Cancel"},
		}
	case ResponseCancelled:
		return &Response{
			Text:    "✅ Search cancelled. What would you like to do next?",
			Actions: []string{"New search", "Help"},
		}
	case ResponseHelp:
		return helpResponse()
	case ResponseWelcome:
		return welcomeResponse()
	default:
		// Unrecognised type: generic fallback menu
		return &Response{
			Text:    "🛒 What would you like to do?",
			Actions: []string{"Search products", "Help"},
		}
	}
}

func welcomeResponse() *Response {
	return &Response{
		Text: `🛒 *Welcome to KamerMarket!*
Buy and sell safely on WhatsApp.

Tell me what you're looking for, for example:
- "TVs under 50000 FCFA in Douala"
- "I need a phone"

Your money stays in escrow until you confirm delivery. 🔒`,
		Actions: []string{"Search products", "Help"},
	}
}

func helpResponse() *Response {
	return &Response{
		Text: `ℹ️ *How KamerMarket works*

🔍 Just describe what you want:
"laptops in Yaoundé under 200000 FCFA"

📦 Reply with a product number to see details
💰 Buy with escrow protection (5% fee)
⭐ Rate sellers after delivery

Type what you're looking for to start!`,
		Actions: []string{"Start searching", "Contact support"},
	}
}

// degraded is the uniform downstream-failure reply: brief apology, concrete
// next actions, no internal detail
func degraded() *Response {
	return &Response{
		Text:    "😔 Sorry, something went wrong on our side. Please try again in a moment.",
		Actions: []string{"Try again", "Help"},
	}
}

func notFoundResponse() *Response {
	return &Response{
		Text:    "😔 That product could not be found. It may have been sold already.",
		Actions: []string{"Search again", "Help"},
	}
}

func (r *Responder) searchResults(session *Session) *Response {
	search := searchFromContext(session.Context)
	search.Limit = searchResultLimit

	listings, err := r.store.SearchListings(search)
	if err != nil {
		log.Printf("Search failed for %s: %v", session.UserID, err)
		return degraded()
	}

	if len(listings) == 0 {
		return &Response{
			Text:    fmt.Sprintf("😔 No products found%s.\n\nTry different keywords, another location, or a wider price range.", describeFilters(search)),
			Actions: []string{"New search", "Help"},
		}
	}

	var b strings.Builder
	b.WriteString("🔍 *Here's what I found:*\n")
	actions := make([]string, 0, len(listings)+1)
	for i, listing := range listings {
		line := fmt.Sprintf("\n%d. *%s* — %s", i+1, listing.Title, formatAmount(listing.Price, listing.Currency))
		if listing.Location != "" {
			line += " 📍 " + listing.Location
		}
		b.WriteString(line)
		if len(actions) < searchResultLimit {
			actions = append(actions, fmt.Sprintf("View #%s", listing.ID))
		}
	}
	b.WriteString("\n\nReply with a number (e.g. \"product " + listings[0].ID + "\") to see details.")
	b.WriteString("\nOr refine your search: \"cheaper\", \"in Douala\", \"under 20000 FCFA\"...")
	actions = append(actions, "Refine search")

	return &Response{Text: b.String(), Actions: actions}
}

func (r *Responder) productView(session *Session, result ExtractionResult) *Response {
	listingID := activeProductID(session, result)
	if listingID == "" {
		return notFoundResponse()
	}

	listing, err := r.store.GetListing(listingID)
	if err != nil {
		return notFoundResponse()
	}

	if err := r.store.IncrementListingViews(listing.ID); err != nil {
		log.Printf("Failed to bump views for listing %s: %v", listing.ID, err)
	}

	sellerLine := ""
	if seller, err := r.store.GetSeller(listing.SellerID); err == nil {
		sellerLine = fmt.Sprintf("\n👤 *Seller:* %s (⭐ %.1f)", seller.Name, seller.Rating)
	}

	text := fmt.Sprintf(`📦 *%s*

💰 *Price:* %s
📍 *Location:* %s
🏷️ *Category:* %s%s

%s

Ready to buy? Your payment is held in escrow until you confirm delivery.`,
		listing.Title,
		formatAmount(listing.Price, listing.Currency),
		orDash(listing.Location),
		orDash(listing.Category),
		sellerLine,
		orDash(listing.Description))

	return &Response{
		Text:    text,
		Actions: []string{"Buy now", "Contact seller", "Back to results"},
	}
}

func (r *Responder) checkout(session *Session) *Response {
	listingID, _ := session.Context["activeProductId"].(string)
	if listingID == "" {
		return notFoundResponse()
	}

	listing, err := r.store.GetListing(listingID)
	if err != nil {
		return notFoundResponse()
	}

	fee := EscrowFee(listing.Price)
	total := listing.Price + fee
	reference := OrderReference(listing.ID)

	order := &models.Order{
		Reference:  reference,
		ListingID:  listing.ID,
		BuyerPhone: session.UserID,
		Amount:     listing.Price,
		Fee:        fee,
		Total:      total,
		Currency:   listing.Currency,
		Status:     models.OrderStatusPending,
	}
	if existing, err := r.store.GetOrder(reference); err != nil {
		if _, err := r.store.CreateOrder(order); err != nil {
			log.Printf("Failed to create order %s: %v", reference, err)
			return degraded()
		}
	} else if existing.BuyerPhone != session.UserID {
		// Another buyer got here first. Their order blocks the listing until
		// it fails or gets cancelled, then it can be taken over.
		if existing.Status != models.OrderStatusCancelled && existing.Status != models.OrderStatusFailed {
			return notFoundResponse()
		}
		if err := r.store.UpdateOrder(order); err != nil {
			log.Printf("Failed to take over order %s: %v", reference, err)
			return degraded()
		}
	}

	text := fmt.Sprintf(`🧾 *Checkout Summary*

📦 %s
💰 Price: %s
🔒 Escrow fee (5%%): %s
━━━━━━━━━━━━
*Total: %s*

*Order reference:* %s

Pay via mobile money and reply "payment sent" once done. Your money is held safely until you confirm delivery.`,
		listing.Title,
		formatAmount(listing.Price, listing.Currency),
		formatAmount(fee, listing.Currency),
		formatAmount(total, listing.Currency),
		reference)

	return &Response{
		Text:    text,
		Actions: []string{"I've sent the payment", "Cancel"},
	}
}

func (r *Responder) contactSeller(session *Session) *Response {
	listingID, _ := session.Context["activeProductId"].(string)
	if listingID == "" {
		return notFoundResponse()
	}

	listing, err := r.store.GetListing(listingID)
	if err != nil {
		return notFoundResponse()
	}

	seller, err := r.store.GetSeller(listing.SellerID)
	if err != nil {
		log.Printf("Seller lookup failed for listing %s: %v", listingID, err)
		return degraded()
	}

	text := fmt.Sprintf(`👤 *Seller Contact*

*Name:* %s
*WhatsApp:* %s
*Rating:* ⭐ %.1f (%d reviews)

💡 Tip: keep payments inside KamerMarket so escrow protects you.`,
		seller.Name, seller.Phone, seller.Rating, seller.RatingCount)

	return &Response{
		Text:    text,
		Actions: []string{"Chat with seller", "Back"},
	}
}

func (r *Responder) paymentConfirmation(session *Session) *Response {
	listingID, _ := session.Context["activeProductId"].(string)
	if listingID == "" {
		return notFoundResponse()
	}

	reference := OrderReference(listingID)
	order, err := r.store.GetOrder(reference)
	if err != nil {
		log.Printf("Order lookup failed for %s: %v", reference, err)
		return degraded()
	}

	if r.paymentService != nil && order.Status == models.OrderStatusPending {
		payment, err := r.paymentService.CreateCheckoutPayment(order.Total, session.UserID, order.Reference)
		if err != nil {
			log.Printf("Payment initiation failed for %s: %v", reference, err)
			return &Response{
				Text:    "😔 We couldn't start the payment right now. Please try again in a few minutes.",
				Actions: []string{"Try again", "Cancel"},
			}
		}
		order.Status = models.OrderStatusAwaiting
		order.PaymentRef = payment.Reference
		order.PaymentURL = payment.PaymentURL
		if err := r.store.UpdateOrder(order); err != nil {
			log.Printf("Failed to update order %s: %v", reference, err)
		}
	}

	text := fmt.Sprintf(`💳 *Payment Confirmation*

*Total:* %s
*Order reference:* %s

We're verifying your payment with the provider. You'll get a confirmation message here as soon as it clears — usually within a minute.

After delivery, confirm receipt to release the money to the seller.`,
		formatAmount(order.Total, order.Currency),
		order.Reference)

	return &Response{
		Text:    text,
		Actions: []string{"Track order", "Shop more"},
	}
}

func (r *Responder) ratingSubmission(session *Session, result ExtractionResult) *Response {
	stars, _ := result.Entities["rating"].(int)
	if stars < 1 || stars > 5 {
		return &Response{
			Text:    "Please rate from 1 to 5 stars.",
			Actions: []string{"⭐⭐⭐⭐⭐", "Cancel"},
		}
	}

	listingID, _ := session.Context["activeProductId"].(string)
	listing, err := r.store.GetListing(listingID)
	if err != nil {
		return notFoundResponse()
	}

	rating := &models.Rating{
		SellerID:   listing.SellerID,
		ListingID:  listing.ID,
		BuyerPhone: session.UserID,
		Stars:      stars,
	}
	if _, err := r.store.CreateRating(rating); err != nil {
		log.Printf("Failed to persist rating for seller %s: %v", listing.SellerID, err)
		return degraded()
	}

	sellerName := "the seller"
	if seller, err := r.store.GetSeller(listing.SellerID); err == nil {
		sellerName = seller.Name
		// Fold into the aggregate
		seller.Rating = (seller.Rating*float64(seller.RatingCount) + float64(stars)) / float64(seller.RatingCount+1)
		seller.RatingCount++
		if err := r.store.UpdateSeller(seller); err != nil {
			log.Printf("Failed to update seller rating for %s: %v", seller.ID, err)
		}
	}

	return &Response{
		Text: fmt.Sprintf(`🙏 *Thanks for your rating!*

You gave %s %s for *%s*.

Ratings keep the marketplace safe for everyone.`,
			sellerName, strings.Repeat("⭐", stars), listing.Title),
		Actions: []string{"Shop more", "My orders"},
	}
}

// EscrowFee computes the fixed-percentage escrow surcharge, rounded to the
// nearest integer currency unit
func EscrowFee(price float64) float64 {
	return math.Round(price * escrowFeeRate)
}

// OrderReference derives the order reference shown to buyers
func OrderReference(listingID string) string {
	return "MP-" + listingID
}

func activeProductID(session *Session, result ExtractionResult) string {
	if id, ok := result.Entities["productId"].(string); ok && id != "" {
		return id
	}
	id, _ := session.Context["activeProductId"].(string)
	return id
}

func searchFromContext(ctx map[string]interface{}) *models.ListingSearch {
	search := &models.ListingSearch{}
	if v, ok := ctx["query"].(string); ok {
		search.Query = v
	}
	if v, ok := ctx["category"].(string); ok {
		search.Category = v
	}
	if v, ok := ctx["location"].(string); ok {
		search.Location = v
	}
	search.MinPrice = numberFrom(ctx, "minPrice")
	search.MaxPrice = numberFrom(ctx, "maxPrice")
	if exact := numberFrom(ctx, "exactPrice"); exact > 0 {
		// An exact price becomes a tight band around the asked amount
		search.MinPrice = exact * 0.9
		search.MaxPrice = exact * 1.1
	}
	if v, ok := ctx["currency"].(string); ok {
		search.Currency = v
	}
	return search
}

// numberFrom tolerates float64 (native and JSON-decoded) and int values
func numberFrom(ctx map[string]interface{}, key string) float64 {
	switch v := ctx[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func describeFilters(search *models.ListingSearch) string {
	var parts []string
	if search.Query != "" {
		parts = append(parts, fmt.Sprintf("for \"%s\"", search.Query))
	}
	if search.Location != "" {
		parts = append(parts, "in "+search.Location)
	}
	if search.MaxPrice > 0 {
		parts = append(parts, "under "+formatAmount(search.MaxPrice, search.Currency))
	}
	if search.MinPrice > 0 && search.MaxPrice == 0 {
		parts = append(parts, "over "+formatAmount(search.MinPrice, search.Currency))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func formatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = CurrencyFCFA
	}
	return fmt.Sprintf("%.0f %s", amount, currency)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
