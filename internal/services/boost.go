package services

import (
	"fmt"
	"log"
	"strconv"

	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// Boost pricing: flat daily rate in FCFA
const boostDailyPrice = 500

const maxBoostDays = 30

// BoostService sells time-limited ranking priority for listings
type BoostService struct {
	store          storage.Store
	paymentService *PaymentService
}

// NewBoostService creates a new boost service
func NewBoostService(store storage.Store, paymentService *PaymentService) *BoostService {
	return &BoostService{store: store, paymentService: paymentService}
}

// Boost starts a boost purchase for a listing and returns the text to send back
func (b *BoostService) Boost(sellerPhone, listingID, daysArg string) string {
	days, err := strconv.Atoi(daysArg)
	if err != nil || days < 1 || days > maxBoostDays {
		return fmt.Sprintf("Days must be a number between 1 and %d.\nUsage: !boost <listing-id> <days>", maxBoostDays)
	}

	listing, err := b.store.GetListing(listingID)
	if err != nil || listing == nil {
		return fmt.Sprintf("Listing #%s was not found. Check the id and try again.", listingID)
	}

	seller, err := b.store.GetSellerByPhone(sellerPhone)
	if err != nil || seller == nil || seller.ID != listing.SellerID {
		return "You can only boost your own listings."
	}

	price := float64(days * boostDailyPrice)
	reference := fmt.Sprintf("BST-%s-%d", listingID, days)

	payment, err := b.paymentService.CreateCheckoutPayment(price, sellerPhone, reference)
	if err != nil {
		log.Printf("Failed to initiate boost payment for listing %s: %v", listingID, err)
		return "😕 Payment could not be started. Please try again later."
	}

	return fmt.Sprintf(`🚀 *Boost %s*

*Duration:* %d day(s)
*Price:* %s

Pay here to activate:
%s

Your listing jumps to the top of search results once payment is confirmed.`,
		listing.Title, days, formatAmount(price, CurrencyFCFA), payment.PaymentURL)
}
