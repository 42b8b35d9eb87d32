package services

// Conversation states
const (
	StateInitial        = "INITIAL"
	StateSearching      = "SEARCHING"
	StateViewingProduct = "VIEWING_PRODUCT"
	StateCheckout       = "CHECKOUT"
	StateRating         = "RATING"
	StateHelp           = "HELP"
)

// Response types the generator knows how to render
const (
	ResponseWelcome             = "welcome"
	ResponseHelp                = "help"
	ResponseSearchResults       = "search_results"
	ResponseProductView         = "product_view"
	ResponseCheckout            = "checkout"
	ResponseContactSeller       = "contact_seller"
	ResponsePaymentConfirmation = "payment_confirmation"
	ResponseRatingSubmission    = "rating_submission"
	ResponseRatingPrompt        = "rating_prompt"
	ResponseCancelled           = "cancelled"
	ResponseMenu                = "menu"
)

// Resolve maps (current state, intent) to the next state and the response to
// render. Unknown or unreachable states reset to INITIAL: that row is the
// universal safety net, never a crash.
func Resolve(state, intent string) (string, string) {
	switch state {
	case StateInitial:
		switch intent {
		case IntentSearch:
			return StateSearching, ResponseSearchResults
		case IntentHelp:
			return StateInitial, ResponseHelp
		default:
			return StateInitial, ResponseWelcome
		}

	case StateSearching:
		switch intent {
		case IntentSelectProduct:
			return StateViewingProduct, ResponseProductView
		case IntentCancel:
			return StateInitial, ResponseCancelled
		default:
			// refine_search and anything else re-runs the search with
			// the merged context
			return StateSearching, ResponseSearchResults
		}

	case StateViewingProduct:
		switch intent {
		case IntentBuy, IntentCheckout:
			return StateCheckout, ResponseCheckout
		case IntentContactSeller:
			return StateViewingProduct, ResponseContactSeller
		default:
			return StateViewingProduct, ResponseProductView
		}

	case StateCheckout:
		switch intent {
		case IntentConfirmPayment:
			return StateCheckout, ResponsePaymentConfirmation
		case IntentCancel:
			return StateViewingProduct, ResponseProductView
		default:
			return StateCheckout, ResponseCheckout
		}

	case StateRating:
		switch intent {
		case IntentSubmitRating:
			return StateInitial, ResponseRatingSubmission
		default:
			return StateRating, ResponseRatingPrompt
		}

	case StateHelp:
		switch intent {
		case IntentSearch, IntentRefineSearch:
			return StateSearching, ResponseSearchResults
		default:
			return StateInitial, ResponseHelp
		}

	default:
		return StateInitial, ResponseMenu
	}
}

// MergeEntities folds freshly extracted entities into the session context.
// Later keys overwrite earlier ones of the same name. activeProductId is set
// only on explicit product selection and cleared only by cancel from
// SEARCHING; both are handled by the orchestrator, not here.
func MergeEntities(ctx map[string]interface{}, entities map[string]interface{}) {
	for k, v := range entities {
		if k == "productId" || k == "rating" {
			continue // turn-scoped, not part of the rolling search context
		}
		ctx[k] = v
	}
}
