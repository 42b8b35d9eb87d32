package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTransitionTable(t *testing.T) {
	cases := []struct {
		state        string
		intent       string
		wantState    string
		wantResponse string
	}{
		{StateInitial, IntentSearch, StateSearching, ResponseSearchResults},
		{StateInitial, IntentHelp, StateInitial, ResponseHelp},
		{StateInitial, IntentUnknown, StateInitial, ResponseWelcome},
		{StateInitial, IntentRefineSearch, StateInitial, ResponseWelcome},
		{StateSearching, IntentSelectProduct, StateViewingProduct, ResponseProductView},
		{StateSearching, IntentRefineSearch, StateSearching, ResponseSearchResults},
		{StateSearching, IntentCancel, StateInitial, ResponseCancelled},
		{StateViewingProduct, IntentBuy, StateCheckout, ResponseCheckout},
		{StateViewingProduct, IntentCheckout, StateCheckout, ResponseCheckout},
		{StateViewingProduct, IntentContactSeller, StateViewingProduct, ResponseContactSeller},
		{StateViewingProduct, IntentUnknown, StateViewingProduct, ResponseProductView},
		{StateCheckout, IntentConfirmPayment, StateCheckout, ResponsePaymentConfirmation},
		{StateCheckout, IntentCancel, StateViewingProduct, ResponseProductView},
		{StateCheckout, IntentUnknown, StateCheckout, ResponseCheckout},
		{StateRating, IntentSubmitRating, StateInitial, ResponseRatingSubmission},
		{StateRating, IntentUnknown, StateRating, ResponseRatingPrompt},
	}

	for _, tc := range cases {
		gotState, gotResponse := Resolve(tc.state, tc.intent)
		assert.Equal(t, tc.wantState, gotState, "%s + %s", tc.state, tc.intent)
		assert.Equal(t, tc.wantResponse, gotResponse, "%s + %s", tc.state, tc.intent)
	}
}

func TestResolveUnknownStateResets(t *testing.T) {
	state, response := Resolve("CORRUPTED", IntentBuy)

	assert.Equal(t, StateInitial, state)
	assert.Equal(t, ResponseMenu, response)
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, state := range []string{StateInitial, StateSearching, StateViewingProduct, StateCheckout, StateRating} {
		for _, intent := range []string{IntentSearch, IntentBuy, IntentCancel, IntentHelp, IntentUnknown} {
			s1, r1 := Resolve(state, intent)
			s2, r2 := Resolve(state, intent)
			assert.Equal(t, s1, s2)
			assert.Equal(t, r1, r2)
		}
	}
}

func TestMergeEntitiesSkipsTurnScoped(t *testing.T) {
	ctx := map[string]interface{}{"query": "phones"}

	MergeEntities(ctx, map[string]interface{}{
		"location":  "Douala",
		"query":     "laptops",
		"productId": "7",
		"rating":    4,
	})

	assert.Equal(t, "laptops", ctx["query"])
	assert.Equal(t, "Douala", ctx["location"])
	assert.NotContains(t, ctx, "productId")
	assert.NotContains(t, ctx, "rating")
}
