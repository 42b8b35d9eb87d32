package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSearchWithPriceAndLocation(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("TVs under 50000 FCFA in Douala")

	assert.Equal(t, IntentSearch, result.Intent)
	assert.Equal(t, float64(50000), result.Entities["maxPrice"])
	assert.Equal(t, CurrencyFCFA, result.Entities["currency"])
	assert.Equal(t, "Douala", result.Entities["location"])
	assert.Equal(t, "TVs", result.Entities["query"])
	assert.NotContains(t, result.Entities, "category")
	assert.NotContains(t, result.Entities, "minPrice")
	assert.NotContains(t, result.Entities, "exactPrice")
}

func TestExtractPriceRange(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("laptops between 150000 FCFA and 300000 FCFA")

	min, ok := result.Entities["minPrice"].(float64)
	require.True(t, ok)
	max, ok := result.Entities["maxPrice"].(float64)
	require.True(t, ok)
	assert.LessOrEqual(t, min, max)
	assert.Equal(t, float64(150000), min)
	assert.Equal(t, float64(300000), max)
	assert.Equal(t, CurrencyFCFA, result.Entities["currency"])
}

func TestExtractRangeCurrencyFollowsLowerMatch(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("anything from 20 USD to 30000 FCFA")

	// 20 USD sorts below 30000 FCFA numerically, so its currency wins
	assert.Equal(t, float64(20), result.Entities["minPrice"])
	assert.Equal(t, float64(30000), result.Entities["maxPrice"])
	assert.Equal(t, CurrencyUSD, result.Entities["currency"])
}

func TestExtractSinglePriceQualifiers(t *testing.T) {
	e := NewExtractor()

	under := e.Extract("phones under 20000 FCFA")
	assert.Equal(t, float64(20000), under.Entities["maxPrice"])
	assert.NotContains(t, under.Entities, "minPrice")
	assert.NotContains(t, under.Entities, "exactPrice")

	over := e.Extract("phones over 20000 FCFA")
	assert.Equal(t, float64(20000), over.Entities["minPrice"])
	assert.NotContains(t, over.Entities, "maxPrice")

	exact := e.Extract("the phone costs 20000 FCFA")
	assert.Equal(t, float64(20000), exact.Entities["exactPrice"])
	assert.NotContains(t, exact.Entities, "minPrice")
	assert.NotContains(t, exact.Entities, "maxPrice")
}

func TestExtractBothQualifierFamiliesPrefersUnder(t *testing.T) {
	e := NewExtractor()

	// Both families appear: the under family is checked first and wins
	result := e.Extract("over my budget, keep it under 5000 FCFA")

	assert.Equal(t, float64(5000), result.Entities["maxPrice"])
	assert.NotContains(t, result.Entities, "minPrice")
}

func TestExtractThousandSeparatedPrices(t *testing.T) {
	e := NewExtractor()

	for _, msg := range []string{
		"fridge for 250.000 FCFA",
		"fridge for 250,000 FCFA",
		"fridge for 250 000 FCFA",
	} {
		result := e.Extract(msg)
		assert.Equal(t, float64(250000), result.Entities["exactPrice"], "message: %s", msg)
	}
}

func TestExtractCurrencyAliases(t *testing.T) {
	e := NewExtractor()

	cases := map[string]string{
		"shoes for 5000 francs": CurrencyFCFA,
		"shoes for 5000 frs":    CurrencyFCFA,
		"shoes for 5000 xaf":    CurrencyFCFA,
		"shoes for 20 dollars":  CurrencyUSD,
		"shoes for 20 $":        CurrencyUSD,
		"shoes for 15 euros":    CurrencyEUR,
	}
	for msg, want := range cases {
		result := e.Extract(msg)
		assert.Equal(t, want, result.Entities["currency"], "message: %s", msg)
	}
}

func TestExtractProductIDForms(t *testing.T) {
	e := NewExtractor()

	for _, msg := range []string{"show me product 7", "item #7 please", "listing 7", "#7"} {
		result := e.Extract(msg)
		assert.Equal(t, "7", result.Entities["productId"], "message: %s", msg)
		assert.Equal(t, IntentSelectProduct, result.Intent, "message: %s", msg)
	}
}

func TestExtractProductIDNotFromPrice(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("the price is 50,000 FCFA")

	assert.NotContains(t, result.Entities, "productId")
	assert.NotEqual(t, IntentSelectProduct, result.Intent)
}

func TestExtractProductIDIgnoresPriceDigits(t *testing.T) {
	e := NewExtractor()

	// "item 5000" looks like a product reference, but 5000 belongs to the price
	result := e.Extract("selling item 5000 FCFA")

	assert.NotContains(t, result.Entities, "productId")
	assert.Equal(t, IntentSearch, result.Intent)
	assert.Equal(t, float64(5000), result.Entities["exactPrice"])
	assert.Equal(t, CurrencyFCFA, result.Entities["currency"])

	// An id next to a price still resolves when the spans do not overlap
	result = e.Extract("product 7 costs 5000 FCFA")
	assert.Equal(t, "7", result.Entities["productId"])
	assert.Equal(t, IntentSelectProduct, result.Intent)
}

func TestExtractRatingDigits(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("4 stars")
	assert.Equal(t, 4, result.Entities["rating"])
	assert.Equal(t, IntentSubmitRating, result.Intent)

	clamped := e.Extract("I rate 9")
	assert.Equal(t, 5, clamped.Entities["rating"])
}

func TestExtractRatingGlyphs(t *testing.T) {
	e := NewExtractor()

	for stars := 1; stars <= 5; stars++ {
		msg := ""
		for i := 0; i < stars; i++ {
			msg += "⭐"
		}
		result := e.Extract(msg)
		assert.Equal(t, stars, result.Entities["rating"], "glyph count %d", stars)
	}

	none := e.Extract("⭐⭐⭐⭐⭐⭐")
	assert.NotContains(t, none.Entities, "rating")

	zero := e.Extract("no stars here")
	assert.NotContains(t, zero.Entities, "rating")
}

// The rule table is conjunctive and ordered: the first entry whose patterns
// all match wins. These cases pin that order down.
func TestIntentRuleOrder(t *testing.T) {
	e := NewExtractor()

	cases := map[string]string{
		"hello":                      IntentHelp,
		"help me find shoes":         IntentHelp, // help is anchored first
		"cancel the order":           IntentCancel,
		"I have sent the payment":    IntentConfirmPayment,
		"checkout please":            IntentCheckout,
		"I want to buy it":           IntentBuy,
		"contact the seller":         IntentContactSeller,
		"where is my order":          IntentTrackOrder,
		"show me cheaper ones":       IntentRefineSearch,
		"find me a generator":        IntentSearch,
	}
	for msg, want := range cases {
		result := e.Extract(msg)
		assert.Equal(t, want, result.Intent, "message: %s", msg)
	}
}

func TestIntentDefaults(t *testing.T) {
	e := NewExtractor()

	// No rule fires and the remainder is too short to become a query
	assert.Equal(t, IntentHelp, e.Extract("ok").Intent)

	// No rule fires but a search entity exists
	assert.Equal(t, IntentSearch, e.Extract("generators in Bonaberi").Intent)
}

func TestExtractCategoryPhrase(t *testing.T) {
	e := NewExtractor()

	result := e.Extract("I am looking for a washing machine in Yaoundé")

	assert.Equal(t, "washing machine", result.Entities["category"])
	assert.Equal(t, "washing machine", result.Entities["query"])
	assert.Equal(t, "Yaoundé", result.Entities["location"])
}

func TestExtractIsDeterministic(t *testing.T) {
	e := NewExtractor()

	msg := "TVs under 50000 FCFA in Douala"
	first := e.Extract(msg)
	second := e.Extract(msg)

	assert.Equal(t, first, second)
}
