package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Intents the classifier can produce. The set is closed: anything the rules
// cannot place falls back to search (entities present) or help (nothing at all).
const (
	IntentSearch         = "search"
	IntentHelp           = "help"
	IntentSelectProduct  = "select_product"
	IntentBuy            = "buy"
	IntentContactSeller  = "contact_seller"
	IntentCancel         = "cancel"
	IntentRefineSearch   = "refine_search"
	IntentSubmitRating   = "submit_rating"
	IntentConfirmPayment = "confirm_payment"
	IntentCheckout       = "checkout"
	IntentTrackOrder     = "track_order"
	IntentUnknown        = "unknown"
)

// Canonical currencies
const (
	CurrencyFCFA = "FCFA"
	CurrencyUSD  = "USD"
	CurrencyEUR  = "EUR"
)

// ExtractionResult is what the extractor hands to the resolver. Transient,
// never persisted.
type ExtractionResult struct {
	Intent   string                 `json:"intent"`
	Entities map[string]interface{} `json:"entities"`
}

// Extractor turns raw message text into an intent plus structured entities.
// Pure and deterministic: it is the fallback when the AI path is down, so it
// must not do I/O.
type Extractor struct{}

// NewExtractor creates a new rule-based extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

var (
	priceRe = regexp.MustCompile(`(?i)(\d{1,3}(?:[.,\s]\d{3})+|\d+(?:[.,]\d{1,2})?)\s*(fcfa|cfa|xaf|francs?|frs|usd|dollars?|\$|eur|euros?|€)`)

	underRe = regexp.MustCompile(`(?i)\b(?:under|less than|below|at most|cheaper than|max(?:imum)?)\b`)
	overRe  = regexp.MustCompile(`(?i)\b(?:over|more than|above|min(?:imum)?|at least|starting from)\b`)

	locationRe = regexp.MustCompile(`(?i)\b(?:in|at|near|around)\s+([^.,!?;\n]+)`)
	categoryRe = regexp.MustCompile(`(?i)\b(?:looking for|searching for|need|want|find)\s+(?:a |an |some |to buy )?([^.,!?;\n]+)`)

	productRe     = regexp.MustCompile(`(?i)\b(?:product|item|listing)\s*#?\s*(\d+)`)
	productHashRe = regexp.MustCompile(`#(\d+)`)

	ratingDigitRe   = regexp.MustCompile(`(?i)\b(\d+)\s*(?:stars?\b|/\s*5\b|out of 5)`)
	ratingKeywordRe = regexp.MustCompile(`(?i)\b(?:rate|rated|rating)\s*:?\s*(\d+)`)

	thousandSepRe = regexp.MustCompile(`^\d{1,3}(?:[.,\s]\d{3})+$`)
	digitsRe      = regexp.MustCompile(`\d`)
)

// Words that terminate a location or category phrase
var phraseStopWords = map[string]bool{
	"and": true, "or": true, "but": true, "for": true, "with": true,
	"under": true, "over": true, "below": true, "above": true,
	"less": true, "more": true, "than": true, "between": true,
	"in": true, "at": true, "near": true, "around": true, "from": true,
	"max": true, "maximum": true, "min": true, "minimum": true,
}

// Phrases stripped before deriving a free-text query
var fillerPhrases = []string{
	"i want to", "i would like to", "i am", "i'm", "can you", "could you",
	"do you have", "show me", "i want", "i need", "please", "hello", "hi",
	"looking for", "searching for",
}

type intentRule struct {
	intent   string
	patterns []*regexp.Regexp
}

// Ordered rule table. An entry matches only when ALL of its patterns match;
// the first fully-matching entry wins.
var intentRules = []intentRule{
	{IntentHelp, compileAll(`(?i)^\s*(?:help|menu|start|hi|hello|hey|bonjour|salut)\b`)},
	{IntentCancel, compileAll(`(?i)\b(?:cancel|stop|quit|never\s?mind|go back|forget it)\b`)},
	{IntentConfirmPayment, compileAll(
		`(?i)\b(?:paid|sent|transferred|done|completed)\b`,
		`(?i)\b(?:payment|money|paid|transfer)\b`)},
	{IntentCheckout, compileAll(`(?i)\b(?:checkout|check\s?out|proceed to pay)\b`)},
	{IntentBuy, compileAll(
		`(?i)\b(?:buy|purchase|order|take)\b`,
		`(?i)\b(?:it|this|that|one|now|buy|purchase)\b`)},
	{IntentContactSeller, compileAll(
		`(?i)\b(?:contact|talk|chat|message|call|reach)\b`,
		`(?i)\b(?:seller|vendor|owner)\b`)},
	{IntentTrackOrder, compileAll(
		`(?i)\b(?:track|where|status)\b`,
		`(?i)\b(?:order|delivery|package|purchase)\b`)},
	{IntentRefineSearch, compileAll(`(?i)\b(?:cheaper|costlier|another|different|other ones|instead|refine|filter)\b`)},
	{IntentSearch, compileAll(
		`(?i)\b(?:search|find|show|browse|looking|need|want|get)\b`,
		`(?i)\b(?:for|me|some|a|an|any|to)\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

type priceMatch struct {
	amount   float64
	currency string
	raw      string
}

// Extract runs the full extraction pipeline over one message
func (e *Extractor) Extract(message string) ExtractionResult {
	entities := make(map[string]interface{})
	msg := strings.TrimSpace(message)

	prices := extractPrices(msg)
	switch {
	case len(prices) >= 2:
		sort.Slice(prices, func(i, j int) bool { return prices[i].amount < prices[j].amount })
		entities["minPrice"] = prices[0].amount
		entities["maxPrice"] = prices[len(prices)-1].amount
		entities["currency"] = prices[0].currency
	case len(prices) == 1:
		// Qualifier heuristic: the "under" family is checked before the
		// "over" family. When both appear in one message the first family
		// wins; this is a known ambiguity, kept deliberately.
		entities["currency"] = prices[0].currency
		if underRe.MatchString(msg) {
			entities["maxPrice"] = prices[0].amount
		} else if overRe.MatchString(msg) {
			entities["minPrice"] = prices[0].amount
		} else {
			entities["exactPrice"] = prices[0].amount
		}
	}

	if loc := extractPhrase(locationRe, msg); loc != "" {
		entities["location"] = loc
	}
	if cat := extractPhrase(categoryRe, msg); cat != "" {
		entities["category"] = cat
		entities["query"] = cat
	} else if q := deriveQuery(msg, prices); q != "" {
		entities["query"] = q
	}

	if id := extractProductID(msg); id != "" {
		entities["productId"] = id
	}
	if rating, ok := extractRating(msg); ok {
		entities["rating"] = rating
	}

	return ExtractionResult{
		Intent:   classifyIntent(msg, entities),
		Entities: entities,
	}
}

func extractPrices(msg string) []priceMatch {
	var prices []priceMatch
	for _, m := range priceRe.FindAllStringSubmatch(msg, -1) {
		amount, ok := parsePriceNumber(m[1])
		if !ok {
			continue
		}
		prices = append(prices, priceMatch{
			amount:   amount,
			currency: canonicalCurrency(m[2]),
			raw:      m[0],
		})
	}
	return prices
}

func parsePriceNumber(raw string) (float64, bool) {
	if thousandSepRe.MatchString(raw) {
		var digits strings.Builder
		for _, r := range raw {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		v, err := strconv.ParseFloat(digits.String(), 64)
		return v, err == nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	return v, err == nil
}

func canonicalCurrency(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "usd", "$", "dollar", "dollars":
		return CurrencyUSD
	case "eur", "€", "euro", "euros":
		return CurrencyEUR
	default: // fcfa, cfa, xaf, franc(s), frs
		return CurrencyFCFA
	}
}

// extractPhrase applies a prepositional pattern and trims the captured tail
// at the first stop word or numeric token. First match wins.
func extractPhrase(re *regexp.Regexp, msg string) string {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	var kept []string
	for i, word := range strings.Fields(m[1]) {
		lower := strings.ToLower(word)
		if i == 0 && len(kept) == 0 && (lower == "a" || lower == "an" || lower == "some" || lower == "the") {
			continue
		}
		if phraseStopWords[lower] || digitsRe.MatchString(word) {
			break
		}
		kept = append(kept, word)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// deriveQuery strips recognised price/location substrings, qualifiers and
// filler phrases; a non-trivial remainder becomes the free-text query.
func deriveQuery(msg string, prices []priceMatch) string {
	q := msg
	for _, p := range prices {
		q = strings.Replace(q, p.raw, " ", 1)
	}
	if loc := locationRe.FindString(q); loc != "" {
		q = strings.Replace(q, loc, " ", 1)
	}
	q = underRe.ReplaceAllString(q, " ")
	q = overRe.ReplaceAllString(q, " ")

	lower := strings.ToLower(q)
	for _, filler := range fillerPhrases {
		for {
			idx := strings.Index(lower, filler)
			if idx < 0 {
				break
			}
			q = q[:idx] + " " + q[idx+len(filler):]
			lower = strings.ToLower(q)
		}
	}

	q = strings.Trim(q, " \t\n.,!?;:-")
	q = strings.Join(strings.Fields(q), " ")
	if len(q) <= 2 {
		return ""
	}
	return q
}

// extractProductID finds a listing reference. Digits that sit inside a price
// match ("item 5000 FCFA") are the price, not an id, and are skipped.
func extractProductID(msg string) string {
	priceSpans := priceRe.FindAllStringIndex(msg, -1)
	for _, re := range []*regexp.Regexp{productRe, productHashRe} {
		for _, m := range re.FindAllStringSubmatchIndex(msg, -1) {
			if overlapsAny(m[2], m[3], priceSpans) {
				continue
			}
			return msg[m[2]:m[3]]
		}
	}
	return ""
}

func overlapsAny(start, end int, spans [][]int) bool {
	for _, span := range spans {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

func extractRating(msg string) (int, bool) {
	for _, re := range []*regexp.Regexp{ratingDigitRe, ratingKeywordRe} {
		if m := re.FindStringSubmatch(msg); m != nil {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if v < 1 {
				v = 1
			}
			if v > 5 {
				v = 5
			}
			return v, true
		}
	}

	// Star glyphs: a run of 1-5 sets the rating, anything else is ignored
	stars := strings.Count(msg, "⭐") + strings.Count(msg, "★")
	if stars >= 1 && stars <= 5 {
		return stars, true
	}
	return 0, false
}

func classifyIntent(msg string, entities map[string]interface{}) string {
	// Short-circuits take priority over the rule table
	if _, ok := entities["productId"]; ok {
		return IntentSelectProduct
	}
	if _, ok := entities["rating"]; ok {
		return IntentSubmitRating
	}

	for _, rule := range intentRules {
		all := true
		for _, re := range rule.patterns {
			if !re.MatchString(msg) {
				all = false
				break
			}
		}
		if all {
			return rule.intent
		}
	}

	if hasSearchEntity(entities) {
		return IntentSearch
	}
	return IntentHelp
}

func hasSearchEntity(entities map[string]interface{}) bool {
	for _, key := range []string{"query", "category", "location", "minPrice", "maxPrice", "exactPrice"} {
		if _, ok := entities[key]; ok {
			return true
		}
	}
	return false
}
