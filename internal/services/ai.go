package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const aiModel = "gemini-2.0-flash"

// aiTimeout bounds the model call so a slow provider never stalls a chat turn
const aiTimeout = 6 * time.Second

const aiSystemPrompt = `You are the language-understanding layer of a WhatsApp marketplace bot for Cameroon.
Given the user's message, answer with ONLY a JSON object, no prose:
{"intent": "...", "entities": {...}}

Valid intents: search, refine_search, select_product, buy, checkout, confirm_payment,
contact_seller, track_order, submit_rating, cancel, help, unknown.

Entity keys (include only what the message contains):
query (string), category (string), location (string),
minPrice (number), maxPrice (number), exactPrice (number), currency ("FCFA"|"USD"|"EUR"),
productId (string of digits), rating (integer 1-5).

Prices written like "50.000" or "50,000" or "50 000" are thousands-separated FCFA amounts.`

// AIAssistant wraps the Gemini API for intent extraction. Optional: when
// GEMINI_API_KEY is unset the orchestrator runs on the rule-based extractor alone.
type AIAssistant struct {
	client *genai.Client
	model  string
}

// NewAIAssistant creates the assistant, or returns nil when no API key is configured
func NewAIAssistant(ctx context.Context) *AIAssistant {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("ℹ️ GEMINI_API_KEY not set, AI extraction disabled")
		return nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		log.Printf("⚠️ Failed to create Gemini client: %v", err)
		return nil
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = aiModel
	}

	log.Printf("✅ AI extraction enabled (%s)", model)
	return &AIAssistant{client: client, model: model}
}

// ExtractIntent asks the model to classify the message. Recent turns give it
// enough context to resolve references like "the second one".
func (a *AIAssistant) ExtractIntent(ctx context.Context, history []Turn, message string) (ExtractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString(aiSystemPrompt)
	prompt.WriteString("\n\nConversation so far:\n")
	for _, turn := range recentTurns(history, 6) {
		fmt.Fprintf(&prompt, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&prompt, "\nUser message: %s", message)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.String(), genai.RoleUser),
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	result, ok := parseExtractionJSON(text)
	if !ok {
		return ExtractionResult{}, fmt.Errorf("no parseable JSON in model output")
	}
	return result, nil
}

// parseExtractionJSON digs a JSON object out of the model's reply, tolerating
// markdown fences and surrounding prose
func parseExtractionJSON(text string) (ExtractionResult, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ExtractionResult{}, false
	}

	var parsed struct {
		Intent   string                 `json:"intent"`
		Entities map[string]interface{} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return ExtractionResult{}, false
	}
	if !validIntent(parsed.Intent) {
		return ExtractionResult{}, false
	}
	if parsed.Entities == nil {
		parsed.Entities = map[string]interface{}{}
	}
	return ExtractionResult{Intent: parsed.Intent, Entities: parsed.Entities}, true
}

func validIntent(intent string) bool {
	switch intent {
	case IntentSearch, IntentRefineSearch, IntentSelectProduct, IntentBuy,
		IntentCheckout, IntentConfirmPayment, IntentContactSeller, IntentTrackOrder,
		IntentSubmitRating, IntentCancel, IntentHelp, IntentUnknown:
		return true
	}
	return false
}

func recentTurns(history []Turn, n int) []Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
