package services

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// WhatsApp quick-reply button limit. Responses may carry more candidate
// actions; this transport boundary silently truncates to the platform cap.
const maxWhatsAppActions = 3

var (
	twilioServiceInstance *TwilioService
	twilioServiceOnce     sync.Once
)

// SetTwilioService sets the global twilio service instance
func SetTwilioService(ts *TwilioService) {
	twilioServiceInstance = ts
}

// GetTwilioService returns the global twilio service instance
func GetTwilioService() *TwilioService {
	return twilioServiceInstance
}

type TwilioService struct {
	client *twilio.RestClient
	from   string // Twilio WhatsApp number, "whatsapp:+14155238886"
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
	}, nil
}

// SendWhatsAppMessage sends a plain WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// SendResponse delivers a conversational response, rendering at most three
// action buttons as numbered quick-reply lines
func (t *TwilioService) SendResponse(to string, response *Response) error {
	if response == nil || response.Text == "" {
		return nil
	}
	return t.SendWhatsAppMessage(to, RenderResponseText(response))
}

// RenderResponseText flattens a response into WhatsApp body text. Exported so
// the test webhook can echo exactly what would go out.
func RenderResponseText(response *Response) string {
	actions := response.Actions
	if len(actions) > maxWhatsAppActions {
		actions = actions[:maxWhatsAppActions]
	}

	if len(actions) == 0 {
		return response.Text
	}

	var b strings.Builder
	b.WriteString(response.Text)
	b.WriteString("\n")
	for i, action := range actions {
		b.WriteString(fmt.Sprintf("\n%d️⃣ %s", i+1, action))
	}
	return b.String()
}
