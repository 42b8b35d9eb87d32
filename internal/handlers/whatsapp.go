package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/utils"
)

const (
	userQueueSize    = 16
	queueIdleTimeout = 30 * time.Minute
)

// WhatsAppHandler receives Twilio webhooks and feeds the conversation core.
// The webhook is acknowledged immediately; processing happens on a per-user
// queue so one user's messages stay ordered while users run concurrently.
type WhatsAppHandler struct {
	conversation *services.ConversationService
	registration *services.RegistrationService
	commands     *services.CommandRouter
	twilio       *services.TwilioService

	mu          sync.Mutex
	queues      map[string]chan string
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	idleTimeout time.Duration
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(conversation *services.ConversationService, registration *services.RegistrationService, commands *services.CommandRouter, twilio *services.TwilioService) *WhatsAppHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &WhatsAppHandler{
		conversation: conversation,
		registration: registration,
		commands:     commands,
		twilio:       twilio,
		queues:       make(map[string]chan string),
		ctx:          ctx,
		cancel:       cancel,
		idleTimeout:  queueIdleTimeout,
	}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // "whatsapp:+237670000001"
	To         string `form:"To"`
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook acknowledges the webhook and enqueues the message
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	if payload.Body == "" || payload.From == "" {
		// Status callbacks and media-only events
		return c.SendStatus(fiber.StatusOK)
	}

	from := utils.NormalizePhone(payload.From)
	log.Printf("📱 WhatsApp message from %s: %s", from, payload.Body)

	h.enqueue(from, payload.Body)
	return c.SendStatus(fiber.StatusOK)
}

// enqueue hands the message to the sender's ordered queue, starting the
// drain goroutine on first use. The send happens under the same lock the
// drainer retires under, so a message never lands on an orphaned queue.
func (h *WhatsAppHandler) enqueue(userID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	queue, ok := h.queues[userID]
	if !ok {
		queue = make(chan string, userQueueSize)
		h.queues[userID] = queue
		h.wg.Add(1)
		go h.drain(userID, queue)
	}

	select {
	case queue <- message:
	default:
		// Queue full: a user flooding us loses the oldest guarantee before
		// we lose the process
		log.Printf("⚠️ Message queue full for %s, dropping message", userID)
	}
}

// drain processes one user's queue in order and retires itself after the
// idle timeout so quiet users do not pin a goroutine forever
func (h *WhatsAppHandler) drain(userID string, queue chan string) {
	defer h.wg.Done()

	idle := time.NewTimer(h.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case message := <-queue:
			h.process(userID, message)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(h.idleTimeout)
		case <-idle.C:
			h.mu.Lock()
			if len(queue) == 0 {
				delete(h.queues, userID)
				h.mu.Unlock()
				return
			}
			h.mu.Unlock()
			idle.Reset(h.idleTimeout)
		}
	}
}

// process routes one message: commands first, then registration, then the
// conversational pipeline
func (h *WhatsAppHandler) process(userID, message string) {
	if h.commands.Route(message, userID, func(text string) error {
		return h.send(userID, &services.Response{Text: text})
	}) {
		return
	}

	if response := h.registration.ProcessGroupCommand(userID, message); response != nil {
		if err := h.send(userID, response); err != nil {
			log.Printf("❌ Failed to send registration response to %s: %v", userID, err)
		}
		return
	}

	response, err := h.conversation.Process(h.ctx, userID, message)
	if err != nil {
		log.Printf("Error processing message from %s: %v", userID, err)
		response = &services.Response{Text: "😕 Sorry, something went wrong. Please try again."}
	}

	if err := h.send(userID, response); err != nil {
		log.Printf("❌ Failed to send WhatsApp response to %s: %v", userID, err)
	}
}

func (h *WhatsAppHandler) send(userID string, response *services.Response) error {
	if h.twilio == nil {
		log.Printf("📤 Response (not sent, Twilio not configured): %s", services.RenderResponseText(response))
		return nil
	}
	return h.twilio.SendResponse(userID, response)
}

// TestWebhookPayload drives the conversation without Twilio (development only)
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes a message synchronously and returns the reply
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s", payload.From, payload.Message)

	var commandReply string
	if h.commands.Route(payload.Message, payload.From, func(text string) error {
		commandReply = text
		return nil
	}) {
		return c.JSON(fiber.Map{"success": true, "response": fiber.Map{"text": commandReply}})
	}
	if response := h.registration.ProcessGroupCommand(payload.From, payload.Message); response != nil {
		return c.JSON(fiber.Map{"success": true, "response": response})
	}

	response, err := h.conversation.Process(c.Context(), payload.From, payload.Message)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(fiber.Map{"success": true, "response": response})
}

// Shutdown stops the queue drainers
func (h *WhatsAppHandler) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
