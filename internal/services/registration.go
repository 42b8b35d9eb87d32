package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

// Registration states. Independent of the marketplace conversation: a user
// can be mid-registration and mid-search at the same time.
const (
	RegStateIdle             = "IDLE"
	RegStateAwaitingName     = "AWAITING_GROUP_NAME"
	RegStateAwaitingInvite   = "AWAITING_INVITE_LINK"
	RegStateAwaitingCategory = "AWAITING_CATEGORY"
)

var (
	registerTriggerRe = regexp.MustCompile(`(?i)^\s*register\s+(?:my\s+)?group\b`)
	cancelRe          = regexp.MustCompile(`(?i)^\s*(?:cancel|stop|quit)\b`)

	// Two accepted invite forms: the full shareable link and a bare token
	inviteLinkRe  = regexp.MustCompile(`(?i)chat\.whatsapp\.com/([A-Za-z0-9]{6,})`)
	inviteTokenRe = regexp.MustCompile(`^[A-Za-z0-9]{6,}$`)

	nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Keyword synonyms folded to canonical category slugs. Anything unmatched is
// slugified and accepted as a custom category.
var categorySynonyms = map[string]string{
	"electronics": "electronics", "electronic": "electronics", "phones": "electronics",
	"phone": "electronics", "gadgets": "electronics", "tech": "electronics",
	"fashion": "fashion", "clothes": "fashion", "clothing": "fashion", "shoes": "fashion",
	"food": "food", "groceries": "food", "restaurant": "food",
	"furniture": "furniture", "home": "furniture",
	"vehicles": "vehicles", "cars": "vehicles", "car": "vehicles", "motos": "vehicles",
	"services": "services", "service": "services",
	"property": "property", "housing": "property", "real estate": "property",
}

type registrationDraft struct {
	State      string
	GroupName  string
	InviteCode string
}

// RegistrationService runs the group-onboarding state machine
type RegistrationService struct {
	store  storage.Store
	mu     sync.Mutex
	drafts map[string]*registrationDraft
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(store storage.Store) *RegistrationService {
	return &RegistrationService{
		store:  store,
		drafts: make(map[string]*registrationDraft),
	}
}

// ProcessGroupCommand handles one message against the registration machine.
// Returns nil when the message is not a registration concern, so the caller
// can route it to the conversational pipeline instead.
func (r *RegistrationService) ProcessGroupCommand(userID, message string) *Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	draft, inFlight := r.drafts[userID]

	if !inFlight {
		if !registerTriggerRe.MatchString(message) {
			return nil
		}
		r.drafts[userID] = &registrationDraft{State: RegStateAwaitingName}
		return &Response{
			Text:  "📋 *Group Registration*\n\nLet's add your WhatsApp group to the marketplace.\n\nWhat is your group's name?",
			State: RegStateAwaitingName,
		}
	}

	if cancelRe.MatchString(message) {
		delete(r.drafts, userID)
		return &Response{
			Text:  "❌ Group registration cancelled. Send \"register group\" whenever you want to start again.",
			State: RegStateIdle,
		}
	}

	switch draft.State {
	case RegStateAwaitingName:
		return r.handleName(draft, message)
	case RegStateAwaitingInvite:
		return r.handleInvite(userID, draft, message)
	case RegStateAwaitingCategory:
		return r.handleCategory(userID, draft, message)
	default:
		delete(r.drafts, userID)
		return nil
	}
}

func (r *RegistrationService) handleName(draft *registrationDraft, message string) *Response {
	name := strings.TrimSpace(message)
	if len(name) < 3 {
		return &Response{
			Text:  "That name looks too short. Please send your group's name (at least 3 characters).",
			State: RegStateAwaitingName,
		}
	}

	draft.GroupName = name
	draft.State = RegStateAwaitingInvite
	return &Response{
		Text: fmt.Sprintf(`Got it: *%s* ✅

Now send me the group's invite link (the one from "Invite via link"), for example:
https://chat.whatsapp.com/AbCdEf123`, name),
		State: RegStateAwaitingInvite,
	}
}

func (r *RegistrationService) handleInvite(userID string, draft *registrationDraft, message string) *Response {
	code := parseInviteCode(message)
	if code == "" {
		return &Response{
			Text:  "That doesn't look like a WhatsApp invite link. Please send the full link (https://chat.whatsapp.com/...) or just the code after the last slash.",
			State: RegStateAwaitingInvite,
		}
	}

	if existing, err := r.store.GetGroupByInviteCode(code); err == nil && existing != nil {
		delete(r.drafts, userID)
		return &Response{
			Text:  fmt.Sprintf("ℹ️ That group is already registered as *%s*. Nothing to do!", existing.Name),
			State: RegStateIdle,
		}
	}

	draft.InviteCode = code
	draft.State = RegStateAwaitingCategory
	return &Response{
		Text: `Almost done! What does your group mostly sell?

Examples: electronics, fashion, food, furniture, vehicles, services — or anything else.`,
		State: RegStateAwaitingCategory,
	}
}

func (r *RegistrationService) handleCategory(userID string, draft *registrationDraft, message string) *Response {
	category := canonicalCategory(message)

	group := &models.Group{
		Name:       draft.GroupName,
		InviteCode: draft.InviteCode,
		Category:   category,
		OwnerPhone: userID,
		Active:     true,
	}
	if _, err := r.store.CreateGroup(group); err != nil {
		log.Printf("Failed to register group %s: %v", draft.GroupName, err)
		delete(r.drafts, userID)
		return &Response{
			Text:  "😕 Something went wrong saving your group. Please try \"register group\" again in a moment.",
			State: RegStateIdle,
		}
	}

	delete(r.drafts, userID)
	log.Printf("✅ Group registered: %s (%s, %s)", group.Name, group.Category, group.InviteCode)
	return &Response{
		Text: fmt.Sprintf(`🎉 *%s* is now part of the marketplace!

*Category:* %s

Listings posted in your group will start showing up in buyer searches.`, group.Name, category),
		State: RegStateIdle,
	}
}

// RegistrationState reports the machine's state for a user, IDLE when no
// registration is in flight
func (r *RegistrationService) RegistrationState(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if draft, ok := r.drafts[userID]; ok {
		return draft.State
	}
	return RegStateIdle
}

func parseInviteCode(message string) string {
	if m := inviteLinkRe.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	token := strings.TrimSpace(message)
	if inviteTokenRe.MatchString(token) {
		return token
	}
	return ""
}

func canonicalCategory(message string) string {
	key := strings.ToLower(strings.TrimSpace(message))
	if slug, ok := categorySynonyms[key]; ok {
		return slug
	}
	// Permissive by design: unknown categories become custom slugs
	slug := strings.Trim(nonWordRe.ReplaceAllString(key, "-"), "-")
	if slug == "" {
		return "general"
	}
	return slug
}
