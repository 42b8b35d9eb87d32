package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

func TestGroupRegistrationFullFlow(t *testing.T) {
	store := storage.NewMemoryStore()
	reg := NewRegistrationService(store)
	user := "+237670000001"

	resp := reg.ProcessGroupCommand(user, "register group")
	require.NotNil(t, resp)
	assert.Equal(t, RegStateAwaitingName, reg.RegistrationState(user))

	resp = reg.ProcessGroupCommand(user, "My Group")
	require.NotNil(t, resp)
	assert.Equal(t, RegStateAwaitingInvite, reg.RegistrationState(user))

	resp = reg.ProcessGroupCommand(user, "https://chat.whatsapp.com/ABC123")
	require.NotNil(t, resp)
	assert.Equal(t, RegStateAwaitingCategory, reg.RegistrationState(user))

	resp = reg.ProcessGroupCommand(user, "electronics")
	require.NotNil(t, resp)
	assert.Equal(t, RegStateIdle, reg.RegistrationState(user))
	assert.Contains(t, resp.Text, "My Group")

	group, err := store.GetGroupByInviteCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, "My Group", group.Name)
	assert.Equal(t, "electronics", group.Category)
	assert.Equal(t, user, group.OwnerPhone)
}

func TestGroupRegistrationCancelMidFlow(t *testing.T) {
	store := storage.NewMemoryStore()
	reg := NewRegistrationService(store)
	user := "+237670000001"

	reg.ProcessGroupCommand(user, "register group")
	reg.ProcessGroupCommand(user, "My Group")
	require.Equal(t, RegStateAwaitingInvite, reg.RegistrationState(user))

	resp := reg.ProcessGroupCommand(user, "cancel")
	require.NotNil(t, resp)
	assert.Contains(t, resp.Text, "cancelled")
	assert.Equal(t, RegStateIdle, reg.RegistrationState(user))

	groups, err := store.GetAllGroups()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupRegistrationUnrelatedMessagePassesThrough(t *testing.T) {
	reg := NewRegistrationService(storage.NewMemoryStore())

	assert.Nil(t, reg.ProcessGroupCommand("+237670000001", "TVs under 50000 FCFA"))
}

func TestGroupRegistrationRejectsBadInviteLink(t *testing.T) {
	reg := NewRegistrationService(storage.NewMemoryStore())
	user := "+237670000001"

	reg.ProcessGroupCommand(user, "register group")
	reg.ProcessGroupCommand(user, "My Group")

	resp := reg.ProcessGroupCommand(user, "not a link!!!")
	require.NotNil(t, resp)
	assert.Contains(t, resp.Text, "invite link")
	// Re-prompt without a state change
	assert.Equal(t, RegStateAwaitingInvite, reg.RegistrationState(user))
}

func TestGroupRegistrationAcceptsBareToken(t *testing.T) {
	store := storage.NewMemoryStore()
	reg := NewRegistrationService(store)
	user := "+237670000001"

	reg.ProcessGroupCommand(user, "register group")
	reg.ProcessGroupCommand(user, "Deals Douala")
	reg.ProcessGroupCommand(user, "XyZ98765")
	reg.ProcessGroupCommand(user, "phones")

	group, err := store.GetGroupByInviteCode("XyZ98765")
	require.NoError(t, err)
	// "phones" folds to the canonical electronics slug
	assert.Equal(t, "electronics", group.Category)
}

func TestGroupRegistrationAlreadyRegistered(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.CreateGroup(&models.Group{
		Name:       "Existing Group",
		InviteCode: "ABC123",
		OwnerPhone: "+237699999999",
	})
	require.NoError(t, err)

	reg := NewRegistrationService(store)
	user := "+237670000001"

	reg.ProcessGroupCommand(user, "register group")
	reg.ProcessGroupCommand(user, "My Group")
	resp := reg.ProcessGroupCommand(user, "https://chat.whatsapp.com/ABC123")

	require.NotNil(t, resp)
	assert.Contains(t, resp.Text, "already registered")
	assert.Equal(t, RegStateIdle, reg.RegistrationState(user))
}

func TestCanonicalCategorySlugifiesUnknown(t *testing.T) {
	assert.Equal(t, "electronics", canonicalCategory("Phones"))
	assert.Equal(t, "fashion", canonicalCategory("clothes"))
	assert.Equal(t, "baby-items-toys", canonicalCategory("Baby items & toys"))
	assert.Equal(t, "general", canonicalCategory("!!!"))
}
