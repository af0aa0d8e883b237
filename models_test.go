package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/traininghall/go-club-auth"
)

func TestIdentityStatusIsValid(t *testing.T) {
	assert.True(t, auth.StatusDormant.IsValid())
	assert.True(t, auth.StatusActive.IsValid())
	assert.True(t, auth.StatusSuspended.IsValid())
	assert.False(t, auth.IdentityStatus("archived").IsValid())
}

func TestIdentityEnsureStatus(t *testing.T) {
	identity := &auth.Identity{}
	identity.EnsureStatus()
	assert.Equal(t, auth.StatusActive, identity.Status)

	dormant := &auth.Identity{Status: auth.StatusDormant}
	dormant.EnsureStatus()
	assert.Equal(t, auth.StatusDormant, dormant.Status)
}

func TestIdentityIsActive(t *testing.T) {
	assert.True(t, (&auth.Identity{Status: auth.StatusActive}).IsActive())
	assert.False(t, (&auth.Identity{Status: auth.StatusDormant}).IsActive())
	assert.False(t, (&auth.Identity{Status: auth.StatusSuspended}).IsActive())
}

func TestIdentityPublic(t *testing.T) {
	identity := &auth.Identity{
		ID:           uuid.New(),
		Email:        "coach@example.com",
		DisplayName:  "Coach",
		Role:         auth.RoleCoach,
		PasswordHash: "$2a$14$secret",
		SetupToken:   "aaaa",
	}

	public := identity.Public()

	assert.Equal(t, identity.ID, public.ID)
	assert.Equal(t, identity.Email, public.Email)
	assert.Equal(t, identity.DisplayName, public.DisplayName)
	assert.Equal(t, identity.Role, public.Role)
}
