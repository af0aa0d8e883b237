package auth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traininghall/go-club-auth"
)

func TestProvisionIdentityMessage_Validate(t *testing.T) {
	valid := auth.ProvisionIdentityMessage{
		Email:       "new.student@example.com",
		DisplayName: "New Student",
		Role:        "student",
	}

	t.Run("valid payload passes", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("bad email fails", func(t *testing.T) {
		msg := valid
		msg.Email = "not-an-email"
		assert.Error(t, msg.Validate())
	})

	t.Run("unknown role fails", func(t *testing.T) {
		msg := valid
		msg.Role = "janitor"
		assert.Error(t, msg.Validate())
	})

	t.Run("bogus phone fails, empty phone passes", func(t *testing.T) {
		msg := valid
		msg.Phone = "not-a-phone"
		assert.Error(t, msg.Validate())

		msg.Phone = ""
		assert.NoError(t, msg.Validate())
	})

	t.Run("valid phone passes", func(t *testing.T) {
		msg := valid
		msg.Phone = "+1 202 555 0143"
		assert.NoError(t, msg.Validate())
	})
}

func TestProvisionIdentityHandler_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("creates dormant identity and dispatches token", func(t *testing.T) {
		_, repo := setupTestDB(t)
		mailer := &capturingMailer{}
		handler := auth.NewProvisionIdentityHandler(repo, mailer).WithLogger(quietLogger{})

		err := handler.Execute(ctx, auth.ProvisionIdentityMessage{
			Email:       "new.student@example.com",
			DisplayName: "New Student",
			Role:        "student",
		})
		require.NoError(t, err)

		identity, err := repo.Identities().GetByEmail(ctx, "new.student@example.com")
		require.NoError(t, err)

		assert.Equal(t, auth.StatusDormant, identity.Status)
		assert.Empty(t, identity.PasswordHash)
		assert.Len(t, identity.SetupToken, 64)
		require.NotNil(t, identity.SetupTokenExpires)
		assert.WithinDuration(t, time.Now().Add(auth.SetupTokenTTL), *identity.SetupTokenExpires, time.Minute)

		require.Len(t, mailer.emails, 1)
		assert.Equal(t, identity.SetupToken, mailer.emails[0].Token)
		assert.Equal(t, identity.Email, mailer.emails[0].Email)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, repo := setupTestDB(t)
		mailer := &capturingMailer{}
		handler := auth.NewProvisionIdentityHandler(repo, mailer).WithLogger(quietLogger{})

		createActiveIdentity(t, repo, "taken@example.com", "some-password", auth.RoleCoach)

		err := handler.Execute(ctx, auth.ProvisionIdentityMessage{
			Email:       "taken@example.com",
			DisplayName: "Someone Else",
			Role:        "student",
		})
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		assert.Empty(t, mailer.emails)
	})

	t.Run("failed dispatch rolls the identity back", func(t *testing.T) {
		_, repo := setupTestDB(t)
		mailer := &capturingMailer{fail: assert.AnError}
		handler := auth.NewProvisionIdentityHandler(repo, mailer).WithLogger(quietLogger{})

		err := handler.Execute(ctx, auth.ProvisionIdentityMessage{
			Email:       "unlucky@example.com",
			DisplayName: "Unlucky",
			Role:        "coach",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrActivationDispatch)

		_, err = repo.Identities().GetByEmail(ctx, "unlucky@example.com")
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("invalid payload never reaches the store", func(t *testing.T) {
		_, repo := setupTestDB(t)
		mailer := &capturingMailer{}
		handler := auth.NewProvisionIdentityHandler(repo, mailer).WithLogger(quietLogger{})

		err := handler.Execute(ctx, auth.ProvisionIdentityMessage{
			Email:       "bad",
			DisplayName: "",
			Role:        "student",
		})
		require.Error(t, err)
		assert.Empty(t, mailer.emails)
	})

	t.Run("cancelled context short circuits", func(t *testing.T) {
		_, repo := setupTestDB(t)
		handler := auth.NewProvisionIdentityHandler(repo, &capturingMailer{}).WithLogger(quietLogger{})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, auth.ProvisionIdentityMessage{
			Email:       "new.student@example.com",
			DisplayName: "New Student",
			Role:        "student",
		})
		assert.Error(t, err)
	})
}
