package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traininghall/go-club-auth"
)

func TestRotateCredentialHandler_Execute(t *testing.T) {
	ctx := context.Background()

	tokens := auth.NewTokenService([]byte("test-signing-key"), time.Hour, "test-issuer", jwt.ClaimStrings{"test-audience"}, quietLogger{})

	t.Run("rotation stales old sessions and issues a fresh one", func(t *testing.T) {
		_, repo := setupTestDB(t)
		handler := auth.NewRotateCredentialHandler(repo, tokens).WithLogger(quietLogger{})
		validator := auth.NewSessionValidator(tokens, repo.Identities()).WithLogger(quietLogger{})

		identity := createActiveIdentity(t, repo, "rotator@example.com", "old-password", auth.RoleCoach)

		oldToken, err := tokens.Generate(identity, time.Now().Add(-2*time.Second))
		require.NoError(t, err)

		_, err = validator.Validate(ctx, oldToken)
		require.NoError(t, err, "token should be valid before rotation")

		actx := &auth.AuthenticatedContext{SubjectID: identity.ID, Role: auth.RoleCoach}
		rotated, err := handler.Execute(ctx, actx, auth.RotateCredentialMessage{
			Current: "old-password",
			New:     "brand-new-password",
		})
		require.NoError(t, err)
		require.NotEmpty(t, rotated.Token)

		// every session from before the rotation is cut off
		_, err = validator.Validate(ctx, oldToken)
		require.Error(t, err)
		assert.True(t, auth.IsStaleSession(err))

		// the fresh token survives the same check
		fresh, err := validator.Validate(ctx, rotated.Token)
		require.NoError(t, err)
		assert.Equal(t, identity.ID, fresh.SubjectID)

		// new credential is in effect
		updated, err := repo.Identities().GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("brand-new-password", updated.PasswordHash))
		assert.Error(t, auth.ComparePasswordAndHash("old-password", updated.PasswordHash))
	})

	t.Run("wrong current password leaves everything untouched", func(t *testing.T) {
		_, repo := setupTestDB(t)
		handler := auth.NewRotateCredentialHandler(repo, tokens).WithLogger(quietLogger{})
		validator := auth.NewSessionValidator(tokens, repo.Identities()).WithLogger(quietLogger{})

		identity := createActiveIdentity(t, repo, "careful@example.com", "old-password", auth.RoleStudent)

		oldToken, err := tokens.Generate(identity, time.Now().Add(-2*time.Second))
		require.NoError(t, err)

		actx := &auth.AuthenticatedContext{SubjectID: identity.ID, Role: auth.RoleStudent}
		_, err = handler.Execute(ctx, actx, auth.RotateCredentialMessage{
			Current: "not-the-password",
			New:     "brand-new-password",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredential)

		// outstanding sessions stay valid
		_, err = validator.Validate(ctx, oldToken)
		assert.NoError(t, err)

		updated, err := repo.Identities().GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("old-password", updated.PasswordHash))
	})

	t.Run("nil context is unauthenticated", func(t *testing.T) {
		_, repo := setupTestDB(t)
		handler := auth.NewRotateCredentialHandler(repo, tokens).WithLogger(quietLogger{})

		_, err := handler.Execute(ctx, nil, auth.RotateCredentialMessage{
			Current: "whatever",
			New:     "brand-new-password",
		})
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("invalid payload is rejected", func(t *testing.T) {
		_, repo := setupTestDB(t)
		handler := auth.NewRotateCredentialHandler(repo, tokens).WithLogger(quietLogger{})

		identity := createActiveIdentity(t, repo, "short@example.com", "old-password", auth.RoleCoach)
		actx := &auth.AuthenticatedContext{SubjectID: identity.ID, Role: auth.RoleCoach}

		_, err := handler.Execute(ctx, actx, auth.RotateCredentialMessage{
			Current: "old-password",
			New:     "short",
		})
		assert.Error(t, err)
	})
}
