package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traininghall/go-club-auth"
)

func TestIdentityStateMachine(t *testing.T) {
	ctx := context.Background()
	actor := auth.ActorRef{ID: "admin-1", Type: "admin"}

	t.Run("suspend and reinstate round trip", func(t *testing.T) {
		_, repo := setupTestDB(t)
		sm := auth.NewIdentityStateMachine(repo.Identities(), auth.WithStateMachineLogger(quietLogger{}))

		identity := createActiveIdentity(t, repo, "lifecycle@example.com", "some-password", auth.RoleCoach)

		suspended, err := sm.Suspend(ctx, actor, identity)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusSuspended, suspended.Status)

		stored, err := repo.Identities().GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusSuspended, stored.Status)

		reinstated, err := sm.Reinstate(ctx, actor, stored)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusActive, reinstated.Status)
	})

	t.Run("dormant rows cannot be suspended or reinstated", func(t *testing.T) {
		_, repo := setupTestDB(t)
		sm := auth.NewIdentityStateMachine(repo.Identities(), auth.WithStateMachineLogger(quietLogger{}))

		token, err := auth.NewSetupToken()
		require.NoError(t, err)
		dormant := createDormantIdentity(t, repo, "asleep@example.com", token, time.Now().Add(time.Hour))

		_, err = sm.Suspend(ctx, actor, dormant)
		assert.Error(t, err)

		_, err = sm.Reinstate(ctx, actor, dormant)
		assert.Error(t, err)

		stored, err := repo.Identities().GetByID(ctx, dormant.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusDormant, stored.Status)
	})

	t.Run("same-status transition is a no-op", func(t *testing.T) {
		_, repo := setupTestDB(t)
		sm := auth.NewIdentityStateMachine(repo.Identities(), auth.WithStateMachineLogger(quietLogger{}))

		identity := createActiveIdentity(t, repo, "noop@example.com", "some-password", auth.RoleStudent)

		got, err := sm.Transition(ctx, actor, identity, auth.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, auth.StatusActive, got.Status)
	})

	t.Run("nil identity errors", func(t *testing.T) {
		_, repo := setupTestDB(t)
		sm := auth.NewIdentityStateMachine(repo.Identities(), auth.WithStateMachineLogger(quietLogger{}))

		_, err := sm.Suspend(ctx, actor, nil)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("suspended identity cannot log in", func(t *testing.T) {
		_, repo := setupTestDB(t)
		sm := auth.NewIdentityStateMachine(repo.Identities(), auth.WithStateMachineLogger(quietLogger{}))

		identity := createActiveIdentity(t, repo, "locked@example.com", "right-password", auth.RoleCoach)
		_, err := sm.Suspend(ctx, actor, identity)
		require.NoError(t, err)

		auther := auth.NewAuthenticator(repo.Identities(), newTestConfig()).WithLogger(quietLogger{})

		_, err = auther.Login(ctx, "locked@example.com", "right-password", auth.ClientMeta{})
		assert.ErrorIs(t, err, auth.ErrIdentitySuspended)
	})
}
