package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/traininghall/go-club-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupTestDB opens an isolated in-memory database with the auth schema
// created. One connection max so every query sees the same database.
func setupTestDB(t *testing.T) (*bun.DB, auth.RepositoryManager) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	models := []any{
		(*auth.Identity)(nil),
		(*auth.OwnershipEdge)(nil),
		(*auth.Enrollment)(nil),
		(*auth.LoginAudit)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		require.NoError(t, err)
	}

	return db, auth.NewRepositoryManager(db)
}

// createActiveIdentity inserts an activated identity with the given
// password already hashed.
func createActiveIdentity(t *testing.T, repo auth.RepositoryManager, email, password string, role auth.Role) *auth.Identity {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	identity, err := repo.Identities().Create(context.Background(), &auth.Identity{
		Email:        email,
		DisplayName:  "Test Identity",
		Role:         role,
		PasswordHash: hash,
		Status:       auth.StatusActive,
	})
	require.NoError(t, err)

	return identity
}

// createDormantIdentity inserts a provisioned identity holding a live
// setup token.
func createDormantIdentity(t *testing.T, repo auth.RepositoryManager, email, setupToken string, expires time.Time) *auth.Identity {
	t.Helper()

	identity, err := repo.Identities().Create(context.Background(), &auth.Identity{
		Email:             email,
		DisplayName:       "Dormant Identity",
		Role:              auth.RoleStudent,
		Status:            auth.StatusDormant,
		SetupToken:        setupToken,
		SetupTokenExpires: &expires,
	})
	require.NoError(t, err)

	return identity
}
