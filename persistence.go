package auth

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/schema"
)

// RegisterModels registers the auth models with go-persistence-bun so
// relations resolve before the first query runs.
func RegisterModels() {
	persistence.RegisterModel((*Identity)(nil))
	persistence.RegisterModel((*OwnershipEdge)(nil))
	persistence.RegisterModel((*Enrollment)(nil))
	persistence.RegisterModel((*LoginAudit)(nil))
}

// NewPersistenceClient builds a persistence client with the auth models
// and embedded migrations registered, validates the migration dialects,
// and brings the schema up to date.
func NewPersistenceClient(ctx context.Context, cfg persistence.Config, db *sql.DB, dialect schema.Dialect) (*persistence.Client, error) {
	RegisterModels()

	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client, nil
}
