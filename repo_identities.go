package auth

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivateIdentitySQL flips a dormant row to active in one statement:
// first credential in, setup token consumed, rotation clock started.
// The status guard makes activation single-shot even when two
// redemptions of the same token race past the dormant read: the first
// UPDATE wins, the second matches zero rows.
var ActivateIdentitySQL = `UPDATE "identities" AS "idt"
SET
	"status" = 'active',
	"password_hash" = ?,
	"credential_changed_at" = ?,
	"setup_token" = NULL,
	"setup_token_expires" = NULL
WHERE
	"idt"."deleted_at" IS NULL
AND "idt"."status" = 'dormant'
AND (
	"idt"."id" = ?
) RETURNING *;`

// RotateCredentialSQL stores a new hash and advances the rotation
// timestamp, which invalidates every token issued before it.
var RotateCredentialSQL = `UPDATE "identities" AS "idt"
SET
	"password_hash" = ?,
	"credential_changed_at" = ?
WHERE
	"idt"."deleted_at" IS NULL
AND (
	"idt"."id" = ?
) RETURNING *;`

// Identities is the persistence surface for identity rows.
type Identities interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error)
	GetBySetupToken(ctx context.Context, token string) (*Identity, error)
	GetBySetupTokenTx(ctx context.Context, tx bun.IDB, token string) (*Identity, error)

	Create(ctx context.Context, record *Identity) (*Identity, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error)

	Activate(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error
	RotateCredential(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error
	RotateCredentialTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status IdentityStatus) (*Identity, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status IdentityStatus) (*Identity, error)

	// DeleteProvisioned hard-deletes a dormant row created by a
	// provisioning attempt whose activation email never went out.
	DeleteProvisioned(ctx context.Context, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, identity *Identity) error
	TrackSuccessfulLogin(ctx context.Context, identity *Identity) error
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var _ Identities = (*identities)(nil)
var _ IdentityTracker = (*identities)(nil)

// NewIdentitiesRepository builds the bun-backed identities repository.
func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(i *Identity) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Identity, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (a *identities) GetByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *identities) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error) {
	return a.getOne(ctx, tx, "id", id.String())
}

func (a *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error) {
	return a.getOne(ctx, tx, "email", email)
}

func (a *identities) GetBySetupToken(ctx context.Context, token string) (*Identity, error) {
	return a.GetBySetupTokenTx(ctx, a.db, token)
}

func (a *identities) GetBySetupTokenTx(ctx context.Context, tx bun.IDB, token string) (*Identity, error) {
	return a.getOne(ctx, tx, "setup_token", token)
}

func (a *identities) getOne(ctx context.Context, tx bun.IDB, column, value string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func (a *identities) Create(ctx context.Context, record *Identity) (*Identity, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *identities) CreateTx(ctx context.Context, tx bun.IDB, record *Identity) (*Identity, error) {
	prepareIdentityDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *identities) Activate(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	return a.ActivateTx(ctx, a.db, id, passwordHash, at)
}

func (a *identities) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error {
	res, err := a.Repository.RawTx(ctx, tx, ActivateIdentitySQL, passwordHash, at, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *identities) RotateCredential(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	return a.RotateCredentialTx(ctx, a.db, id, passwordHash, at)
}

func (a *identities) RotateCredentialTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error {
	res, err := a.Repository.RawTx(ctx, tx, RotateCredentialSQL, passwordHash, at, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *identities) UpdateStatus(ctx context.Context, id uuid.UUID, status IdentityStatus) (*Identity, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

func (a *identities) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status IdentityStatus) (*Identity, error) {
	record := &Identity{
		ID:     id,
		Status: status,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *identities) DeleteProvisioned(ctx context.Context, id uuid.UUID) error {
	// hard delete on purpose: the row never activated, soft deleting it
	// would keep the unique email reserved forever
	_, err := a.db.NewDelete().
		Model((*Identity)(nil)).
		Where("id = ?", id.String()).
		Where("status = ?", StatusDormant).
		ForceDelete().
		Exec(ctx)

	return err
}

func (a *identities) TrackSuccessfulLogin(ctx context.Context, identity *Identity) error {
	// NOTE: updating through the ORM won't reset login_attempt_at and
	// login_attempts together, so this drops to SQL.
	_, err := a.db.NewRaw(`
		UPDATE "identities" AS "idt"
		SET
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("idt".id = ?)
			AND "idt"."deleted_at" IS NULL;
	`, identity.ID.String()).Exec(ctx)

	return err
}

func (a *identities) TrackAttemptedLogin(ctx context.Context, identity *Identity) error {
	record := &Identity{}
	record.ID = identity.ID
	record.LoginAttempts = identity.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, a.db, record, repository.UpdateByID(identity.ID.String()))

	return err
}

func prepareIdentityDefaults(record *Identity) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
