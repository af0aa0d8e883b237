package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Identities() Identities
	Ownership() Ownership
	LoginAudits() LoginAudits
}

type mngr struct {
	db          *bun.DB
	identities  Identities
	ownership   Ownership
	loginAudits LoginAudits
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		identities:  NewIdentitiesRepository(db),
		ownership:   NewOwnershipRepository(db),
		loginAudits: NewLoginAuditsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}

	if m.ownership == nil {
		return errors.New("repository ownership should be initialized")
	}

	if m.loginAudits == nil {
		return errors.New("repository loginAudits should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Identities() Identities {
	return m.identities
}

func (m mngr) Ownership() Ownership {
	return m.ownership
}

func (m mngr) LoginAudits() LoginAudits {
	return m.loginAudits
}
