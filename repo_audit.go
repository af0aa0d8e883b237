package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginAudits appends and reads the immutable login attempt log.
// There is intentionally no update or delete surface.
type LoginAudits interface {
	Append(ctx context.Context, attempt AuditAttempt) error
	ListByEmail(ctx context.Context, email string) ([]LoginAudit, error)
}

type loginAudits struct {
	db *bun.DB
}

var _ LoginAudits = (*loginAudits)(nil)

// NewLoginAuditsRepository builds the bun-backed audit log.
func NewLoginAuditsRepository(db *bun.DB) LoginAudits {
	return &loginAudits{db: db}
}

func (r *loginAudits) Append(ctx context.Context, attempt AuditAttempt) error {
	occurredAt := attempt.OccurredAt

	record := &LoginAudit{
		ID:        uuid.New(),
		Email:     attempt.Email,
		Outcome:   attempt.Outcome,
		Reason:    attempt.Reason,
		IP:        attempt.Meta.IP,
		UserAgent: attempt.Meta.UserAgent,
	}
	if !occurredAt.IsZero() {
		record.CreatedAt = &occurredAt
	}

	_, err := r.db.NewInsert().Model(record).Exec(ctx)
	return err
}

func (r *loginAudits) ListByEmail(ctx context.Context, email string) ([]LoginAudit, error) {
	var rows []LoginAudit
	err := r.db.NewSelect().
		Model(&rows).
		Where("email = ?", email).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// NewLoginAuditSink adapts the repository into the best-effort AuditSink
// consumed by the login path.
func NewLoginAuditSink(repo LoginAudits) AuditSink {
	return AuditSinkFunc(func(ctx context.Context, attempt AuditAttempt) error {
		return repo.Append(ctx, attempt)
	})
}
