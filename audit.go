package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginOutcome is the recorded result of a login attempt.
type LoginOutcome string

const (
	OutcomeSuccess LoginOutcome = "success"
	OutcomeFail    LoginOutcome = "fail"
)

// FailureReason is the closed set of recorded login failure causes.
type FailureReason string

const (
	ReasonMissingCredentials FailureReason = "missing-credentials"
	ReasonUnknownIdentity    FailureReason = "unknown-identity"
	ReasonWrongCredential    FailureReason = "wrong-credential"
	ReasonAccountDormant     FailureReason = "account-dormant"
	ReasonAccountSuspended   FailureReason = "account-suspended"
	ReasonTooManyAttempts    FailureReason = "too-many-attempts"
	ReasonInternalError      FailureReason = "internal-error"
)

// LoginAudit is one immutable record per login attempt. Records are only
// ever inserted; nothing in the application updates or deletes them, and
// they outlive the identities they reference.
type LoginAudit struct {
	bun.BaseModel `bun:"table:login_audit,alias:la"`

	ID        uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email     string        `bun:"email,notnull" json:"email"`
	Outcome   LoginOutcome  `bun:"outcome,notnull" json:"outcome"`
	Reason    FailureReason `bun:"reason,nullzero" json:"reason,omitempty"`
	IP        string        `bun:"ip" json:"ip,omitempty"`
	UserAgent string        `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AuditAttempt is the sink-facing shape of one login attempt.
type AuditAttempt struct {
	Email      string
	Outcome    LoginOutcome
	Reason     FailureReason
	Meta       ClientMeta
	OccurredAt time.Time
}

// AuditSink durably records login attempts. Sinks run best-effort: the
// caller logs a failed write and reports the login outcome unchanged.
type AuditSink interface {
	Record(ctx context.Context, attempt AuditAttempt) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, attempt AuditAttempt) error

// Record implements AuditSink.
func (f AuditSinkFunc) Record(ctx context.Context, attempt AuditAttempt) error {
	if f == nil {
		return nil
	}
	return f(ctx, attempt)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(context.Context, AuditAttempt) error {
	return nil
}

func normalizeAuditSink(s AuditSink) AuditSink {
	if s == nil {
		return noopAuditSink{}
	}
	return s
}
