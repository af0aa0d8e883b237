package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityStatus is the lifecycle status of an identity.
type IdentityStatus string

const (
	// StatusDormant is a provisioned account that was never activated.
	// A dormant identity has no usable credential and at most one live
	// setup token.
	StatusDormant IdentityStatus = "dormant"
	// StatusActive is an activated account with a stored credential.
	StatusActive IdentityStatus = "active"
	// StatusSuspended is an account an admin has locked out.
	StatusSuspended IdentityStatus = "suspended"
)

// IsValid checks the status is part of the lifecycle graph.
func (s IdentityStatus) IsValid() bool {
	switch s {
	case StatusDormant, StatusActive, StatusSuspended:
		return true
	default:
		return false
	}
}

// Identity is the principal model. Email is the identity key.
type Identity struct {
	bun.BaseModel `bun:"table:identities,alias:idt"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email       string    `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName string    `bun:"display_name,notnull" json:"display_name,omitempty"`
	Role        Role      `bun:"role,notnull" json:"role,omitempty"`

	// PasswordHash is empty while the identity is dormant.
	PasswordHash string         `bun:"password_hash" json:"-"`
	Status       IdentityStatus `bun:"status,notnull" json:"status,omitempty"`

	// CredentialChangedAt advances on every successful credential
	// rotation. Any session token issued strictly before it is stale.
	CredentialChangedAt *time.Time `bun:"credential_changed_at,nullzero" json:"credential_changed_at,omitempty"`

	SetupToken        string     `bun:"setup_token,nullzero" json:"-"`
	SetupTokenExpires *time.Time `bun:"setup_token_expires,nullzero" json:"-"`

	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value for records created before the
// status column existed.
func (i *Identity) EnsureStatus() {
	if i.Status == "" {
		i.Status = StatusActive
	}
}

// IsActive reports whether the identity may authenticate.
func (i *Identity) IsActive() bool {
	return i.Status == StatusActive
}

// Public returns the client-safe projection of the identity.
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:          i.ID,
		Email:       i.Email,
		DisplayName: i.DisplayName,
		Role:        i.Role,
	}
}

// statusAuthError maps a non-active status to the login error it produces.
func statusAuthError(status IdentityStatus) error {
	switch status {
	case StatusActive:
		return nil
	case StatusDormant:
		return ErrIdentityDormant
	case StatusSuspended:
		return ErrIdentitySuspended
	default:
		return ErrIdentitySuspended
	}
}

// OwnershipEdge assigns a coach to a class. Every coach mutation on a
// class or on a student-in-class must resolve through this edge.
type OwnershipEdge struct {
	bun.BaseModel `bun:"table:coach_classes,alias:cc"`

	CoachID   uuid.UUID  `bun:"coach_id,pk,type:uuid" json:"coach_id"`
	ClassID   uuid.UUID  `bun:"class_id,pk,type:uuid" json:"class_id"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Enrollment places a student in a class. Used to resolve which edges
// cover a student-targeting operation.
type Enrollment struct {
	bun.BaseModel `bun:"table:class_students,alias:cs"`

	ClassID   uuid.UUID  `bun:"class_id,pk,type:uuid" json:"class_id"`
	StudentID uuid.UUID  `bun:"student_id,pk,type:uuid" json:"student_id"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
