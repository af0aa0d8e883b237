package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, credential string, meta ClientMeta) (*LoginResult, error)
	ValidateSession(ctx context.Context, rawToken string) (*AuthenticatedContext, error)
}

// ClientMeta carries request metadata recorded with every login attempt.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// PublicIdentity is the identity projection returned to clients after login.
// It never carries credential material.
type PublicIdentity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
}

// LoginResult is a signed session token plus the public identity it belongs to.
type LoginResult struct {
	Token    string         `json:"token"`
	Identity PublicIdentity `json:"identity"`
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() time.Duration
	GetSetupTokenTTL() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityStore is the narrow persistence surface the session validator
// and login path depend on. The full repository satisfies it.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
}

// OwnershipStore resolves coach to class assignment edges.
type OwnershipStore interface {
	HasEdge(ctx context.Context, coachID, classID uuid.UUID) (bool, error)
	ClassIDsForStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
}

// ActivationMailer dispatches the one-time setup token to a freshly
// provisioned identity. A returned error rolls the identity back.
type ActivationMailer interface {
	SendActivationEmail(ctx context.Context, email, token, displayName string) error
}

// ActivationMailerFunc adapts a function into an ActivationMailer.
type ActivationMailerFunc func(ctx context.Context, email, token, displayName string) error

func (f ActivationMailerFunc) SendActivationEmail(ctx context.Context, email, token, displayName string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, token, displayName)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
