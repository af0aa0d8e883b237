package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuthenticatedContext is the immutable outcome of a successful session
// validation. Downstream authorization reads only this value.
type AuthenticatedContext struct {
	SubjectID uuid.UUID
	Role      Role
	IssuedAt  time.Time
}

// IsAdmin reports whether the context belongs to an admin principal.
func (a AuthenticatedContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// contextFromClaims builds the authenticated context out of verified claims.
func contextFromClaims(claims SessionClaims) (*AuthenticatedContext, error) {
	if claims == nil {
		return nil, ErrUnauthenticated
	}

	subjectID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, goerrors.Wrap(err, ErrUnauthenticated.Category, ErrUnauthenticated.Message).
			WithTextCode(ErrUnauthenticated.TextCode)
	}

	role, ok := ParseRole(claims.Role())
	if !ok {
		return nil, goerrors.New("token carries unknown role", ErrUnauthenticated.Category).
			WithTextCode(ErrUnauthenticated.TextCode).
			WithMetadata(map[string]any{"role": claims.Role()})
	}

	return &AuthenticatedContext{
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  claims.IssuedAt(),
	}, nil
}
