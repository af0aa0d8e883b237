package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionValidator decides, per request, whether a presented token is
// currently valid: well formed, unexpired, subject still exists, and not
// issued before the subject's last credential rotation.
//
// The ordering is fixed: decode before lookup before staleness. A
// malformed token must never trigger a store read. The staleness compare
// runs against a fresh identity row on every request; caching it would
// reopen the window the rotation invariant closes.
type SessionValidator struct {
	tokens TokenValidator
	store  IdentityStore
	logger Logger
}

// NewSessionValidator returns a validator backed by the given codec and store.
func NewSessionValidator(tokens TokenValidator, store IdentityStore) *SessionValidator {
	return &SessionValidator{
		tokens: tokens,
		store:  store,
		logger: defLogger{},
	}
}

func (v *SessionValidator) WithLogger(logger Logger) *SessionValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Validate checks the raw token and returns the authenticated context.
// Every failure surfaces with the unauthenticated client shape; stale
// sessions keep their distinct text code for server-side logs.
func (v *SessionValidator) Validate(ctx context.Context, rawToken string) (*AuthenticatedContext, error) {
	if rawToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := v.tokens.Validate(rawToken)
	if err != nil {
		// codec errors already carry auth category codes
		return nil, err
	}

	actx, err := contextFromClaims(claims)
	if err != nil {
		return nil, err
	}

	identity, err := v.store.GetByID(ctx, actx.SubjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// deleted accounts present like any other bad token
			return nil, ErrUnauthenticated
		}
		v.logger.Error("session validate identity lookup failed", "error", err, "subject", actx.SubjectID.String())
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "identity lookup failed")
	}

	if err := v.checkStaleness(identity, actx); err != nil {
		return nil, err
	}

	return actx, nil
}

// checkStaleness rejects tokens issued strictly before the identity's
// current credential_changed_at. JWT iat has second precision, so the
// stored timestamp is truncated before the compare; a token minted with
// issuedAt == credential_changed_at must pass.
func (v *SessionValidator) checkStaleness(identity *Identity, actx *AuthenticatedContext) error {
	if identity.CredentialChangedAt == nil {
		return nil
	}

	changedAt := identity.CredentialChangedAt.Truncate(time.Second)
	if actx.IssuedAt.Before(changedAt) {
		v.logger.Info(
			"rejecting stale session",
			"subject", identity.ID.String(),
			"issued_at", actx.IssuedAt,
			"credential_changed_at", changedAt,
		)
		return ErrStaleSession
	}

	return nil
}
