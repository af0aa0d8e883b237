package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Client-facing messages stay generic; the text codes and metadata carry
// the real reason for server-side logs.
var (
	// ErrUnauthenticated covers missing, garbled, or expired tokens as
	// well as tokens whose subject no longer exists.
	ErrUnauthenticated = goerrors.New("authentication failed", goerrors.CategoryAuth).
				WithTextCode("AUTH_REQUIRED").
				WithCode(goerrors.CodeUnauthorized)

	// ErrStaleSession is a structurally valid token issued before the
	// subject's last credential rotation. Clients see the same code and
	// message as ErrUnauthenticated; only the text code differs.
	ErrStaleSession = goerrors.New("authentication failed", goerrors.CategoryAuth).
			WithTextCode("SESSION_STALE").
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenExpired is a token past its fixed expiry.
	ErrTokenExpired = goerrors.New("authentication failed", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenMalformed is an unparseable token or one with a bad signature.
	ErrTokenMalformed = goerrors.New("authentication failed", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)

	// ErrForbidden is a failed role or ownership check. Ownership misses
	// surface as forbidden, never as not-found, so callers cannot probe
	// for resources they are not assigned to.
	ErrForbidden = goerrors.New("access denied", goerrors.CategoryAuthz).
			WithTextCode("FORBIDDEN").
			WithCode(goerrors.CodeForbidden)

	// ErrInvalidCredential is a wrong current password during rotation
	// or login. It never reveals whether the account exists.
	ErrInvalidCredential = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIAL").
				WithCode(goerrors.CodeUnauthorized)

	// ErrInvalidOrExpiredToken is the single answer for any failed setup
	// token redemption: no match, expired, or already consumed. Keeping
	// one error avoids a token enumeration oracle.
	ErrInvalidOrExpiredToken = goerrors.New("invalid or expired setup token", goerrors.CategoryValidation).
					WithTextCode("SETUP_TOKEN_INVALID").
					WithCode(goerrors.CodeBadRequest)

	// ErrDuplicateEmail rejects provisioning an email that already has an identity.
	ErrDuplicateEmail = goerrors.New("email already registered", goerrors.CategoryConflict).
				WithTextCode("DUPLICATE_EMAIL").
				WithCode(goerrors.CodeConflict)

	// ErrActivationDispatch marks a failed activation email. The dormant
	// identity created alongside it must be rolled back.
	ErrActivationDispatch = goerrors.New("could not dispatch activation email", goerrors.CategoryInternal).
				WithTextCode("ACTIVATION_DISPATCH_FAILED").
				WithCode(goerrors.CodeInternal)

	// ErrIdentityNotFound is the error we return for non found identities.
	ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
				WithTextCode("IDENTITY_NOT_FOUND").
				WithCode(goerrors.CodeNotFound)

	// ErrIdentityDormant rejects logins against accounts that were never activated.
	ErrIdentityDormant = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode("IDENTITY_DORMANT").
				WithCode(goerrors.CodeUnauthorized)

	// ErrIdentitySuspended rejects logins against suspended accounts.
	ErrIdentitySuspended = goerrors.New("invalid credentials", goerrors.CategoryAuth).
				WithTextCode("IDENTITY_SUSPENDED").
				WithCode(goerrors.CodeUnauthorized)

	// ErrTooManyLoginAttempts enforces the login cool down window.
	ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
				WithTextCode("TOO_MANY_ATTEMPTS").
				WithCode(goerrors.CodeUnauthorized)

	// ErrNoEmptyString rejects empty passwords before hashing.
	ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
				WithTextCode("EMPTY_VALUE").
				WithCode(goerrors.CodeBadRequest)

	// ErrMismatchedHashAndPassword is the bcrypt mismatch mapped into our taxonomy.
	ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
					WithTextCode("CREDENTIAL_MISMATCH").
					WithCode(goerrors.CodeUnauthorized)
)

// IsStaleSession checks whether err carries the stale session text code.
func IsStaleSession(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == ErrStaleSession.TextCode
	}
	return false
}

// IsTokenExpiredError will check for expired tokens, including errors
// produced by the underlying JWT library.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == ErrTokenExpired.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == ErrTokenMalformed.TextCode {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
