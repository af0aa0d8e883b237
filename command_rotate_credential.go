package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RotateCredentialMessage is an authenticated change-password request.
type RotateCredentialMessage struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (e RotateCredentialMessage) Type() string { return "identity.rotate_credential" }

// Validate enforces the payload shape.
func (e RotateCredentialMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Current, validation.Required),
		validation.Field(&e.New, validation.Required, validation.Length(10, 100)),
	)
}

// RotatedCredential is the outcome of a successful rotation: a fresh
// session token whose issuance equals the new rotation timestamp. The
// token used to make the rotation request is already stale by the time
// the caller reads this.
type RotatedCredential struct {
	Token string `json:"token"`
}

// RotateCredentialHandler verifies the current credential and advances
// credential_changed_at, which by construction of the staleness check
// revokes every outstanding session except the one returned here.
type RotateCredentialHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

// NewRotateCredentialHandler creates a handler with sane defaults.
func NewRotateCredentialHandler(repo RepositoryManager, tokens TokenService) *RotateCredentialHandler {
	return &RotateCredentialHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RotateCredentialHandler) WithLogger(logger Logger) *RotateCredentialHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RotateCredentialHandler) Execute(ctx context.Context, actx *AuthenticatedContext, event RotateCredentialMessage) (*RotatedCredential, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during credential rotation",
		)
	default:
		return h.execute(ctx, actx, event)
	}
}

func (h *RotateCredentialHandler) execute(ctx context.Context, actx *AuthenticatedContext, event RotateCredentialMessage) (*RotatedCredential, error) {
	if actx == nil {
		return nil, ErrUnauthenticated
	}

	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid rotation payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var identity *Identity

	// JWT iat carries second precision; the rotation timestamp is
	// truncated to match so the fresh token compares equal, not earlier.
	rotatedAt := time.Now().Truncate(time.Second)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		identity, err = h.repo.Identities().GetByIDTx(ctx, tx, actx.SubjectID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUnauthenticated
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve identity")
		}

		// caller is already authenticated, this only distinguishes
		// right from wrong current password
		if err := ComparePasswordAndHash(event.Current, identity.PasswordHash); err != nil {
			return ErrInvalidCredential
		}

		passwordHash, err := HashPassword(event.New)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Identities().RotateCredentialTx(ctx, tx, identity.ID, passwordHash, rotatedAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate credential")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential rotation failed")
	}

	token, err := h.tokens.Generate(identity, rotatedAt)
	if err != nil {
		h.logger.Error("post-rotation token generation failed", "error", err, "subject", identity.ID.String())
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue fresh session token")
	}

	return &RotatedCredential{Token: token}, nil
}
