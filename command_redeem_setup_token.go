package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RedeemSetupTokenMessage activates a dormant identity with its one-time
// setup token and sets the first credential.
type RedeemSetupTokenMessage struct {
	Token       string `json:"token"`
	NewPassword string `json:"password"`
}

func (e RedeemSetupTokenMessage) Type() string { return "identity.redeem_setup_token" }

// Validate enforces the payload shape. Token length matches the 256-bit
// hex rendering so obviously bogus values never reach the store.
func (e RedeemSetupTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required, validation.Length(64, 64)),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

// RedeemSetupTokenHandler performs the dormant to active transition.
// Every failure mode answers with the same ErrInvalidOrExpiredToken so
// responses cannot be used as a token enumeration oracle.
type RedeemSetupTokenHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewRedeemSetupTokenHandler creates a handler with sane defaults.
func NewRedeemSetupTokenHandler(repo RepositoryManager) *RedeemSetupTokenHandler {
	return &RedeemSetupTokenHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RedeemSetupTokenHandler) WithLogger(logger Logger) *RedeemSetupTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RedeemSetupTokenHandler) Execute(ctx context.Context, event RedeemSetupTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during setup token redemption",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RedeemSetupTokenHandler) execute(ctx context.Context, event RedeemSetupTokenMessage) error {
	if err := event.Validate(); err != nil {
		// invalid shape answers the same as an unknown token
		return ErrInvalidOrExpiredToken
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		identity, err := h.repo.Identities().GetBySetupTokenTx(ctx, tx, event.Token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidOrExpiredToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve setup token")
		}

		// consumed tokens are cleared on activation, so a second
		// redemption lands in the not-found branch above; this covers
		// rows that predate the clearing behavior
		if identity.Status != StatusDormant {
			return ErrInvalidOrExpiredToken
		}

		if identity.SetupTokenExpires == nil || time.Now().After(*identity.SetupTokenExpires) {
			return ErrInvalidOrExpiredToken
		}

		passwordHash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Identities().ActivateTx(ctx, tx, identity.ID, passwordHash, time.Now()); err != nil {
			// the guarded update matched no row: a concurrent
			// redemption consumed the token after our read
			if goerrors.IsNotFound(err) {
				return ErrInvalidOrExpiredToken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate identity")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to redeem setup token")
	}

	return nil
}
