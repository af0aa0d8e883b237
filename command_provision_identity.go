package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// SetupTokenTTL is how long a freshly generated setup token stays redeemable.
var SetupTokenTTL = 24 * time.Hour

// ProvisionIdentityMessage creates a dormant, token-gated identity and
// dispatches its activation email.
type ProvisionIdentityMessage struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Phone       string `json:"phone"`
	UseHashid   bool   `json:"-"`
}

func (e ProvisionIdentityMessage) Type() string { return "identity.provision" }

// Validate enforces the inbound payload shape before any store access.
func (e ProvisionIdentityMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Role, validation.Required, validation.By(validateRoleString)),
		validation.Field(&e.Phone, validation.By(validateOptionalPhone)),
	)
}

func validateRoleString(value any) error {
	raw, _ := value.(string)
	if _, ok := ParseRole(raw); !ok {
		return goerrors.New("must be one of admin, coach, student", goerrors.CategoryValidation)
	}
	return nil
}

func validateOptionalPhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	return nil
}

// ProvisionIdentityHandler creates the dormant identity and sends the
// activation email as one unit: a failed dispatch rolls the row back so
// no orphaned, never-activatable account survives.
type ProvisionIdentityHandler struct {
	repo   RepositoryManager
	mailer ActivationMailer
	logger Logger
}

// NewProvisionIdentityHandler creates a handler with sane defaults.
func NewProvisionIdentityHandler(repo RepositoryManager, mailer ActivationMailer) *ProvisionIdentityHandler {
	return &ProvisionIdentityHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ProvisionIdentityHandler) WithLogger(logger Logger) *ProvisionIdentityHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ProvisionIdentityHandler) Execute(ctx context.Context, event ProvisionIdentityMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during identity provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ProvisionIdentityHandler) execute(ctx context.Context, event ProvisionIdentityMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid provisioning payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	setupToken, err := NewSetupToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate setup token")
	}

	role, _ := ParseRole(event.Role)
	expires := time.Now().Add(SetupTokenTTL)

	identity := &Identity{
		Email:             event.Email,
		DisplayName:       event.DisplayName,
		Role:              role,
		Status:            StatusDormant,
		SetupToken:        setupToken,
		SetupTokenExpires: &expires,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			identity.ID = id
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Identities().GetByEmailTx(ctx, tx, event.Email)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check for existing identity")
		}
		if existing != nil {
			return ErrDuplicateEmail
		}

		if identity, err = h.repo.Identities().CreateTx(ctx, tx, identity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "identity provisioning transaction failed")
	}

	// Dispatch outside the transaction, roll the row back explicitly on
	// failure. The row must not linger: a dormant identity with a dead
	// token can never be activated.
	if err := h.mailer.SendActivationEmail(ctx, identity.Email, setupToken, identity.DisplayName); err != nil {
		h.logger.Error("activation email dispatch failed", "error", err, "email", identity.Email)

		if delErr := h.repo.Identities().DeleteProvisioned(ctx, identity.ID); delErr != nil {
			h.logger.Error(
				"rollback of provisioned identity failed, dormant row is orphaned",
				"error", delErr,
				"identity", identity.ID.String(),
			)
			return ErrActivationDispatch.Clone().WithMetadata(map[string]any{
				"identity":        identity.ID.String(),
				"rollback_failed": true,
			})
		}

		return ErrActivationDispatch
	}

	return nil
}
