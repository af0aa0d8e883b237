package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of attempts an identity gets
// inside the cool down window.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which we enforce a cool down.
var CoolDownPeriod = "24h"

// IdentityTracker is the store surface the login path depends on.
type IdentityTracker interface {
	IdentityStore
	TrackAttemptedLogin(ctx context.Context, identity *Identity) error
	TrackSuccessfulLogin(ctx context.Context, identity *Identity) error
}

// Auther orchestrates login and session validation. Every login attempt
// writes exactly one audit record, success or failure, before the result
// is returned; the audit write itself is best-effort and never changes
// the outcome.
type Auther struct {
	store        IdentityTracker
	tokenService TokenService
	sessions     *SessionValidator
	audit        AuditSink
	logger       Logger
}

// NewAuthenticator returns a new Auther wired from the config.
func NewAuthenticator(store IdentityTracker, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)

	return &Auther{
		store:        store,
		tokenService: tokenService,
		sessions:     NewSessionValidator(tokenService, store),
		audit:        noopAuditSink{},
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.sessions.WithLogger(logger)
	}
	return s
}

// WithAuditSink configures the sink that records login attempts.
func (s *Auther) WithAuditSink(sink AuditSink) *Auther {
	s.audit = normalizeAuditSink(sink)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	if validator != nil {
		s.sessions = NewSessionValidator(validator, s.store).WithLogger(s.logger)
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther.
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// SessionValidator exposes the per-request session check.
func (s *Auther) SessionValidator() *SessionValidator {
	return s.sessions
}

// ValidateSession checks a raw bearer token against the current state of
// its subject identity.
func (s *Auther) ValidateSession(ctx context.Context, rawToken string) (*AuthenticatedContext, error) {
	return s.sessions.Validate(ctx, rawToken)
}

// Login verifies the credential and issues a session token.
func (s *Auther) Login(ctx context.Context, email, credential string, meta ClientMeta) (*LoginResult, error) {
	if email == "" || credential == "" {
		s.recordAttempt(ctx, email, OutcomeFail, ReasonMissingCredentials, meta)
		return nil, ErrInvalidCredential
	}

	identity, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// same client error as a wrong password, no account oracle
			s.recordAttempt(ctx, email, OutcomeFail, ReasonUnknownIdentity, meta)
			return nil, ErrInvalidCredential
		}
		s.logger.Error("login identity lookup failed", "error", err, "email", email)
		s.recordAttempt(ctx, email, OutcomeFail, ReasonInternalError, meta)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "identity lookup failed")
	}

	identity.EnsureStatus()
	if err := statusAuthError(identity.Status); err != nil {
		reason := ReasonAccountDormant
		if identity.Status == StatusSuspended {
			reason = ReasonAccountSuspended
		}
		s.recordAttempt(ctx, email, OutcomeFail, reason, meta)
		return nil, err
	}

	if identity.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*identity.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			s.recordAttempt(ctx, email, OutcomeFail, ReasonInternalError, meta)
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}
		if expired {
			identity.LoginAttempts = 0
		}
	}

	if identity.LoginAttempts > MaxLoginAttempts {
		s.recordAttempt(ctx, email, OutcomeFail, ReasonTooManyAttempts, meta)
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(credential, identity.PasswordHash); err != nil {
		if err2 := s.store.TrackAttemptedLogin(ctx, identity); err2 != nil {
			s.logger.Error("failed to track login attempt", "error", err2)
		}
		s.recordAttempt(ctx, email, OutcomeFail, ReasonWrongCredential, meta)
		return nil, ErrInvalidCredential
	}

	if err := s.store.TrackSuccessfulLogin(ctx, identity); err != nil {
		s.logger.Error("failed to track successful login", "error", err)
	}

	token, err := s.tokenService.Generate(identity, time.Now())
	if err != nil {
		s.logger.Error("login token generation failed", "error", err, "subject", identity.ID.String())
		s.recordAttempt(ctx, email, OutcomeFail, ReasonInternalError, meta)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "token generation failed")
	}

	s.recordAttempt(ctx, email, OutcomeSuccess, "", meta)

	return &LoginResult{
		Token:    token,
		Identity: identity.Public(),
	}, nil
}

func (s *Auther) recordAttempt(ctx context.Context, email string, outcome LoginOutcome, reason FailureReason, meta ClientMeta) {
	attempt := AuditAttempt{
		Email:      email,
		Outcome:    outcome,
		Reason:     reason,
		Meta:       meta,
		OccurredAt: time.Now(),
	}

	if err := normalizeAuditSink(s.audit).Record(ctx, attempt); err != nil {
		s.logger.Warn("audit sink record error: %v", err)
	}
}

var _ Authenticator = (*Auther)(nil)
