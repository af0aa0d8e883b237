package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid identity state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_IDENTITY_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// ActorRef identifies who triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// IdentityStateMachine centralizes the lifecycle graph. Dormant rows
// leave that state only through setup token redemption, which is why
// there is no dormant-to-active arrow here: Transition serves the admin
// surface (suspension and reinstatement), not activation.
type IdentityStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, identity *Identity, target IdentityStatus) (*Identity, error)
	Suspend(ctx context.Context, actor ActorRef, identity *Identity) (*Identity, error)
	Reinstate(ctx context.Context, actor ActorRef, identity *Identity) (*Identity, error)
}

var transitionGraph = map[IdentityStatus][]IdentityStatus{
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
	StatusDormant:   {},
}

type identityStateMachine struct {
	identities Identities
	logger     Logger
	now        func() time.Time
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*identityStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *identityStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the logger used for transition logs.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *identityStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewIdentityStateMachine builds the lifecycle machine over the identities repo.
func NewIdentityStateMachine(identities Identities, opts ...StateMachineOption) IdentityStateMachine {
	sm := &identityStateMachine{
		identities: identities,
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}
	return sm
}

func (sm *identityStateMachine) Transition(ctx context.Context, actor ActorRef, identity *Identity, target IdentityStatus) (*Identity, error) {
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	identity.EnsureStatus()
	from := identity.Status

	if from == target {
		return identity, nil
	}

	if !allowedTransition(from, target) {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{
			"identity": identity.ID.String(),
			"from":     string(from),
			"to":       string(target),
			"actor":    actor.ID,
		})
	}

	updated, err := sm.identities.UpdateStatus(ctx, identity.ID, target)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist status transition")
	}

	sm.logger.Info(
		"identity status transition",
		"identity", identity.ID.String(),
		"from", string(from),
		"to", string(target),
		"actor", actor.ID,
		"at", sm.now(),
	)

	return updated, nil
}

func (sm *identityStateMachine) Suspend(ctx context.Context, actor ActorRef, identity *Identity) (*Identity, error) {
	return sm.Transition(ctx, actor, identity, StatusSuspended)
}

func (sm *identityStateMachine) Reinstate(ctx context.Context, actor ActorRef, identity *Identity) (*Identity, error) {
	return sm.Transition(ctx, actor, identity, StatusActive)
}

func allowedTransition(from, to IdentityStatus) bool {
	for _, next := range transitionGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}
