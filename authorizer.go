package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RequireRole admits the context when its role is in the allowed set.
// An empty set admits any authenticated principal. Roles carry no
// hierarchy here: admin passes only where the set names admin.
func RequireRole(actx *AuthenticatedContext, allowed ...Role) error {
	if actx == nil {
		return ErrUnauthenticated
	}

	if len(allowed) == 0 {
		return nil
	}

	if RoleSet(allowed).Contains(actx.Role) {
		return nil
	}

	return ErrForbidden.Clone().WithMetadata(map[string]any{
		"subject": actx.SubjectID.String(),
		"role":    string(actx.Role),
	})
}

// Authorizer enforces ownership scoping for coach principals: a coach
// may only touch classes they hold an ownership edge to, and students
// only through one of those classes.
type Authorizer struct {
	ownership OwnershipStore
	logger    Logger
}

// NewAuthorizer returns an ownership-aware authorizer.
func NewAuthorizer(ownership OwnershipStore) *Authorizer {
	return &Authorizer{
		ownership: ownership,
		logger:    defLogger{},
	}
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// RequireOwnership verifies the caller may act on the class. Admins pass
// unconditionally; coaches need the (coach, class) edge; everyone else
// is rejected. A missing edge is Forbidden, never NotFound, so callers
// cannot learn whether the class exists.
func (a *Authorizer) RequireOwnership(ctx context.Context, actx *AuthenticatedContext, classID uuid.UUID) error {
	if actx == nil {
		return ErrUnauthenticated
	}

	if actx.IsAdmin() {
		return nil
	}

	if actx.Role != RoleCoach {
		return ErrForbidden
	}

	ok, err := a.ownership.HasEdge(ctx, actx.SubjectID, classID)
	if err != nil {
		a.logger.Error("ownership edge lookup failed", "error", err, "coach", actx.SubjectID.String(), "class", classID.String())
		return goerrors.Wrap(err, goerrors.CategoryInternal, "ownership lookup failed")
	}

	if !ok {
		return ErrForbidden.Clone().WithMetadata(map[string]any{
			"coach": actx.SubjectID.String(),
			"class": classID.String(),
		})
	}

	return nil
}

// RequireOwnershipOfStudent resolves the student's class memberships and
// admits the caller when an ownership edge holds for at least one of them.
// A student with no enrollments is Forbidden for coaches, same as a
// student enrolled only in someone else's classes.
func (a *Authorizer) RequireOwnershipOfStudent(ctx context.Context, actx *AuthenticatedContext, studentID uuid.UUID) error {
	if actx == nil {
		return ErrUnauthenticated
	}

	if actx.IsAdmin() {
		return nil
	}

	if actx.Role != RoleCoach {
		return ErrForbidden
	}

	classIDs, err := a.ownership.ClassIDsForStudent(ctx, studentID)
	if err != nil {
		a.logger.Error("student enrollment lookup failed", "error", err, "student", studentID.String())
		return goerrors.Wrap(err, goerrors.CategoryInternal, "enrollment lookup failed")
	}

	for _, classID := range classIDs {
		ok, err := a.ownership.HasEdge(ctx, actx.SubjectID, classID)
		if err != nil {
			a.logger.Error("ownership edge lookup failed", "error", err, "coach", actx.SubjectID.String(), "class", classID.String())
			return goerrors.Wrap(err, goerrors.CategoryInternal, "ownership lookup failed")
		}
		if ok {
			return nil
		}
	}

	return ErrForbidden.Clone().WithMetadata(map[string]any{
		"coach":   actx.SubjectID.String(),
		"student": studentID.String(),
	})
}
