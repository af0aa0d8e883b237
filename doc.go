// Package auth provides the authentication, session validity, and scoped
// authorization layer for a club management backend (students, coaches,
// classes): JWT issuance, stateful repositories, HTTP helpers, and the
// credential lifecycle around them.
//
// Session validity:
//   - Session tokens are signed JWTs carrying the subject id, role, and
//     issuance time. There is no revocation list; instead every protected
//     request re-validates the token against the live identity row and
//     rejects tokens issued before the identity's last credential
//     rotation. Rotating a credential therefore cuts off every earlier
//     session at once.
//
// Identity lifecycle:
//   - Identities carry an IdentityStatus persisted via Bun. Admins
//     provision dormant accounts that hold a one-time setup token instead
//     of a credential; redeeming the token activates the account.
//     IdentityStateMachine centralizes the suspension and reinstatement
//     graph for admin workflows.
//
// Authorization:
//   - Roles form a closed set (admin, coach, student) with no hierarchy.
//     RequireRole gates by role membership; Authorizer resolves coach
//     ownership edges so coaches only mutate classes they are assigned to
//     and students enrolled in those classes.
//
// Audit:
//   - AuditSink records exactly one immutable row per login attempt,
//     success or failure. Sinks run best-effort (errors are logged) so a
//     slow or failing audit store never changes a login outcome.
package auth
