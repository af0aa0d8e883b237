package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/traininghall/go-club-auth/middleware/tokenware"
)

// LoginPayload carries the credentials posted to the login route.
type LoginPayload interface {
	GetEmail() string
	GetPassword() string
}

// RouteLoginPayload is the default body shape for the login route.
type RouteLoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (p RouteLoginPayload) GetEmail() string    { return p.Email }
func (p RouteLoginPayload) GetPassword() string { return p.Password }

// RouteAuthenticator glues the Authenticator to go-router handlers:
// login and logout routes, protected route middleware, and cookie
// management for browser clients.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error // TODO: make functions
	ErrorHandler     func(c router.Context, err error) error // TODO: make functions
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := DefaultTokenExpiration
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = cfg.GetTokenExpiration()
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute gates a route behind session validation. The check runs
// in full on every request, so a credential rotation cuts off earlier
// tokens immediately. Passing roles narrows access to those roles.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error, roles ...Role) router.MiddlewareFunc {
	allowed := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed = append(allowed, string(role))
	}

	return tokenware.New(tokenware.Config{
		ErrorHandler:     errorHandler,
		SessionValidator: a.sessionAdapter(),
		AuthScheme:       cfg.GetAuthScheme(),
		ContextKey:       cfg.GetContextKey(),
		TokenLookup:      cfg.GetTokenLookup(),
		AllowedRoles:     allowed,
		ContextEnricher: func(c context.Context, session tokenware.Session) context.Context {
			if rs, ok := session.(*routeSession); ok {
				return WithAuthContext(c, rs.actx)
			}
			return c
		},
	})
}

// Login authenticates the posted credentials and, on success, sets the
// session cookie and responds with the token and public identity.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) error {
	result, err := a.auth.Login(ctx.Context(), payload.GetEmail(), payload.GetPassword(), ClientMetaFromRequest(ctx))
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setCookieToken(ctx, result.Token, a.cookieDuration)

	return ctx.Status(http.StatusOK).SendString(print.MaybePrettyJSON(result))
}

// LoginHandler is a ready to mount handler around Login.
func (a *RouteAuthenticator) LoginHandler() router.HandlerFunc {
	return func(ctx router.Context) error {
		payload := RouteLoginPayload{}
		if err := ctx.Bind(&payload); err != nil {
			return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "invalid login payload").
				WithCode(errors.CodeBadRequest))
		}

		if err := a.Login(ctx, payload); err != nil {
			return a.ErrorHandler(ctx, err)
		}
		return nil
	}
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// MakeClientRouteAuthErrorHandler builds the error handler used by
// protected routes. With optional set, failed auth falls through to the
// handler chain instead of erroring.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if errors.Is(err, tokenware.ErrRoleNotAllowed) {
			// the session checked out, the role did not: forbidden,
			// not a credential problem
			richErr = ErrForbidden
		} else if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// sessionAdapter exposes ValidateSession through the tokenware surface.
func (a *RouteAuthenticator) sessionAdapter() tokenware.SessionValidator {
	return tokenware.SessionValidatorFunc(func(ctx context.Context, rawToken string) (tokenware.Session, error) {
		actx, err := a.auth.ValidateSession(ctx, rawToken)
		if err != nil {
			return nil, err
		}
		return &routeSession{actx: actx}, nil
	})
}

type routeSession struct {
	actx *AuthenticatedContext
}

func (s *routeSession) SubjectID() string { return s.actx.SubjectID.String() }
func (s *routeSession) Role() string      { return string(s.actx.Role) }

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.Status(richErr.Code).SendString(print.MaybePrettyJSON(map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	}))
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.Status(code).SendString(print.MaybePrettyJSON(map[string]any{
			"error": richErr.Message,
		}))
	}
}

// ClientMetaFromRequest extracts the request metadata recorded with
// every login attempt.
func ClientMetaFromRequest(c router.Context) ClientMeta {
	ip := c.GetString("X-Forwarded-For", "")
	if ip == "" {
		ip = c.GetString("X-Real-Ip", "")
	}
	return ClientMeta{
		IP:        ip,
		UserAgent: c.GetString("User-Agent", ""),
	}
}
