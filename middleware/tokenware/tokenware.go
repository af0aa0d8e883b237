// Package tokenware is the bearer-token middleware for protected routes.
// Unlike a plain JWT filter it runs the full session check on every
// request: signature, expiry, subject existence, and staleness against
// the subject's last credential rotation. Claims are never cached
// between requests.
package tokenware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization

	// ErrTokenMissingOrMalformed is returned when no extractor finds a token.
	ErrTokenMissingOrMalformed = errors.New("missing or malformed bearer token")

	// ErrRoleNotAllowed is returned for a validated session whose role is
	// not in the route's admission list. Handlers map it to forbidden,
	// never to unauthorized: the caller is known, just not admitted.
	ErrRoleNotAllowed = errors.New("role not admitted")
)

// Session is the validated principal exposed to handlers, mirroring the
// auth package's authenticated context without an import cycle.
type Session interface {
	SubjectID() string
	Role() string
}

// SessionValidator runs the full per-request session check.
type SessionValidator interface {
	Validate(ctx context.Context, rawToken string) (Session, error)
}

// SessionValidatorFunc adapts a function into a SessionValidator.
type SessionValidatorFunc func(ctx context.Context, rawToken string) (Session, error)

// Validate satisfies the SessionValidator interface.
func (f SessionValidatorFunc) Validate(ctx context.Context, rawToken string) (Session, error) {
	if f == nil {
		return nil, ErrTokenMissingOrMalformed
	}
	return f(ctx, rawToken)
}

// Config drives the middleware.
type Config struct {
	// Filter skips the middleware when it returns true.
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// SessionValidator is required for locally issued session tokens.
	SessionValidator SessionValidator

	// ContextKey is where the validated Session lands in router locals.
	ContextKey string
	// TokenLookup is a comma separated list of extractor specs, e.g.
	// "header:Authorization,cookie:session,query:token".
	TokenLookup string
	AuthScheme  string

	// AllowedRoles admits only the listed roles. Empty admits any
	// validated session. There is no role hierarchy.
	AllowedRoles []string

	// JWKSetURLs enables a fallback validator for externally issued
	// tokens (e.g. a parent org's IdP) verified against remote JWK sets.
	JWKSetURLs []string
	// ExternalKeyFunc overrides the keyfunc used for external tokens.
	ExternalKeyFunc jwt.Keyfunc

	// ContextEnricher propagates the session into the standard Go
	// context for downstream guard usage.
	ContextEnricher func(c context.Context, session Session) context.Context
}

// New returns the middleware for the given config.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := getDefaultConfig(config...)
		external := cfg.externalValidator()

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := extractRawToken(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			session, err := cfg.SessionValidator.Validate(ctx.Context(), raw)
			if err != nil && external != nil {
				session, err = external.Validate(ctx.Context(), raw)
			}
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := checkAllowedRoles(session, cfg.AllowedRoles); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, session)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), session))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// SessionFromContext reads the validated session a handler runs behind.
func SessionFromContext(ctx router.Context, key string) (Session, bool) {
	if key == "" {
		key = "session"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(Session)
	return session, ok
}

func checkAllowedRoles(session Session, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if session.Role() == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrRoleNotAllowed, session.Role())
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrMalformed.Error())
			}
			if errors.Is(err, ErrRoleNotAllowed) {
				return c.Status(router.StatusForbidden).SendString("Access denied")
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.SessionValidator == nil {
		panic("AUTH: token middleware configuration: SessionValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// externalValidator builds the fallback validator for tokens signed by
// an external identity provider, verified against JWK sets.
func (cfg *Config) externalValidator() SessionValidator {
	kf := cfg.ExternalKeyFunc
	if kf == nil {
		if len(cfg.JWKSetURLs) == 0 {
			return nil
		}
		var err error
		kf, err = jwkSetKeyfunc(cfg.JWKSetURLs)
		if err != nil {
			panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
		}
	}

	return SessionValidatorFunc(func(_ context.Context, raw string) (Session, error) {
		token, err := jwt.Parse(raw, kf)
		if err != nil || !token.Valid {
			return nil, ErrTokenMissingOrMalformed
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, ErrTokenMissingOrMalformed
		}

		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" {
			return nil, ErrTokenMissingOrMalformed
		}

		return externalSession{subject: sub, role: role}, nil
	})
}

type externalSession struct {
	subject string
	role    string
}

func (s externalSession) SubjectID() string { return s.subject }
func (s externalSession) Role() string      { return s.role }

func keyfuncOptions() keyfunc.Options {
	return keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func jwkSetKeyfunc(urls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions()

	m := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set URLs: %w", err)
	}

	return multi.Keyfunc, nil
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// TokenExtractor pulls a raw token out of the request.
type TokenExtractor func(c router.Context) (string, error)

// GetExtractors parses a lookup spec into extractor functions.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:session,query:token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		// a spec without a source name cannot extract anything
		if len(parts) < 2 || parts[1] == "" {
			continue
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

func extractRawToken(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// tokenFromHeader returns a function that extracts a token from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrTokenMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts a token from the query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts a token from the url params.
func tokenFromParam(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts a token from the named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
