package auth_test

import (
	"context"
	"time"

	"github.com/traininghall/go-club-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// testConfig implements auth.Config
type testConfig struct {
	signingKey      string
	contextKey      string
	tokenExpiration time.Duration
	setupTokenTTL   time.Duration
	tokenLookup     string
	authScheme      string
	issuer          string
	audience        []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		contextKey:      "session",
		tokenExpiration: time.Hour,
		setupTokenTTL:   24 * time.Hour,
		tokenLookup:     "header:Authorization",
		authScheme:      "Bearer",
		issuer:          "test-issuer",
		audience:        []string{"test-audience"},
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetContextKey() string             { return c.contextKey }
func (c *testConfig) GetTokenExpiration() time.Duration { return c.tokenExpiration }
func (c *testConfig) GetSetupTokenTTL() time.Duration   { return c.setupTokenTTL }
func (c *testConfig) GetTokenLookup() string            { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string             { return c.authScheme }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAudience() []string             { return c.audience }

// quietLogger swallows all output so log calls never fail a test.
type quietLogger struct{}

func (quietLogger) Debug(format string, args ...any) {}
func (quietLogger) Info(format string, args ...any)  {}
func (quietLogger) Warn(format string, args ...any)  {}
func (quietLogger) Error(format string, args ...any) {}

// MockLogger implements auth.Logger for construction tests
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockIdentityStore implements auth.IdentityTracker
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.Identity, error) {
	args := m.Called(ctx, id)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityStore) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	args := m.Called(ctx, email)
	identity, _ := args.Get(0).(*auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityStore) TrackAttemptedLogin(ctx context.Context, identity *auth.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockIdentityStore) TrackSuccessfulLogin(ctx context.Context, identity *auth.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

// MockOwnershipStore implements auth.OwnershipStore
type MockOwnershipStore struct {
	mock.Mock
}

func (m *MockOwnershipStore) HasEdge(ctx context.Context, coachID, classID uuid.UUID) (bool, error) {
	args := m.Called(ctx, coachID, classID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOwnershipStore) ClassIDsForStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, studentID)
	classIDs, _ := args.Get(0).([]uuid.UUID)
	return classIDs, args.Error(1)
}

// MockTokenValidator implements auth.TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(tokenString string) (auth.SessionClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(auth.SessionClaims)
	return claims, args.Error(1)
}

// capturingAuditSink collects every attempt it records.
type capturingAuditSink struct {
	attempts []auth.AuditAttempt
}

func (c *capturingAuditSink) Record(ctx context.Context, attempt auth.AuditAttempt) error {
	c.attempts = append(c.attempts, attempt)
	return nil
}

func (c *capturingAuditSink) last() auth.AuditAttempt {
	return c.attempts[len(c.attempts)-1]
}

// capturingMailer records dispatched activation emails.
type capturingMailer struct {
	emails []sentActivation
	fail   error
}

type sentActivation struct {
	Email       string
	Token       string
	DisplayName string
}

func (m *capturingMailer) SendActivationEmail(ctx context.Context, email, token, displayName string) error {
	if m.fail != nil {
		return m.fail
	}
	m.emails = append(m.emails, sentActivation{Email: email, Token: token, DisplayName: displayName})
	return nil
}
