// Package auth resolves the calling user and carries the user id through
// request contexts.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

type contextKey string

const userIDKey contextKey = "userID"

// DefaultUserHeader is read by HeaderAuthenticator.
const DefaultUserHeader = "X-User-ID"

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id or ErrNotAuthenticated.
func UserIDFromContext(ctx context.Context) (string, error) {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id, nil
	}
	return "", domain.ErrNotAuthenticated
}

// IsAuthenticated reports whether ctx carries a user id.
func IsAuthenticated(ctx context.Context) bool {
	_, err := UserIDFromContext(ctx)
	return err == nil
}

// Authenticator extracts a verified user id from an incoming request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// ValidateFunc verifies a Google ID token for an audience.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleIDTokenAuthenticator verifies "Authorization: Bearer <id token>"
// headers issued by Google Identity. The user id is the token subject.
type GoogleIDTokenAuthenticator struct {
	audience string
	validate ValidateFunc
}

// NewGoogleIDTokenAuthenticator validates tokens against audience (the OAuth client id).
func NewGoogleIDTokenAuthenticator(audience string) *GoogleIDTokenAuthenticator {
	return &GoogleIDTokenAuthenticator{audience: audience, validate: idtoken.Validate}
}

// NewGoogleIDTokenAuthenticatorWithValidator is used by tests to stub token validation.
func NewGoogleIDTokenAuthenticatorWithValidator(audience string, validate ValidateFunc) *GoogleIDTokenAuthenticator {
	return &GoogleIDTokenAuthenticator{audience: audience, validate: validate}
}

func (a *GoogleIDTokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", domain.ErrNotAuthenticated
	}

	payload, err := a.validate(r.Context(), token, a.audience)
	if err != nil {
		return "", fmt.Errorf("Authenticate: %w: %v", domain.ErrNotAuthenticated, err)
	}
	if payload.Subject == "" {
		return "", fmt.Errorf("Authenticate: %w: token has no subject", domain.ErrNotAuthenticated)
	}
	return payload.Subject, nil
}

// HeaderAuthenticator trusts a user id header. Only for local development
// and deployments behind an authenticating proxy.
type HeaderAuthenticator struct {
	Header string
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := a.Header
	if header == "" {
		header = DefaultUserHeader
	}
	id := strings.TrimSpace(r.Header.Get(header))
	if id == "" {
		return "", domain.ErrNotAuthenticated
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
