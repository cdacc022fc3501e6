// Package middleware provides HTTP middleware for the registrar.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/communitylink/registrar/internal/errors"
	"github.com/communitylink/registrar/internal/httputil"
	"github.com/communitylink/registrar/internal/identity"
	"github.com/communitylink/registrar/internal/logging"
)

type sessionContextKey struct{}

// SessionAuth verifies the bearer ID token on each request and stores the
// resulting session in the request context.
type SessionAuth struct {
	verifier    *identity.Verifier
	logger      *logging.Logger
	skipPaths   map[string]bool
	skipPrefixes []string
}

// NewSessionAuth creates the session authentication middleware. Paths in
// skipPaths bypass verification; entries ending in "/" match as prefixes
// (deep-link capture routes carry arbitrary identifiers).
func NewSessionAuth(verifier *identity.Verifier, logger *logging.Logger, skipPaths []string) *SessionAuth {
	if logger == nil {
		logger = logging.NewDefault("middleware")
	}

	skip := make(map[string]bool)
	var prefixes []string
	for _, path := range skipPaths {
		// The bare root is an exact match, not a match-everything prefix.
		if path != "/" && strings.HasSuffix(path, "/") {
			prefixes = append(prefixes, path)
			continue
		}
		skip[path] = true
	}

	return &SessionAuth{
		verifier:    verifier,
		logger:      logger,
		skipPaths:   skip,
		skipPrefixes: prefixes,
	}
}

// Handler returns the middleware handler.
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondError(w, r, errors.Unauthorized("invalid Authorization header format"))
			return
		}

		session, err := m.verifier.Verify(parts[1])
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("token verification failed")
			m.respondError(w, r, err)
			return
		}

		ctx := WithSession(r.Context(), session)
		ctx = logging.WithUserID(ctx, session.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionAuth) skipped(path string) bool {
	if m.skipPaths[path] {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *SessionAuth) respondError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, err)
	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
	}).Warn("authentication failed")
}

// WithSession stores a session in the context.
func WithSession(ctx context.Context, session identity.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFrom extracts the session from a context.
func SessionFrom(ctx context.Context) (identity.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(identity.Session)
	return session, ok
}
