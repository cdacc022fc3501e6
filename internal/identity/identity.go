// Package identity wraps the external identity-provider session. It verifies
// ID tokens and exposes the signed-in identity for downstream authentication.
package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/communitylink/registrar/internal/errors"
)

// Session is the authenticated state derived from an ID token. The token is
// retained because the wallet-custody service authenticates with it.
type Session struct {
	UserID  string
	Email   string
	IDToken string
}

// Claims are the ID token claims the registrar relies on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates identity-provider ID tokens.
type Verifier struct {
	audience string
	secret   []byte
	devMode  bool
}

// Config controls token verification.
type Config struct {
	// Audience, when set, must appear in the token's aud claim.
	Audience string
	// Secret verifies HMAC-signed tokens.
	Secret string
	// DevMode parses tokens without signature verification. Expiry and
	// audience checks still apply.
	DevMode bool
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		audience: cfg.Audience,
		secret:   []byte(cfg.Secret),
		devMode:  cfg.DevMode,
	}
}

// Verify parses and validates an ID token, returning the session it carries.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Session{}, errors.Unauthorized("missing ID token")
	}

	claims := &Claims{}
	var err error
	if v.devMode {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	} else {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.InvalidToken(nil).WithDetails("alg", token.Header["alg"])
			}
			return v.secret, nil
		})
	}
	if err != nil {
		return Session{}, errors.InvalidToken(err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return Session{}, errors.InvalidToken(nil).WithDetails("reason", "token expired")
	}
	if v.audience != "" {
		found := false
		for _, aud := range claims.Audience {
			if aud == v.audience {
				found = true
				break
			}
		}
		if !found {
			return Session{}, errors.InvalidToken(nil).WithDetails("reason", "audience mismatch")
		}
	}
	if claims.Email == "" {
		return Session{}, errors.InvalidToken(nil).WithDetails("reason", "email claim missing")
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.Email
	}
	return Session{UserID: userID, Email: claims.Email, IDToken: tokenString}, nil
}
