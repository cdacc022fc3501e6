package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewVerifier(Config{Secret: testSecret, Audience: "registrar"})

	token := signToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"aud":   "registrar",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	session, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.UserID != "user-1" || session.Email != "user@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.IDToken != token {
		t.Fatalf("expected raw token to be retained for custody authentication")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	verifier := NewVerifier(Config{Secret: testSecret})

	token := signToken(t, jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsAudienceMismatch(t *testing.T) {
	verifier := NewVerifier(Config{Secret: testSecret, Audience: "registrar"})

	token := signToken(t, jwt.MapClaims{
		"email": "user@example.com",
		"aud":   "other",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected audience mismatch to be rejected")
	}
}

func TestVerifyRejectsMissingEmail(t *testing.T) {
	verifier := NewVerifier(Config{Secret: testSecret})

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected missing email to be rejected")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewVerifier(Config{Secret: "other-secret"})

	token := signToken(t, jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected bad signature to be rejected")
	}
}

func TestVerifyDevModeSkipsSignature(t *testing.T) {
	verifier := NewVerifier(Config{DevMode: true})

	token := signToken(t, jwt.MapClaims{
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	session, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify dev mode: %v", err)
	}
	if session.Email != "user@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	verifier := NewVerifier(Config{DevMode: true})
	if _, err := verifier.Verify(""); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}
