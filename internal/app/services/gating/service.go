// Package gating tracks the session and wallet-connection state machine.
//
// A visitor moves SignedOut -> SignedIn/Disconnected on identity sign-in,
// and SignedIn/Disconnected -> SignedIn/Connected when the wallet-custody
// authenticate call succeeds. There is no automatic retry and no timeout
// beyond the custody client's; a failed connect leaves the state unchanged
// and the user re-triggers connect.
package gating

import (
	"context"
	"sync"

	"github.com/communitylink/registrar/internal/custody"
	"github.com/communitylink/registrar/internal/identity"
	"github.com/communitylink/registrar/internal/logging"
)

// State is a gating state.
type State string

const (
	StateSignedOut    State = "signed_out"
	StateDisconnected State = "signed_in_disconnected"
	StateConnected    State = "signed_in_connected"
)

// Authenticator is the custody authenticate operation.
type Authenticator interface {
	Authenticate(ctx context.Context, idToken string) (custody.AuthResult, error)
}

// Service holds per-user wallet-connection state.
type Service struct {
	custody Authenticator
	log     *logging.Logger

	mu         sync.RWMutex
	authTokens map[string]string // user ID -> custody auth token
}

// New constructs a gating service.
func New(authenticator Authenticator, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("gating")
	}
	return &Service{
		custody:    authenticator,
		log:        log,
		authTokens: make(map[string]string),
	}
}

// StateFor reports the gating state for a session. A nil session is signed
// out; a session without a custody token is disconnected.
func (s *Service) StateFor(session *identity.Session) State {
	if session == nil {
		return StateSignedOut
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.authTokens[session.UserID]; ok {
		return StateConnected
	}
	return StateDisconnected
}

// Connect authenticates the session's ID token with the custody service.
// On failure the state stays Disconnected; the error is logged and returned
// so the caller can surface it, but nothing retries automatically.
func (s *Service) Connect(ctx context.Context, session identity.Session) error {
	result, err := s.custody.Authenticate(ctx, session.IDToken)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("user_id", session.UserID).
			Warn("wallet connect failed")
		return err
	}

	s.mu.Lock()
	s.authTokens[session.UserID] = result.AuthToken
	s.mu.Unlock()

	s.log.WithContext(ctx).WithField("user_id", session.UserID).Info("wallet connected")
	return nil
}

// AuthToken returns the custody auth token for a connected user.
func (s *Service) AuthToken(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.authTokens[userID]
	return token, ok
}

// Disconnect drops the user's custody session.
func (s *Service) Disconnect(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authTokens, userID)
}
