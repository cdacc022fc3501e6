package memory

import (
	"context"
	"sync"
	"time"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/domain/wallet"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu           sync.RWMutex
	community    community.Community
	hasCommunity bool
	wallet       wallet.Wallet
	hasWallet    bool
	pending      map[string]string
}

var _ storage.CommunityStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.PendingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{pending: make(map[string]string)}
}

// CommunityStore implementation ----------------------------------------------

func (s *Store) PutCommunity(_ context.Context, c community.Community) (community.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	s.community = c
	s.hasCommunity = true
	return c, nil
}

func (s *Store) GetCommunity(_ context.Context) (community.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasCommunity {
		return community.Community{}, storage.ErrNotFound
	}
	return s.community, nil
}

func (s *Store) UpdateRules(_ context.Context, rules string) (community.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCommunity {
		return community.Community{}, storage.ErrNotFound
	}
	s.community.Rules = rules
	s.community.UpdatedAt = time.Now().UTC()
	return s.community, nil
}

// WalletStore implementation --------------------------------------------------

func (s *Store) PutWallet(_ context.Context, w wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallet = w
	s.hasWallet = true
	return nil
}

func (s *Store) GetWallet(_ context.Context) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasWallet {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return s.wallet, nil
}

// PendingStore implementation -------------------------------------------------

func (s *Store) PutPending(_ context.Context, role, id string) error {
	key, err := storage.PendingKey(role)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = id
	return nil
}

func (s *Store) GetPending(_ context.Context, role string) (string, error) {
	key, err := storage.PendingKey(role)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pending[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return id, nil
}

func (s *Store) ConsumePending(_ context.Context, role string) (string, error) {
	key, err := storage.PendingKey(role)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pending[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	delete(s.pending, key)
	return id, nil
}
