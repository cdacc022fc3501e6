// Package redis implements the storage interfaces on Redis, holding
// JSON-serialized records under the fixed keys. It is the production
// analogue of the browser-local key/value store the workflow originated on.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/domain/wallet"
)

// Store implements the storage interfaces backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ storage.CommunityStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.PendingStore = (*Store)(nil)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces all keys, e.g. "registrar:".
	Prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "registrar:"
	}
	return &Store{client: client, prefix: prefix}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "registrar:"
	}
	return &Store{client: client, prefix: prefix}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) putJSON(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(name), data, 0).Err()
}

func (s *Store) getJSON(ctx context.Context, name string, target interface{}) error {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// --- CommunityStore ----------------------------------------------------------

func (s *Store) PutCommunity(ctx context.Context, c community.Community) (community.Community, error) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.putJSON(ctx, storage.KeyCommunity, c); err != nil {
		return community.Community{}, err
	}
	return c, nil
}

func (s *Store) GetCommunity(ctx context.Context) (community.Community, error) {
	var c community.Community
	if err := s.getJSON(ctx, storage.KeyCommunity, &c); err != nil {
		return community.Community{}, err
	}
	return c, nil
}

func (s *Store) UpdateRules(ctx context.Context, rules string) (community.Community, error) {
	var updated community.Community

	// Cross-process writers race with last-write-wins semantics; the watch
	// keeps a single update from interleaving with a concurrent rewrite.
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, s.key(storage.KeyCommunity)).Bytes()
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		var c community.Community
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		c.Rules = rules
		c.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(c)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(storage.KeyCommunity), payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = c
		return nil
	}, s.key(storage.KeyCommunity))
	if err != nil {
		return community.Community{}, err
	}
	return updated, nil
}

// --- WalletStore -------------------------------------------------------------

func (s *Store) PutWallet(ctx context.Context, w wallet.Wallet) error {
	return s.putJSON(ctx, storage.KeyWallet, w)
}

func (s *Store) GetWallet(ctx context.Context) (wallet.Wallet, error) {
	var w wallet.Wallet
	if err := s.getJSON(ctx, storage.KeyWallet, &w); err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

// --- PendingStore ------------------------------------------------------------

func (s *Store) PutPending(ctx context.Context, role, id string) error {
	key, err := storage.PendingKey(role)
	if err != nil {
		return err
	}
	return s.putJSON(ctx, key, id)
}

func (s *Store) GetPending(ctx context.Context, role string) (string, error) {
	key, err := storage.PendingKey(role)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.getJSON(ctx, key, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ConsumePending(ctx context.Context, role string) (string, error) {
	key, err := storage.PendingKey(role)
	if err != nil {
		return "", err
	}

	data, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", err
	}
	return id, nil
}
