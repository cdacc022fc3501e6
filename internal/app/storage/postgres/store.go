// Package postgres implements the storage interfaces on a PostgreSQL
// key/value table holding JSON-serialized records under the fixed keys.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/domain/wallet"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.CommunityStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.PendingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Bootstrap creates the backing table if it does not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registrar_records (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO registrar_records (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`, key, data, time.Now().UTC())
	return err
}

func (s *Store) getJSON(ctx context.Context, key string, target interface{}) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM registrar_records WHERE key = $1
	`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return community.Community{}, err
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM registrar_records WHERE key = $1 FOR UPDATE
	`, storage.KeyCommunity).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return community.Community{}, storage.ErrNotFound
	}
	if err != nil {
		return community.Community{}, err
	}

	var c community.Community
	if err := json.Unmarshal(data, &c); err != nil {
		return community.Community{}, err
	}
	c.Rules = rules
	c.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(c)
	if err != nil {
		return community.Community{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE registrar_records SET value = $2, updated_at = $3 WHERE key = $1
	`, storage.KeyCommunity, updated, c.UpdatedAt); err != nil {
		return community.Community{}, err
	}

	if err := tx.Commit(); err != nil {
		return community.Community{}, err
	}
	return c, nil
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

	var data []byte
	err = s.db.QueryRowContext(ctx, `
		DELETE FROM registrar_records WHERE key = $1 RETURNING value
	`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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
