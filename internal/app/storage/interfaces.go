// Package storage defines the persistence contracts for the registrar.
//
// The underlying model is a small key/value store holding JSON-serialized
// records under fixed keys. The interfaces below make the single-slot nature
// of the community record an explicit contract rather than an accident of
// key reuse.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/domain/wallet"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Fixed storage keys. These names are part of the persistence contract.
const (
	KeyCommunity     = "communityData"
	KeyWallet        = "aptosWallet"
	KeyPendingUserID = "pendingUserId"
	KeyPendingMember = "pendingMemberId"
)

// Deep-link roles that may carry a pending identifier.
const (
	RoleUser   = "user"
	RoleMember = "member"
)

// PendingKey maps a deep-link role to its storage key.
func PendingKey(role string) (string, error) {
	switch role {
	case RoleUser:
		return KeyPendingUserID, nil
	case RoleMember:
		return KeyPendingMember, nil
	default:
		return "", fmt.Errorf("unknown pending role %q", role)
	}
}

// CommunityStore is the single-record community repository. Put replaces the
// whole record; there is exactly one current community per store.
type CommunityStore interface {
	PutCommunity(ctx context.Context, c community.Community) (community.Community, error)
	GetCommunity(ctx context.Context) (community.Community, error)
	// UpdateRules rewrites only the rules field of the stored record,
	// leaving every other field untouched.
	UpdateRules(ctx context.Context, rules string) (community.Community, error)
}

// WalletStore caches the most recently resolved custody wallet.
type WalletStore interface {
	PutWallet(ctx context.Context, w wallet.Wallet) error
	GetWallet(ctx context.Context) (wallet.Wallet, error)
}

// PendingStore holds deep-link identifiers awaiting consumption. Identifiers
// do not expire and are overwritten by the next capture for the same role.
type PendingStore interface {
	PutPending(ctx context.Context, role, id string) error
	GetPending(ctx context.Context, role string) (string, error)
	// ConsumePending returns the identifier and removes it.
	ConsumePending(ctx context.Context, role string) (string, error)
}
