// Package wallets resolves the target-network wallet from the custody service.
package wallets

import (
	"context"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/wallet"
	"github.com/communitylink/registrar/internal/logging"
)

// Lister is the custody wallet-listing operation.
type Lister interface {
	ListWallets(ctx context.Context, authToken string) ([]wallet.Wallet, error)
}

// Service fetches wallet lists and resolves the target-network wallet.
type Service struct {
	custody Lister
	store   storage.WalletStore
	network string
	log     *logging.Logger
}

// New constructs a wallet resolution service. network is the fixed network
// name the registrar selects, e.g. APTOS_TESTNET.
func New(custody Lister, store storage.WalletStore, network string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("wallets")
	}
	return &Service{
		custody: custody,
		store:   store,
		network: network,
		log:     log,
	}
}

// List fetches the full custody wallet list and resolves the target wallet.
// Every successful fetch that resolves a wallet overwrites the cached record,
// regardless of which view triggered the fetch.
func (s *Service) List(ctx context.Context, authToken string) ([]wallet.Wallet, wallet.Resolution, error) {
	list, err := s.custody.ListWallets(ctx, authToken)
	if err != nil {
		return nil, wallet.Resolution{}, err
	}

	resolution := wallet.Select(list, s.network)
	if resolution.Found {
		if err := s.store.PutWallet(ctx, resolution.Wallet); err != nil {
			// Cache write failure does not invalidate the fetch result.
			s.log.WithContext(ctx).WithError(err).Warn("wallet cache write failed")
		}
	} else {
		s.log.WithContext(ctx).WithField("network", s.network).
			Debug("no wallet matched target network")
	}
	return list, resolution, nil
}

// Resolve returns the target-network wallet for the session. An empty
// resolution (Found=false) is a valid outcome, not an error.
func (s *Service) Resolve(ctx context.Context, authToken string) (wallet.Resolution, error) {
	_, resolution, err := s.List(ctx, authToken)
	return resolution, err
}

// Cached returns the last cached wallet record.
func (s *Service) Cached(ctx context.Context) (wallet.Wallet, error) {
	return s.store.GetWallet(ctx)
}
