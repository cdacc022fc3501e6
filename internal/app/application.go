// Package app wires the registrar services together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/communitylink/registrar/internal/app/services/gating"
	"github.com/communitylink/registrar/internal/app/services/registration"
	"github.com/communitylink/registrar/internal/app/services/rules"
	"github.com/communitylink/registrar/internal/app/services/wallets"
	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/app/storage/memory"
	"github.com/communitylink/registrar/internal/custody"
	"github.com/communitylink/registrar/internal/domain/wallet"
	"github.com/communitylink/registrar/internal/logging"
	"github.com/communitylink/registrar/internal/metrics"
)

// CustodyClient is the wallet-custody surface the application consumes.
type CustodyClient interface {
	Authenticate(ctx context.Context, idToken string) (custody.AuthResult, error)
	ListWallets(ctx context.Context, authToken string) ([]wallet.Wallet, error)
}

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation.
type Stores struct {
	Community storage.CommunityStore
	Wallet    storage.WalletStore
	Pending   storage.PendingStore
}

// Config assembles application dependencies.
type Config struct {
	Stores        Stores
	Custody       CustodyClient
	Submitter     registration.ChainSubmitter // nil disables on-chain submission
	PublicOrigin  string
	TargetNetwork string
	Metrics       *metrics.Metrics
	Logger        *logging.Logger
	Now           func() time.Time
}

// Application ties the workflow services together.
type Application struct {
	log *logging.Logger

	Gating       *gating.Service
	Wallets      *wallets.Service
	Registration *registration.Service
	Rules        *rules.Service
}

// New builds a fully initialised application.
func New(cfg Config) (*Application, error) {
	if cfg.Custody == nil {
		return nil, fmt.Errorf("custody client is required")
	}
	if cfg.PublicOrigin == "" {
		return nil, fmt.Errorf("public origin is required")
	}
	if cfg.TargetNetwork == "" {
		cfg.TargetNetwork = "APTOS_TESTNET"
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if cfg.Stores.Community == nil {
		cfg.Stores.Community = mem
	}
	if cfg.Stores.Wallet == nil {
		cfg.Stores.Wallet = mem
	}
	if cfg.Stores.Pending == nil {
		cfg.Stores.Pending = mem
	}

	gatingService := gating.New(cfg.Custody, log)
	walletService := wallets.New(cfg.Custody, cfg.Stores.Wallet, cfg.TargetNetwork, log)
	registrationService := registration.New(registration.Config{
		Store:     cfg.Stores.Community,
		Pending:   cfg.Stores.Pending,
		Wallets:   walletService,
		Submitter: cfg.Submitter,
		Origin:    cfg.PublicOrigin,
		Metrics:   cfg.Metrics,
		Logger:    log,
		Now:       cfg.Now,
	})
	rulesService := rules.New(cfg.Stores.Community, log)

	return &Application{
		log:          log,
		Gating:       gatingService,
		Wallets:      walletService,
		Registration: registrationService,
		Rules:        rulesService,
	}, nil
}
