// Package registration implements the community registration workflow.
package registration

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/domain/wallet"
	"github.com/communitylink/registrar/internal/errors"
	"github.com/communitylink/registrar/internal/identity"
	"github.com/communitylink/registrar/internal/logging"
	"github.com/communitylink/registrar/internal/metrics"
)

// WalletResolver resolves the target-network wallet for a custody session.
type WalletResolver interface {
	Resolve(ctx context.Context, authToken string) (wallet.Resolution, error)
}

// ChainSubmitter publishes a registration on-chain.
type ChainSubmitter interface {
	SubmitRegistration(ctx context.Context, walletAddress, communityID, name, rules string) (string, error)
}

// Input carries the registration form fields. CommunityID, Name, and Rules
// are required; the wallet address is resolved server-side.
type Input struct {
	CommunityID string
	Name        string
	Rules       string
	// AuthToken is the custody session token used for wallet resolution.
	// Empty means no custody session; the wallet stays unresolved.
	AuthToken string
}

// Result is the outcome of a registration submit. ChainErr is set when local
// persistence succeeded but the on-chain publish failed; the local record is
// never rolled back in that case.
type Result struct {
	Community community.Community
	TxHash    string
	ChainErr  error
}

// Config wires the registration service.
type Config struct {
	Store   storage.CommunityStore
	Pending storage.PendingStore
	Wallets WalletResolver
	// Submitter is nil when on-chain submission is disabled.
	Submitter ChainSubmitter
	Origin    string
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
	// Now supplies the submit-time clock; defaults to time.Now.
	Now func() time.Time
}

// Service orchestrates registration submissions.
type Service struct {
	store     storage.CommunityStore
	pending   storage.PendingStore
	wallets   WalletResolver
	submitter ChainSubmitter
	origin    string
	metrics   *metrics.Metrics
	log       *logging.Logger
	now       func() time.Time

	// submitMu is the sole de-duplication mechanism for concurrent submits:
	// a second submit while one is in flight is rejected, never queued.
	submitMu sync.Mutex
}

// New constructs the registration service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("registration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		pending:   cfg.Pending,
		wallets:   cfg.Wallets,
		submitter: cfg.Submitter,
		origin:    strings.TrimRight(cfg.Origin, "/"),
		metrics:   cfg.Metrics,
		log:       log,
		now:       now,
	}
}

// CapturePending stores a deep-link identifier for later pre-fill. The
// identifier itself is stored as-is; only the role is validated.
func (s *Service) CapturePending(ctx context.Context, role, id string) error {
	if err := s.pending.PutPending(ctx, role, id); err != nil {
		return errors.InvalidInput(err.Error())
	}
	return nil
}

// PendingFor returns the captured identifier for a role, or "" when none.
func (s *Service) PendingFor(ctx context.Context, role string) (string, error) {
	id, err := s.pending.GetPending(ctx, role)
	if stderrors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return id, err
}

// Register runs the registration workflow: resolve the wallet best-effort,
// derive the shareable link, persist the record, and optionally publish it
// on-chain. Local persistence failure is fatal; on-chain failure is reported
// in the result without touching the persisted record.
func (s *Service) Register(ctx context.Context, session identity.Session, input Input) (Result, error) {
	if !s.submitMu.TryLock() {
		return Result{}, errors.Conflict("a registration is already in flight")
	}
	defer s.submitMu.Unlock()

	record := community.Community{
		CommunityID: strings.TrimSpace(input.CommunityID),
		Name:        strings.TrimSpace(input.Name),
		Rules:       input.Rules,
		UserID:      session.Email,
	}
	if err := record.Validate(); err != nil {
		s.recordOutcome(metrics.OutcomeFailed)
		return Result{}, errors.InvalidInput(err.Error())
	}

	// Wallet resolution is best effort: a fetch failure or an unresolved
	// network leaves the address empty and never blocks registration.
	if input.AuthToken != "" {
		resolution, err := s.wallets.Resolve(ctx, input.AuthToken)
		switch {
		case err != nil:
			s.log.WithContext(ctx).WithError(err).Warn("wallet resolution failed; registering without address")
		case resolution.Found:
			record.WalletAddress = resolution.Wallet.Address
		}
	}

	submittedAt := s.now()
	record.UniqueLink = community.BuildLink(s.origin, record.CommunityID, submittedAt)
	record.CreatedAt = submittedAt.UTC()

	persisted, err := s.store.PutCommunity(ctx, record)
	if err != nil {
		s.recordOutcome(metrics.OutcomeFailed)
		return Result{}, errors.Internal("persist community record", err)
	}

	// The captured pre-fill identifier is consumed by a successful submit.
	if _, err := s.pending.ConsumePending(ctx, storage.RoleUser); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		s.log.WithContext(ctx).WithError(err).Warn("consume pending identifier failed")
	}

	result := Result{Community: persisted}
	if s.submitter != nil {
		start := s.now()
		hash, err := s.submitter.SubmitRegistration(ctx, persisted.WalletAddress, persisted.CommunityID, persisted.Name, persisted.Rules)
		if s.metrics != nil {
			s.metrics.RecordChainSubmit(time.Since(start))
		}
		if err != nil {
			// Local persistence already succeeded; report the chain failure
			// as recoverable instead of rolling back.
			result.ChainErr = errors.ChainSubmit(err)
			s.recordOutcome(metrics.OutcomeLocalOnly)
			s.log.WithContext(ctx).WithError(err).WithField("community_id", persisted.CommunityID).
				Error("on-chain submission failed; local record retained")
			return result, nil
		}
		result.TxHash = hash
	}

	s.recordOutcome(metrics.OutcomeSuccess)
	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"community_id": persisted.CommunityID,
		"user_id":      persisted.UserID,
		"tx_hash":      result.TxHash,
	}).Info("community registered")
	return result, nil
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(outcome)
	}
}
