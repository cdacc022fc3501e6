// Package rules implements viewing and editing of community rules.
package rules

import (
	"context"
	stderrors "errors"

	"github.com/communitylink/registrar/internal/app/storage"
	"github.com/communitylink/registrar/internal/domain/community"
	"github.com/communitylink/registrar/internal/errors"
	"github.com/communitylink/registrar/internal/logging"
)

// Service loads and updates the rules of the current community record.
type Service struct {
	store storage.CommunityStore
	log   *logging.Logger
}

// New constructs a rules service.
func New(store storage.CommunityStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("rules")
	}
	return &Service{store: store, log: log}
}

// Get returns the community record when the stored record's ID matches the
// requested one. A missing record or an ID mismatch is the empty state
// (ok=false), not an error: the route simply has no rules to show.
func (s *Service) Get(ctx context.Context, communityID string) (community.Community, bool, error) {
	record, err := s.store.GetCommunity(ctx)
	if stderrors.Is(err, storage.ErrNotFound) {
		return community.Community{}, false, nil
	}
	if err != nil {
		return community.Community{}, false, err
	}
	if record.CommunityID != communityID {
		return community.Community{}, false, nil
	}
	return record, true, nil
}

// Update overwrites only the rules field of the stored record, guarded by the
// same ID match as Get. Concurrent writers race with last-write-wins
// semantics; there is no optimistic-concurrency check.
func (s *Service) Update(ctx context.Context, communityID, rules string) (community.Community, error) {
	record, ok, err := s.Get(ctx, communityID)
	if err != nil {
		return community.Community{}, err
	}
	if !ok {
		return community.Community{}, errors.NotFound("community not found")
	}

	updated, err := s.store.UpdateRules(ctx, rules)
	if err != nil {
		return community.Community{}, err
	}

	s.log.WithContext(ctx).WithField("community_id", record.CommunityID).Info("community rules updated")
	return updated, nil
}
