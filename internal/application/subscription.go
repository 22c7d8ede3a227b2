package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/kzap42/worknotes/internal/cache"
	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// subscriptionsKey is the durable-store key for the subscribed repo set.
const subscriptionsKey = "github_subscribed_repos"

// SubscriptionService maintains the set of repositories the user has opted
// into. The set is persisted as one record; every mutation persists the new
// set and then invalidates the derived subscribed-issues cache entry before
// returning, so a subsequent read re-filters against the new membership.
type SubscriptionService struct {
	store  driven.StateStore
	cache  *cache.Cache
	logger *slog.Logger

	mu   sync.Mutex
	subs []model.Subscription
}

// NewSubscriptionService creates a SubscriptionService. Call Load before
// serving reads to restore the persisted set.
func NewSubscriptionService(store driven.StateStore, c *cache.Cache, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:  store,
		cache:  c,
		logger: logger,
		subs:   []model.Subscription{},
	}
}

// Load restores the persisted subscription set. A record that fails to parse
// is treated as an empty set.
func (s *SubscriptionService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.store.Get(ctx, subscriptionsKey)
	if err != nil {
		s.logger.Error("load subscriptions", "error", err)
		return
	}
	if !ok {
		return
	}

	var subs []model.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		s.logger.Warn("discarding unparseable subscription set", "error", err)
		s.subs = []model.Subscription{}
		return
	}

	s.subs = subs
	s.logger.Info("subscriptions loaded", "count", len(subs))
}

// Subscribe adds a repository to the set. Idempotent by repository ID.
func (s *SubscriptionService) Subscribe(ctx context.Context, sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subs {
		if existing.ID == sub.ID {
			return
		}
	}

	s.subs = append(s.subs, sub)
	s.persistLocked(ctx)
	s.cache.Invalidate(resourceSubscribedIssues)
	s.logger.Info("repo subscribed", "repo", sub.FullName)
}

// Unsubscribe removes a repository from the set by ID. Removing an absent
// repository is a no-op, but still counts as a mutation of the set.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, repoID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.subs[:0]
	for _, sub := range s.subs {
		if sub.ID != repoID {
			kept = append(kept, sub)
		}
	}
	s.subs = kept

	s.persistLocked(ctx)
	s.cache.Invalidate(resourceSubscribedIssues)
	s.logger.Info("repo unsubscribed", "repo_id", repoID)
}

// IsSubscribed reports membership by repository ID.
func (s *SubscriptionService) IsSubscribed(repoID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.ID == repoID {
			return true
		}
	}
	return false
}

// List returns a copy of the subscription set.
func (s *SubscriptionService) List() []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// FullNames returns the full names of all subscribed repositories.
func (s *SubscriptionService) FullNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.subs))
	for _, sub := range s.subs {
		names = append(names, sub.FullName)
	}
	return names
}

func (s *SubscriptionService) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.subs)
	if err != nil {
		s.logger.Error("marshal subscriptions", "error", err)
		return
	}
	if err := s.store.Set(ctx, subscriptionsKey, data); err != nil {
		s.logger.Error("persist subscriptions", "error", err)
	}
}
