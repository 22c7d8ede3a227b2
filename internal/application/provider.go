package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kzap42/worknotes/internal/cache"
	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// Cache keys, one per logical resource. The issues entry always holds the
// unfiltered upstream shape; the subscribed variant is a derived resource
// with its own key so a subscription edit invalidates only the derivation.
const (
	resourceRepos            = "repos"
	resourceUser             = "user"
	resourceIssues           = "issues"
	resourceSubscribedIssues = "issues:subscribed"

	resourceProjects  = "projects"
	resourceWorkItems = "work_items"
	resourceProducts  = "products"
	resourceIdeas     = "ideas"
)

// errIssuesUnavailable signals that an unfiltered issues read did not leave a
// fresh cache entry behind, so its result was failure-derived.
var errIssuesUnavailable = errors.New("unfiltered issues unavailable")

// fetchResource is the shared read path for every provider resource:
//
//  1. Unauthenticated or expired token: return the zero value immediately.
//     No implicit refresh from this path; refresh is timer-driven.
//  2. Fresh cache entry: return it.
//  3. Otherwise fetch upstream (the adapter's transport injects the
//     authorization header from the lifecycle). Success caches and returns
//     the payload; failure falls back to the last cached value if any, else
//     the zero value. A read that has any prior data never fails.
func fetchResource[T any](ctx context.Context, lc *TokenLifecycle, c *cache.Cache, key string, logger *slog.Logger, fetch func(context.Context) (T, error)) T {
	var zero T

	if !lc.Authenticated() || lc.IsExpired() {
		return zero
	}

	if payload, ok := c.Get(key); ok {
		if typed, ok := payload.(T); ok {
			return typed
		}
		// Type drift can only come from a programming error (two resources
		// sharing a key); treat as a miss.
		logger.Error("cached payload has unexpected type", "resource", key)
	}

	payload, err := fetch(ctx)
	if err != nil {
		logger.Warn("upstream fetch failed", "resource", key, "error", err)
		if stale, ok := c.StaleRead(key); ok {
			if typed, ok := stale.(T); ok {
				logger.Info("serving stale cache after fetch failure", "resource", key)
				return typed
			}
		}
		return zero
	}

	c.Put(key, payload)
	return payload
}

// GitHubService composes the GitHub token lifecycle, response cache, and API
// adapter into the read operations the UI consumes.
type GitHubService struct {
	lifecycle *TokenLifecycle
	cache     *cache.Cache
	api       driven.GitHubAPI
	subs      *SubscriptionService
	logger    *slog.Logger
}

// NewGitHubService creates a GitHubService with all required dependencies.
func NewGitHubService(lifecycle *TokenLifecycle, c *cache.Cache, api driven.GitHubAPI, subs *SubscriptionService, logger *slog.Logger) *GitHubService {
	return &GitHubService{
		lifecycle: lifecycle,
		cache:     c,
		api:       api,
		subs:      subs,
		logger:    logger,
	}
}

// Lifecycle exposes the service's token lifecycle for auth endpoints.
func (s *GitHubService) Lifecycle() *TokenLifecycle { return s.lifecycle }

// Repos returns the authenticated user's repositories, cached.
func (s *GitHubService) Repos(ctx context.Context) []model.Repo {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceRepos, s.logger, s.api.FetchRepos)
}

// User returns the authenticated user's profile, cached. Nil when signed out
// or when the first fetch fails with no prior data.
func (s *GitHubService) User(ctx context.Context) *model.User {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceUser, s.logger, s.api.FetchUser)
}

// Issues returns all issues visible to the user, unfiltered, cached.
func (s *GitHubService) Issues(ctx context.Context) []model.Issue {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceIssues, s.logger, s.api.FetchIssues)
}

// SubscribedIssues returns the issues belonging to subscribed repositories.
// The filter applies on top of the unfiltered cached issues, so a
// subscription edit needs no upstream call; only the derived entry is
// invalidated. With no subscriptions the result is empty without any fetch.
func (s *GitHubService) SubscribedIssues(ctx context.Context) []model.Issue {
	names := s.subs.FullNames()
	if len(names) == 0 {
		return []model.Issue{}
	}

	subscribed := make(map[string]bool, len(names))
	for _, name := range names {
		subscribed[name] = true
	}

	return fetchResource(ctx, s.lifecycle, s.cache, resourceSubscribedIssues, s.logger, func(ctx context.Context) ([]model.Issue, error) {
		all := s.Issues(ctx)

		// Issues masks upstream failure behind stale or empty data. Only a
		// fresh base entry may seed the derived entry; otherwise this read
		// fails and takes the normal stale-or-empty fallback without caching.
		if _, ok := s.cache.Get(resourceIssues); !ok {
			return nil, errIssuesUnavailable
		}

		filtered := make([]model.Issue, 0, len(all))
		for _, issue := range all {
			if subscribed[RepoFullNameFromIssueURL(issue.URL)] {
				filtered = append(filtered, issue)
			}
		}
		return filtered, nil
	})
}

// RepoFullNameFromIssueURL extracts "{owner}/{repo}" from a GitHub issue API
// URL (".../repos/{owner}/{repo}/issues/{n}") by locating the literal "repos"
// path segment. Returns "" when the URL does not carry one.
func RepoFullNameFromIssueURL(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	for i, part := range parts {
		if part == "repos" && i+2 < len(parts) {
			return parts[i+1] + "/" + parts[i+2]
		}
	}
	return ""
}

// PingCodeService composes the PingCode token lifecycle, response cache, and
// API adapter. Query parameters pass through to the upstream call but do not
// partition the cache: one entry per logical resource, as a cache refresh
// always replaces the whole payload.
type PingCodeService struct {
	lifecycle *TokenLifecycle
	cache     *cache.Cache
	api       driven.PingCodeAPI
	logger    *slog.Logger
}

// NewPingCodeService creates a PingCodeService with all required dependencies.
func NewPingCodeService(lifecycle *TokenLifecycle, c *cache.Cache, api driven.PingCodeAPI, logger *slog.Logger) *PingCodeService {
	return &PingCodeService{
		lifecycle: lifecycle,
		cache:     c,
		api:       api,
		logger:    logger,
	}
}

// Lifecycle exposes the service's token lifecycle for auth endpoints.
func (s *PingCodeService) Lifecycle() *TokenLifecycle { return s.lifecycle }

// Projects returns PingCode projects, cached.
func (s *PingCodeService) Projects(ctx context.Context, q model.ProjectQuery) []model.Project {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceProjects, s.logger, func(ctx context.Context) ([]model.Project, error) {
		return s.api.FetchProjects(ctx, q)
	})
}

// WorkItems returns PingCode work items, cached.
func (s *PingCodeService) WorkItems(ctx context.Context, q model.WorkItemQuery) []model.WorkItem {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceWorkItems, s.logger, func(ctx context.Context) ([]model.WorkItem, error) {
		return s.api.FetchWorkItems(ctx, q)
	})
}

// Products returns PingCode products, cached.
func (s *PingCodeService) Products(ctx context.Context) []model.Product {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceProducts, s.logger, s.api.FetchProducts)
}

// Ideas returns PingCode ideas, cached.
func (s *PingCodeService) Ideas(ctx context.Context, q model.IdeaQuery) []model.Idea {
	return fetchResource(ctx, s.lifecycle, s.cache, resourceIdeas, s.logger, func(ctx context.Context) ([]model.Idea, error) {
		return s.api.FetchIdeas(ctx, q)
	})
}
