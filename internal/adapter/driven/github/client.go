// Package github implements the GitHubAPI port using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.GitHubAPI      = (*Client)(nil)
	_ driven.TokenRefresher = (*Client)(nil)
)

// tokenEndpoint is GitHub's OAuth token endpoint, used for refresh-token
// exchanges.
const tokenEndpoint = "https://github.com/login/oauth/access_token"

// HeaderSource supplies per-request authorization headers. The application's
// token lifecycle implements it; an empty map means "unauthenticated".
type HeaderSource interface {
	AuthorizationHeader() map[string]string
}

// Client implements the driven.GitHubAPI port using the go-github library.
type Client struct {
	gh       *gh.Client
	tokenURL string
	// httpClient performs the token-endpoint exchange; it deliberately
	// bypasses the authorized transport stack.
	httpClient *http.Client
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. header injection from the token lifecycle (outermost)
//
// The authorization header is resolved per request, so token refreshes take
// effect without rebuilding the client.
func NewClient(source HeaderSource) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	authed := &http.Client{
		Transport: &headerTransport{
			base:   rateLimitClient.Transport,
			source: source,
		},
	}

	return &Client{
		gh:         gh.NewClient(authed),
		tokenURL:   tokenEndpoint,
		httpClient: http.DefaultClient,
	}
}

// NewClientWithBaseURL creates a Client against a custom base URL with the
// given http.Client. Intended for tests with an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, tokenURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:         client,
		tokenURL:   tokenURL,
		httpClient: httpClient,
	}, nil
}

// headerTransport injects headers from a HeaderSource into every request.
type headerTransport struct {
	base   http.RoundTripper
	source HeaderSource
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.source.AuthorizationHeader() {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}

// FetchRepos lists all repositories visible to the authenticated user.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchRepos(ctx context.Context) ([]model.Repo, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Type:        "all",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allRepos []model.Repo

	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories (page %d): %w", opts.Page, err)
		}

		for _, repo := range repos {
			allRepos = append(allRepos, mapRepo(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if allRepos == nil {
		allRepos = []model.Repo{}
	}

	return allRepos, nil
}

// FetchUser returns the authenticated user's profile.
func (c *Client) FetchUser(ctx context.Context) (*model.User, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("getting authenticated user: %w", err)
	}

	return &model.User{
		ID:          user.GetID(),
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		AvatarURL:   user.GetAvatarURL(),
		HTMLURL:     user.GetHTMLURL(),
		PublicRepos: user.GetPublicRepos(),
	}, nil
}

// FetchIssues lists issues assigned to the authenticated user across all
// visible repositories, in any state. Pagination is handled automatically.
func (c *Client) FetchIssues(ctx context.Context) ([]model.Issue, error) {
	opts := &gh.IssueListOptions{
		Filter:      "all",
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allIssues []model.Issue

	for {
		issues, resp, err := c.gh.Issues.List(ctx, true, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues (page %d): %w", opts.ListOptions.Page, err)
		}

		for _, issue := range issues {
			allIssues = append(allIssues, mapIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	if allIssues == nil {
		allIssues = []model.Issue{}
	}

	return allIssues, nil
}

// mapRepo converts a go-github Repository to a domain model Repo.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapRepo(repo *gh.Repository) model.Repo {
	return model.Repo{
		ID:          repo.GetID(),
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Private:     repo.GetPrivate(),
		HTMLURL:     repo.GetHTMLURL(),
		UpdatedAt:   repo.GetUpdatedAt().Time,
	}
}

// mapIssue converts a go-github Issue to a domain model Issue.
func mapIssue(issue *gh.Issue) model.Issue {
	return model.Issue{
		ID:        issue.GetID(),
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		Body:      issue.GetBody(),
		URL:       issue.GetURL(),
		HTMLURL:   issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
}
