package driven

import (
	"context"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// GitHubAPI defines the driven port for reading from the GitHub REST API.
// Authorization is supplied by the adapter's transport; callers never pass
// tokens. All methods return the unfiltered upstream shape; subscription
// filtering is an application concern.
type GitHubAPI interface {
	// FetchRepos lists all repositories visible to the authenticated user.
	FetchRepos(ctx context.Context) ([]model.Repo, error)

	// FetchUser returns the authenticated user's profile.
	FetchUser(ctx context.Context) (*model.User, error)

	// FetchIssues lists issues assigned to the authenticated user across all
	// visible repositories, in any state.
	FetchIssues(ctx context.Context) ([]model.Issue, error)
}
