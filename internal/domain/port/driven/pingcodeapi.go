package driven

import (
	"context"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// PingCodeAPI defines the driven port for reading from the PingCode open API.
// Every listing endpoint returns a {page_size, page_index, total, values}
// envelope upstream; implementations extract and return the values slice.
type PingCodeAPI interface {
	FetchProjects(ctx context.Context, q model.ProjectQuery) ([]model.Project, error)
	FetchWorkItems(ctx context.Context, q model.WorkItemQuery) ([]model.WorkItem, error)
	FetchProducts(ctx context.Context) ([]model.Product, error)
	FetchIdeas(ctx context.Context, q model.IdeaQuery) ([]model.Idea, error)
}
