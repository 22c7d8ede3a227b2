// Package pingcode implements the PingCodeAPI port against the PingCode
// open API. Every listing endpoint wraps its results in a paging envelope;
// this adapter unwraps it and returns the values slice.
package pingcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.PingCodeAPI    = (*Client)(nil)
	_ driven.TokenRefresher = (*Client)(nil)
)

const defaultBaseURL = "https://open.pingcode.com"

// HeaderSource supplies per-request authorization headers. The application's
// token lifecycle implements it; an empty map means "unauthenticated".
type HeaderSource interface {
	AuthorizationHeader() map[string]string
}

// Client implements the driven.PingCodeAPI port with plain HTTP calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	source     HeaderSource
}

// NewClient creates a PingCode API client against the production base URL.
func NewClient(source HeaderSource) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		source:     source,
	}
}

// NewClientWithBaseURL creates a Client against a custom base URL with the
// given http.Client. Intended for tests with an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string, source HeaderSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		source:     source,
	}
}

// envelope is the paging wrapper PingCode puts around every listing response.
type envelope[T any] struct {
	PageSize  int `json:"page_size"`
	PageIndex int `json:"page_index"`
	Total     int `json:"total"`
	Values    []T `json:"values"`
}

// listResource performs an authorized GET against path and unwraps the
// envelope. A nil values field decodes to an empty slice, never nil.
func listResource[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.source.AuthorizationHeader() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}

	var page envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	if page.Values == nil {
		page.Values = []T{}
	}
	return page.Values, nil
}

// FetchProjects lists projects, narrowed by the query's non-zero fields.
func (c *Client) FetchProjects(ctx context.Context, q model.ProjectQuery) ([]model.Project, error) {
	params := url.Values{}
	if q.Identifier != "" {
		params.Set("identifier", q.Identifier)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.IncludeDeleted {
		params.Set("include_deleted", "true")
	}
	if q.IncludeArchived {
		params.Set("include_archived", "true")
	}
	return listResource[model.Project](ctx, c, "/v1/project/projects", params)
}

// FetchWorkItems lists work items, optionally restricted to a comma-separated
// set of project ids.
func (c *Client) FetchWorkItems(ctx context.Context, q model.WorkItemQuery) ([]model.WorkItem, error) {
	params := url.Values{}
	if q.ProjectIDs != "" {
		params.Set("project_ids", q.ProjectIDs)
	}
	if q.IncludeDeleted {
		params.Set("include_deleted", "true")
	}
	if q.IncludeArchived {
		params.Set("include_archived", "true")
	}
	return listResource[model.WorkItem](ctx, c, "/v1/project/work_items", params)
}

// FetchProducts lists all products visible to the token.
func (c *Client) FetchProducts(ctx context.Context) ([]model.Product, error) {
	return listResource[model.Product](ctx, c, "/v1/ship/products", url.Values{})
}

// FetchIdeas lists product ideas, narrowed by the query's non-zero fields.
func (c *Client) FetchIdeas(ctx context.Context, q model.IdeaQuery) ([]model.Idea, error) {
	params := url.Values{}
	if q.ProductID != "" {
		params.Set("product_id", q.ProductID)
	}
	if q.StateID != "" {
		params.Set("state_id", q.StateID)
	}
	if q.PriorityID != "" {
		params.Set("priority_id", q.PriorityID)
	}
	if q.CreatedBetween != "" {
		params.Set("created_between", q.CreatedBetween)
	}
	if q.UpdatedBetween != "" {
		params.Set("updated_between", q.UpdatedBetween)
	}
	if q.Keywords != "" {
		params.Set("keywords", q.Keywords)
	}
	return listResource[model.Idea](ctx, c, "/v1/ship/ideas", params)
}

// RefreshToken exchanges a refresh token for a fresh access token. Unlike
// GitHub's endpoint, PingCode's refresh grant is a GET carrying the token in
// the query string and does not take the client credentials, so the provider
// config is unused here.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, _ model.ProviderConfig) (*model.TokenPayload, error) {
	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", refreshToken)
	endpoint := c.baseURL + "/v1/auth/token?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh token: unexpected status %d", resp.StatusCode)
	}

	var payload model.TokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing access_token")
	}

	return &payload, nil
}
