package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	httphandler "github.com/kzap42/worknotes/internal/adapter/driving/http"
	"github.com/kzap42/worknotes/internal/application"
	"github.com/kzap42/worknotes/internal/cache"
	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type memStateStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStateStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *memStateStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStateStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type memNotesStore struct {
	mu    sync.Mutex
	state model.NotesState
}

func (m *memNotesStore) LoadAll(context.Context) (model.NotesState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *memNotesStore) SaveAll(_ context.Context, state model.NotesState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *memNotesStore) ClearAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = model.NotesState{}
	return nil
}

type stubRefresher struct{}

func (stubRefresher) RefreshToken(context.Context, string, model.ProviderConfig) (*model.TokenPayload, error) {
	return nil, errors.New("refresh not expected in handler tests")
}

type mockGitHubAPI struct {
	repos  []model.Repo
	user   *model.User
	issues []model.Issue
}

func (m *mockGitHubAPI) FetchRepos(context.Context) ([]model.Repo, error)   { return m.repos, nil }
func (m *mockGitHubAPI) FetchUser(context.Context) (*model.User, error)    { return m.user, nil }
func (m *mockGitHubAPI) FetchIssues(context.Context) ([]model.Issue, error) { return m.issues, nil }

type mockPingCodeAPI struct {
	projects     []model.Project
	projectQuery model.ProjectQuery
}

func (m *mockPingCodeAPI) FetchProjects(_ context.Context, q model.ProjectQuery) ([]model.Project, error) {
	m.projectQuery = q
	return m.projects, nil
}

func (m *mockPingCodeAPI) FetchWorkItems(context.Context, model.WorkItemQuery) ([]model.WorkItem, error) {
	return []model.WorkItem{}, nil
}

func (m *mockPingCodeAPI) FetchProducts(context.Context) ([]model.Product, error) {
	return []model.Product{}, nil
}

func (m *mockPingCodeAPI) FetchIdeas(context.Context, model.IdeaQuery) ([]model.Idea, error) {
	return []model.Idea{}, nil
}

// --- Test helpers ---

type fixture struct {
	mux      http.Handler
	github   *mockGitHubAPI
	pingcode *mockPingCodeAPI
}

func setup(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := &memStateStore{data: map[string][]byte{}}

	ghCache := cache.New(0)
	pcCache := cache.New(0)

	ghLC := application.NewTokenLifecycle(application.LifecycleOptions{Name: "github"}, store, stubRefresher{}, ghCache, logger)
	pcLC := application.NewTokenLifecycle(application.LifecycleOptions{Name: "pingcode"}, store, stubRefresher{}, pcCache, logger)
	t.Cleanup(ghLC.Close)
	t.Cleanup(pcLC.Close)

	ghAPI := &mockGitHubAPI{}
	pcAPI := &mockPingCodeAPI{}

	subs := application.NewSubscriptionService(store, ghCache, logger)
	github := application.NewGitHubService(ghLC, ghCache, ghAPI, subs, logger)
	pingcode := application.NewPingCodeService(pcLC, pcCache, pcAPI, logger)
	notes := application.NewNotesService(&memNotesStore{}, logger)

	h := httphandler.NewHandler(github, pingcode, subs, notes, logger)
	return &fixture{
		mux:      httphandler.NewServeMux(h, logger),
		github:   ghAPI,
		pingcode: pcAPI,
	}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

// signIn posts a valid token for the provider.
func (f *fixture) signIn(t *testing.T, provider string) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/auth/"+provider+"/token",
		`{"access_token":"tok","token_type":"bearer","expires_in":3600,"refresh_token":"ref"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestAuth_UnknownProvider(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/v1/auth/gitlab", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth_TokenRoundTrip(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/v1/auth/github", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	decodeJSON(t, rec, &status)
	assert.Equal(t, false, status["authenticated"])
	assert.Equal(t, true, status["expired"])

	f.signIn(t, "github")

	rec = f.do(http.MethodGet, "/api/v1/auth/github", "")
	decodeJSON(t, rec, &status)
	assert.Equal(t, true, status["authenticated"])
	assert.Equal(t, false, status["expired"])

	rec = f.do(http.MethodDelete, "/api/v1/auth/github", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/auth/github", "")
	decodeJSON(t, rec, &status)
	assert.Equal(t, false, status["authenticated"])
}

func TestAuth_SetTokenRejectsMissingAccessToken(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/auth/github/token", `{"token_type":"bearer"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/auth/github/token", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_SetConfig(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPut, "/api/v1/auth/github/config", `{"client_id":"id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "client_secret is required")

	rec = f.do(http.MethodPut, "/api/v1/auth/github/config", `{"client_id":"id","client_secret":"secret"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGitHub_ReposWhenSignedOut(t *testing.T) {
	f := setup(t)
	f.github.repos = []model.Repo{{ID: 1, FullName: "alice/worknotes"}}

	rec := f.do(http.MethodGet, "/api/v1/github/repos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var repos []map[string]any
	decodeJSON(t, rec, &repos)
	assert.Empty(t, repos, "signed-out reads return an empty list, not upstream data")
}

func TestGitHub_Repos(t *testing.T) {
	f := setup(t)
	f.github.repos = []model.Repo{{ID: 1, Name: "worknotes", FullName: "alice/worknotes"}}
	f.signIn(t, "github")

	rec := f.do(http.MethodGet, "/api/v1/github/repos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var repos []map[string]any
	decodeJSON(t, rec, &repos)
	require.Len(t, repos, 1)
	assert.Equal(t, "alice/worknotes", repos[0]["full_name"])
}

func TestGitHub_UserNotFoundWhenSignedOut(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/api/v1/github/user", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGitHub_SubscribedIssues(t *testing.T) {
	f := setup(t)
	f.github.issues = []model.Issue{
		{ID: 1, URL: "https://api.github.com/repos/alice/worknotes/issues/1"},
		{ID: 2, URL: "https://api.github.com/repos/alice/dotfiles/issues/2"},
	}
	f.signIn(t, "github")

	rec := f.do(http.MethodPost, "/api/v1/github/subscriptions",
		`{"id":10,"name":"worknotes","full_name":"alice/worknotes"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/github/issues?subscribed=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var issues []map[string]any
	decodeJSON(t, rec, &issues)
	require.Len(t, issues, 1)
	assert.Equal(t, float64(1), issues[0]["id"])

	rec = f.do(http.MethodGet, "/api/v1/github/issues", "")
	decodeJSON(t, rec, &issues)
	assert.Len(t, issues, 2, "unfiltered endpoint returns everything")
}

func TestSubscriptions_CRUD(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/github/subscriptions", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "id and full_name are required")

	rec = f.do(http.MethodPost, "/api/v1/github/subscriptions",
		`{"id":10,"full_name":"alice/worknotes"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/github/subscriptions", "")
	var subs []map[string]any
	decodeJSON(t, rec, &subs)
	require.Len(t, subs, 1)

	rec = f.do(http.MethodDelete, "/api/v1/github/subscriptions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/github/subscriptions/10", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/github/subscriptions", "")
	decodeJSON(t, rec, &subs)
	assert.Empty(t, subs)
}

func TestPingCode_ProjectsQueryPassThrough(t *testing.T) {
	f := setup(t)
	f.pingcode.projects = []model.Project{{ID: "proj-1", Name: "Worknotes"}}
	f.signIn(t, "pingcode")

	rec := f.do(http.MethodGet, "/api/v1/pingcode/projects?type=scrum&include_archived=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var projects []map[string]any
	decodeJSON(t, rec, &projects)
	require.Len(t, projects, 1)

	assert.Equal(t, "scrum", f.pingcode.projectQuery.Type)
	assert.True(t, f.pingcode.projectQuery.IncludeArchived)
	assert.False(t, f.pingcode.projectQuery.IncludeDeleted)
}

func TestNotes_CRUD(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/notes",
		`{"title":"Standup","content":"# Agenda","tags":["work"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var note map[string]any
	decodeJSON(t, rec, &note)
	id, _ := note["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Standup", note["title"])

	rec = f.do(http.MethodGet, "/api/v1/notes", "")
	var notes []map[string]any
	decodeJSON(t, rec, &notes)
	require.Len(t, notes, 1)

	rec = f.do(http.MethodPut, "/api/v1/notes/"+id, `{"title":"Standup notes"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &note)
	assert.Equal(t, "Standup notes", note["title"])
	assert.Equal(t, "# Agenda", note["content"], "unset fields stay untouched")

	rec = f.do(http.MethodPut, "/api/v1/notes/nope", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/notes/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotes_HTMLRendering(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/notes",
		`{"title":"t","content":"# Hello\n\n<script>alert(1)</script>**bold**"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var note map[string]any
	decodeJSON(t, rec, &note)
	id := note["id"].(string)

	rec = f.do(http.MethodGet, "/api/v1/notes/"+id+"/html", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp["html"], "<h1")
	assert.Contains(t, resp["html"], "<strong>bold</strong>")
	assert.NotContains(t, resp["html"], "<script>", "scripts must be sanitized away")
}

func TestCategories_DeleteCascades(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/categories", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/categories", `{"name":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var parent map[string]any
	decodeJSON(t, rec, &parent)
	parentID := parent["id"].(string)

	rec = f.do(http.MethodPost, "/api/v1/categories", `{"name":"Sprint","parentId":"`+parentID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var child map[string]any
	decodeJSON(t, rec, &child)
	childID := child["id"].(string)

	rec = f.do(http.MethodPost, "/api/v1/notes", `{"title":"n","categoryId":"`+childID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var note map[string]any
	decodeJSON(t, rec, &note)
	noteID := note["id"].(string)

	rec = f.do(http.MethodDelete, "/api/v1/categories/"+parentID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/categories", "")
	var cats []map[string]any
	decodeJSON(t, rec, &cats)
	assert.Empty(t, cats, "subtree is removed with the root")

	rec = f.do(http.MethodGet, "/api/v1/notes/"+noteID, "")
	decodeJSON(t, rec, &note)
	assert.Equal(t, "", note["categoryId"], "orphaned note becomes uncategorized")

	// Deleting an absent category still succeeds.
	rec = f.do(http.MethodDelete, "/api/v1/categories/"+parentID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCategories_Rename(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/categories", `{"name":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cat map[string]any
	decodeJSON(t, rec, &cat)
	id := cat["id"].(string)

	rec = f.do(http.MethodPut, "/api/v1/categories/"+id, `{"name":"起草"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/categories/nope", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/categories", "")
	var cats []map[string]any
	decodeJSON(t, rec, &cats)
	require.Len(t, cats, 1)
	assert.Equal(t, "起草", cats[0]["name"])
}

func TestTags(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/tags", `{"name":"work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(http.MethodPost, "/api/v1/tags", `{"name":"work"}`)
	require.Equal(t, http.StatusCreated, rec.Code, "duplicates are accepted as no-ops")
	rec = f.do(http.MethodPost, "/api/v1/tags", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/tags", "")
	var tags []string
	decodeJSON(t, rec, &tags)
	assert.Equal(t, []string{"work"}, tags)

	rec = f.do(http.MethodDelete, "/api/v1/tags/work", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/tags", "")
	decodeJSON(t, rec, &tags)
	assert.Empty(t, tags)
}

func TestWorkspace(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/api/v1/notes", `{"title":"n"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var note map[string]any
	decodeJSON(t, rec, &note)
	id := note["id"].(string)

	// Creating a note selects it and enters edit mode.
	rec = f.do(http.MethodGet, "/api/v1/workspace", "")
	var ws map[string]any
	decodeJSON(t, rec, &ws)
	assert.Equal(t, id, ws["currentNoteId"])
	assert.Equal(t, true, ws["isEditMode"])

	rec = f.do(http.MethodPut, "/api/v1/workspace", `{"currentNoteId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &ws)
	assert.Equal(t, false, ws["isEditMode"], "selecting a note leaves edit mode")

	rec = f.do(http.MethodPut, "/api/v1/workspace", `{"isEditMode":true}`)
	decodeJSON(t, rec, &ws)
	assert.Equal(t, true, ws["isEditMode"])
}
