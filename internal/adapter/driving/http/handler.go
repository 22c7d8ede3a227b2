// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kzap42/worknotes/internal/application"
	"github.com/kzap42/worknotes/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	github     *application.GitHubService
	pingcode   *application.PingCodeService
	subs       *application.SubscriptionService
	notes      *application.NotesService
	lifecycles map[string]*application.TokenLifecycle
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	github *application.GitHubService,
	pingcode *application.PingCodeService,
	subs *application.SubscriptionService,
	notes *application.NotesService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		github:   github,
		pingcode: pingcode,
		subs:     subs,
		notes:    notes,
		lifecycles: map[string]*application.TokenLifecycle{
			"github":   github.Lifecycle(),
			"pingcode": pingcode.Lifecycle(),
		},
		logger: logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/auth/{provider}", h.AuthStatus)
	mux.HandleFunc("POST /api/v1/auth/{provider}/token", h.SetToken)
	mux.HandleFunc("PUT /api/v1/auth/{provider}/config", h.SetProviderConfig)
	mux.HandleFunc("DELETE /api/v1/auth/{provider}", h.SignOut)

	mux.HandleFunc("GET /api/v1/github/repos", h.ListRepos)
	mux.HandleFunc("GET /api/v1/github/user", h.GetUser)
	mux.HandleFunc("GET /api/v1/github/issues", h.ListIssues)
	mux.HandleFunc("GET /api/v1/github/subscriptions", h.ListSubscriptions)
	mux.HandleFunc("POST /api/v1/github/subscriptions", h.AddSubscription)
	mux.HandleFunc("DELETE /api/v1/github/subscriptions/{id}", h.RemoveSubscription)

	mux.HandleFunc("GET /api/v1/pingcode/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/pingcode/workitems", h.ListWorkItems)
	mux.HandleFunc("GET /api/v1/pingcode/products", h.ListProducts)
	mux.HandleFunc("GET /api/v1/pingcode/ideas", h.ListIdeas)

	mux.HandleFunc("GET /api/v1/notes", h.ListNotes)
	mux.HandleFunc("POST /api/v1/notes", h.CreateNote)
	mux.HandleFunc("GET /api/v1/notes/{id}", h.GetNote)
	mux.HandleFunc("PUT /api/v1/notes/{id}", h.UpdateNote)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", h.DeleteNote)
	mux.HandleFunc("GET /api/v1/notes/{id}/html", h.GetNoteHTML)
	mux.HandleFunc("PUT /api/v1/notes/{id}/category", h.MoveNote)

	mux.HandleFunc("GET /api/v1/categories", h.ListCategories)
	mux.HandleFunc("POST /api/v1/categories", h.CreateCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}", h.RenameCategory)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", h.DeleteCategory)

	mux.HandleFunc("GET /api/v1/tags", h.ListTags)
	mux.HandleFunc("POST /api/v1/tags", h.AddTag)
	mux.HandleFunc("DELETE /api/v1/tags/{name}", h.RemoveTag)

	mux.HandleFunc("GET /api/v1/workspace", h.GetWorkspace)
	mux.HandleFunc("PUT /api/v1/workspace", h.UpdateWorkspace)

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// lifecycle resolves the {provider} path value; a nil return means the
// response has already been written.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request) *application.TokenLifecycle {
	name := r.PathValue("provider")
	lc, ok := h.lifecycles[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return nil
	}
	return lc
}

// AuthStatus reports whether the provider holds a live credential.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	lc := h.lifecycle(w, r)
	if lc == nil {
		return
	}

	writeJSON(w, http.StatusOK, AuthStatusResponse{
		Provider:      r.PathValue("provider"),
		Authenticated: lc.Authenticated(),
		Expired:       lc.IsExpired(),
	})
}

// SetToken accepts an inbound token event, typically relayed from the
// provider's authorization flow.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	lc := h.lifecycle(w, r)
	if lc == nil {
		return
	}

	var payload model.TokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	lc.SetToken(r.Context(), payload)
	w.WriteHeader(http.StatusNoContent)
}

// SetProviderConfig stores the provider's OAuth client registration.
func (h *Handler) SetProviderConfig(w http.ResponseWriter, r *http.Request) {
	lc := h.lifecycle(w, r)
	if lc == nil {
		return
	}

	var cfg model.ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !cfg.Valid() {
		writeError(w, http.StatusBadRequest, "client_id and client_secret are required")
		return
	}

	lc.SetConfig(r.Context(), cfg)
	w.WriteHeader(http.StatusNoContent)
}

// SignOut clears the provider's credential state.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	lc := h.lifecycle(w, r)
	if lc == nil {
		return
	}

	lc.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ListRepos returns the authenticated user's repositories.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos := h.github.Repos(r.Context())
	if repos == nil {
		repos = []model.Repo{}
	}
	writeJSON(w, http.StatusOK, repos)
}

// GetUser returns the authenticated user's profile.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user := h.github.User(r.Context())
	if user == nil {
		writeError(w, http.StatusNotFound, "no user data")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListIssues returns issues assigned to the user; ?subscribed=true narrows
// the list to subscribed repositories.
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	var issues []model.Issue
	if r.URL.Query().Get("subscribed") == "true" {
		issues = h.github.SubscribedIssues(r.Context())
	} else {
		issues = h.github.Issues(r.Context())
	}

	if issues == nil {
		issues = []model.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// ListSubscriptions returns the subscribed repository set.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.subs.List())
}

// AddSubscription subscribes a repository.
func (h *Handler) AddSubscription(w http.ResponseWriter, r *http.Request) {
	var sub model.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sub.ID == 0 || sub.FullName == "" {
		writeError(w, http.StatusBadRequest, "id and full_name are required")
		return
	}

	h.subs.Subscribe(r.Context(), sub)
	writeJSON(w, http.StatusCreated, sub)
}

// RemoveSubscription unsubscribes a repository by id.
func (h *Handler) RemoveSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}

	h.subs.Unsubscribe(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// ListProjects returns PingCode projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects := h.pingcode.Projects(r.Context(), model.ProjectQuery{
		Identifier:      q.Get("identifier"),
		Type:            q.Get("type"),
		IncludeDeleted:  q.Get("include_deleted") == "true",
		IncludeArchived: q.Get("include_archived") == "true",
	})

	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// ListWorkItems returns PingCode work items.
func (h *Handler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := h.pingcode.WorkItems(r.Context(), model.WorkItemQuery{
		ProjectIDs:      q.Get("project_ids"),
		IncludeDeleted:  q.Get("include_deleted") == "true",
		IncludeArchived: q.Get("include_archived") == "true",
	})

	if items == nil {
		items = []model.WorkItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ListProducts returns PingCode products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.pingcode.Products(r.Context())
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// ListIdeas returns PingCode product ideas.
func (h *Handler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ideas := h.pingcode.Ideas(r.Context(), model.IdeaQuery{
		ProductID:      q.Get("product_id"),
		StateID:        q.Get("state_id"),
		PriorityID:     q.Get("priority_id"),
		CreatedBetween: q.Get("created_between"),
		UpdatedBetween: q.Get("updated_between"),
		Keywords:       q.Get("keywords"),
	})

	if ideas == nil {
		ideas = []model.Idea{}
	}
	writeJSON(w, http.StatusOK, ideas)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
