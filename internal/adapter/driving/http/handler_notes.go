package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kzap42/worknotes/internal/application"
	"github.com/kzap42/worknotes/internal/domain/model"
)

// ListNotes returns all notes.
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	state := h.notes.State()
	if state.Notes == nil {
		state.Notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, state.Notes)
}

// CreateNote creates a note, selects it, and enters edit mode.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note := h.notes.CreateNote(r.Context(), req.Title, req.Content, req.CategoryID, req.Tags)
	writeJSON(w, http.StatusCreated, note)
}

// GetNote returns a single note by id.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.notes.Note(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote applies a partial update to a note.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.notes.UpdateNote(r.Context(), r.PathValue("id"), application.NoteUpdate{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
	})
	if errors.Is(err, application.ErrNoteNotFound) {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note by id.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.DeleteNote(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNoteHTML returns a note's markdown content rendered to sanitized HTML.
func (h *Handler) GetNoteHTML(w http.ResponseWriter, r *http.Request) {
	note, ok := h.notes.Note(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	writeJSON(w, http.StatusOK, NoteHTMLResponse{
		ID:   note.ID,
		HTML: RenderMarkdown(note.Content),
	})
}

// MoveNote reassigns a note to a category.
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.notes.MoveNote(r.Context(), r.PathValue("id"), req.CategoryID); err != nil {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	state := h.notes.State()
	if state.Categories == nil {
		state.Categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, state.Categories)
}

// CreateCategory creates a category node.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category := h.notes.CreateCategory(r.Context(), req.Name, req.ParentID)
	writeJSON(w, http.StatusCreated, category)
}

// RenameCategory renames a category.
func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req RenameCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.notes.RenameCategory(r.Context(), r.PathValue("id"), req.Name); err != nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCategory removes a category and its descendant subtree; notes in the
// subtree become uncategorized. Deleting an absent id succeeds.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.notes.DeleteCategory(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ListTags returns the tag vocabulary.
func (h *Handler) ListTags(w http.ResponseWriter, _ *http.Request) {
	state := h.notes.State()
	if state.Tags == nil {
		state.Tags = []string{}
	}
	writeJSON(w, http.StatusOK, state.Tags)
}

// AddTag adds a tag to the vocabulary.
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req AddTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	h.notes.AddTag(r.Context(), req.Name)
	w.WriteHeader(http.StatusCreated)
}

// RemoveTag removes a tag from the vocabulary and from every note carrying it.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	h.notes.RemoveTag(r.Context(), r.PathValue("name"))
	w.WriteHeader(http.StatusNoContent)
}

// GetWorkspace returns the current selection state.
func (h *Handler) GetWorkspace(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.notes.State().Workspace)
}

// UpdateWorkspace applies a partial update to the selection state.
func (h *Handler) UpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req UpdateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentNoteID != nil {
		h.notes.SetCurrentNote(r.Context(), *req.CurrentNoteID)
	}
	if req.CurrentCategoryID != nil {
		h.notes.SetCurrentCategory(r.Context(), *req.CurrentCategoryID)
	}
	if req.IsEditMode != nil && h.notes.State().Workspace.IsEditMode != *req.IsEditMode {
		h.notes.ToggleEditMode(r.Context())
	}

	writeJSON(w, http.StatusOK, h.notes.State().Workspace)
}
