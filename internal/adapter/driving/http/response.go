package httphandler

import (
	"encoding/json"
	"net/http"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AuthStatusResponse reports a provider's credential state.
type AuthStatusResponse struct {
	Provider      string `json:"provider"`
	Authenticated bool   `json:"authenticated"`
	Expired       bool   `json:"expired"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CreateNoteRequest is the JSON body for the create note endpoint.
type CreateNoteRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CategoryID string   `json:"categoryId"`
	Tags       []string `json:"tags"`
}

// UpdateNoteRequest is the JSON body for the update note endpoint. Absent
// fields are left untouched.
type UpdateNoteRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	CategoryID *string  `json:"categoryId"`
	Tags       []string `json:"tags"`
}

// MoveNoteRequest is the JSON body for the note category endpoint.
type MoveNoteRequest struct {
	CategoryID string `json:"categoryId"`
}

// NoteHTMLResponse carries a note's markdown content rendered to sanitized HTML.
type NoteHTMLResponse struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// CreateCategoryRequest is the JSON body for the create category endpoint.
type CreateCategoryRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// RenameCategoryRequest is the JSON body for the rename category endpoint.
type RenameCategoryRequest struct {
	Name string `json:"name"`
}

// AddTagRequest is the JSON body for the add tag endpoint.
type AddTagRequest struct {
	Name string `json:"name"`
}

// UpdateWorkspaceRequest is the JSON body for the workspace endpoint. Absent
// fields are left untouched.
type UpdateWorkspaceRequest struct {
	CurrentNoteID     *string `json:"currentNoteId"`
	CurrentCategoryID *string `json:"currentCategoryId"`
	IsEditMode        *bool   `json:"isEditMode"`
}
