package model

import "time"

// Note is a local note. CategoryID references a Category by id; the empty
// string means "uncategorized".
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CategoryID string    `json:"categoryId"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasTag reports whether the note carries the given tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Category is a node in the note category tree. ParentID is the id of the
// parent category, or empty for a root category. The parent graph is assumed
// acyclic; deletion cascades through the descendant subtree.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Workspace is the persisted UI selection state.
type Workspace struct {
	CurrentNoteID     string `json:"currentNoteId"`
	CurrentCategoryID string `json:"currentCategoryId"`
	IsEditMode        bool   `json:"isEditMode"`
}

// NotesState is the full notes collection persisted as one unit: notes,
// categories, the tag vocabulary, and the workspace selection.
type NotesState struct {
	Notes      []Note
	Categories []Category
	Tags       []string
	Workspace  Workspace
}
