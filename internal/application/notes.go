package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// ErrNoteNotFound is returned by note mutations when the target id is absent.
var ErrNoteNotFound = errors.New("note not found")

// ErrCategoryNotFound is returned by category rename when the id is absent.
var ErrCategoryNotFound = errors.New("category not found")

// NoteUpdate carries a partial note mutation. Nil fields are left untouched.
type NoteUpdate struct {
	Title      *string
	Content    *string
	CategoryID *string
	Tags       []string
}

// NotesService owns the note/category tree and the tag vocabulary. All state
// lives in memory behind one mutex; every mutation persists the full state
// through the NotesStore (bulk replace) and then notifies registered
// observers. Persistence failures are logged, never propagated; the
// in-memory state remains the source of truth for the session.
type NotesService struct {
	store  driven.NotesStore
	logger *slog.Logger

	mu        sync.Mutex
	state     model.NotesState
	observers []func()

	now   func() time.Time // injectable clock for tests
	newID func() string    // injectable id source for tests
}

// NewNotesService creates a NotesService. Call Load to restore persisted
// state before serving reads.
func NewNotesService(store driven.NotesStore, logger *slog.Logger) *NotesService {
	return &NotesService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Subscribe registers an observer invoked after every committed mutation.
// Observers run synchronously on the mutating goroutine and must not call
// back into the service.
func (s *NotesService) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Load restores the persisted notes state. Failure leaves the current state
// untouched.
func (s *NotesService) Load(ctx context.Context) error {
	state, err := s.store.LoadAll(ctx)
	if err != nil {
		s.logger.Error("load notes state", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.logger.Info("notes loaded",
		"notes", len(state.Notes),
		"categories", len(state.Categories),
		"tags", len(state.Tags),
	)
	return nil
}

// State returns a deep-enough copy of the current state for rendering:
// slices are copied, elements are values.
func (s *NotesService) State() model.NotesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *NotesService) snapshotLocked() model.NotesState {
	out := model.NotesState{
		Notes:      make([]model.Note, len(s.state.Notes)),
		Categories: make([]model.Category, len(s.state.Categories)),
		Tags:       make([]string, len(s.state.Tags)),
		Workspace:  s.state.Workspace,
	}
	copy(out.Notes, s.state.Notes)
	copy(out.Categories, s.state.Categories)
	copy(out.Tags, s.state.Tags)
	return out
}

// persistLocked saves the full state and notifies observers. Must be called
// with the mutex held.
func (s *NotesService) persistLocked(ctx context.Context) {
	if err := s.store.SaveAll(ctx, s.state); err != nil {
		s.logger.Error("save notes state", "error", err)
	}
	for _, fn := range s.observers {
		fn()
	}
}

// CreateNote appends a new note, selects it, and enters edit mode.
func (s *NotesService) CreateNote(ctx context.Context, title, content, categoryID string, tags []string) model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tags == nil {
		tags = []string{}
	}

	now := s.now()
	note := model.Note{
		ID:         s.newID(),
		Title:      title,
		Content:    content,
		CategoryID: categoryID,
		Tags:       tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.state.Notes = append(s.state.Notes, note)
	s.state.Workspace.CurrentNoteID = note.ID
	s.state.Workspace.IsEditMode = true

	s.persistLocked(ctx)
	return note
}

// UpdateNote applies a partial update to the note with the given id and bumps
// its UpdatedAt.
func (s *NotesService) UpdateNote(ctx context.Context, id string, upd NoteUpdate) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Notes {
		if s.state.Notes[i].ID != id {
			continue
		}

		note := &s.state.Notes[i]
		if upd.Title != nil {
			note.Title = *upd.Title
		}
		if upd.Content != nil {
			note.Content = *upd.Content
		}
		if upd.CategoryID != nil {
			note.CategoryID = *upd.CategoryID
		}
		if upd.Tags != nil {
			note.Tags = upd.Tags
		}
		note.UpdatedAt = s.now()

		s.persistLocked(ctx)
		return *note, nil
	}

	return model.Note{}, ErrNoteNotFound
}

// DeleteNote removes the note with the given id. The current-note selection
// is cleared when it pointed at the deleted note.
func (s *NotesService) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Notes {
		if s.state.Notes[i].ID != id {
			continue
		}

		s.state.Notes = append(s.state.Notes[:i], s.state.Notes[i+1:]...)
		if s.state.Workspace.CurrentNoteID == id {
			s.state.Workspace.CurrentNoteID = ""
		}

		s.persistLocked(ctx)
		return nil
	}

	return ErrNoteNotFound
}

// MoveNote reassigns a note to a category and bumps its UpdatedAt.
func (s *NotesService) MoveNote(ctx context.Context, noteID, categoryID string) error {
	catID := categoryID
	_, err := s.UpdateNote(ctx, noteID, NoteUpdate{CategoryID: &catID})
	return err
}

// CreateCategory appends a category node. parentID is not validated against
// existing categories; the tree is forgiving about dangling parents at
// creation time and the deletion cascade keeps it consistent afterwards.
func (s *NotesService) CreateCategory(ctx context.Context, name, parentID string) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := model.Category{
		ID:        s.newID(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: s.now(),
	}

	s.state.Categories = append(s.state.Categories, category)
	s.persistLocked(ctx)
	return category
}

// RenameCategory renames a category. No cascading effect.
func (s *NotesService) RenameCategory(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Categories {
		if s.state.Categories[i].ID == id {
			s.state.Categories[i].Name = name
			s.persistLocked(ctx)
			return nil
		}
	}

	return ErrCategoryNotFound
}

// DeleteCategory removes the category and its entire descendant subtree.
// Notes in the subtree are reassigned to uncategorized (empty CategoryID)
// with a bumped UpdatedAt. Deletion cascades by reassignment, never by
// deleting notes. Deleting an absent id is a no-op.
func (s *NotesService) DeleteCategory(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.categoryExistsLocked(id) {
		return
	}

	doomed := s.descendantClosureLocked(id)

	now := s.now()
	for i := range s.state.Notes {
		if doomed[s.state.Notes[i].CategoryID] {
			s.state.Notes[i].CategoryID = ""
			s.state.Notes[i].UpdatedAt = now
		}
	}

	kept := s.state.Categories[:0]
	for _, cat := range s.state.Categories {
		if !doomed[cat.ID] {
			kept = append(kept, cat)
		}
	}
	s.state.Categories = kept

	if doomed[s.state.Workspace.CurrentCategoryID] {
		s.state.Workspace.CurrentCategoryID = ""
	}

	s.persistLocked(ctx)
	s.logger.Info("category deleted", "id", id, "subtree_size", len(doomed))
}

func (s *NotesService) categoryExistsLocked(id string) bool {
	for _, cat := range s.state.Categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// descendantClosureLocked computes {id} plus every transitive descendant
// using an iterative frontier over a parent index, so deep hierarchies cost
// no stack depth. Terminates because the parent graph is acyclic.
func (s *NotesService) descendantClosureLocked(id string) map[string]bool {
	children := make(map[string][]string, len(s.state.Categories))
	for _, cat := range s.state.Categories {
		if cat.ParentID != "" {
			children[cat.ParentID] = append(children[cat.ParentID], cat.ID)
		}
	}

	closure := map[string]bool{id: true}
	frontier := []string{id}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, child := range children[current] {
			if !closure[child] {
				closure[child] = true
				frontier = append(frontier, child)
			}
		}
	}

	return closure
}

// AddTag adds a tag to the vocabulary. Set semantics: duplicates are no-ops.
func (s *NotesService) AddTag(ctx context.Context, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Tags {
		if existing == tag {
			return
		}
	}

	s.state.Tags = append(s.state.Tags, tag)
	s.persistLocked(ctx)
}

// RemoveTag removes a tag from the vocabulary and strips it from every note
// carrying it, bumping those notes' UpdatedAt.
func (s *NotesService) RemoveTag(ctx context.Context, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.state.Tags {
		if existing == tag {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	now := s.now()
	for i := range s.state.Notes {
		note := &s.state.Notes[i]
		if !note.HasTag(tag) {
			continue
		}

		kept := note.Tags[:0]
		for _, t := range note.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		note.Tags = kept
		note.UpdatedAt = now
	}

	s.state.Tags = append(s.state.Tags[:idx], s.state.Tags[idx+1:]...)
	s.persistLocked(ctx)
}

// SetCurrentNote selects a note and leaves edit mode.
func (s *NotesService) SetCurrentNote(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Workspace.CurrentNoteID = id
	s.state.Workspace.IsEditMode = false
	s.persistLocked(ctx)
}

// SetCurrentCategory selects a category.
func (s *NotesService) SetCurrentCategory(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Workspace.CurrentCategoryID = id
	s.persistLocked(ctx)
}

// ToggleEditMode flips the edit-mode flag and returns the new value.
func (s *NotesService) ToggleEditMode(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Workspace.IsEditMode = !s.state.Workspace.IsEditMode
	s.persistLocked(ctx)
	return s.state.Workspace.IsEditMode
}

// Note returns the note with the given id.
func (s *NotesService) Note(id string) (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, note := range s.state.Notes {
		if note.ID == id {
			return note, true
		}
	}
	return model.Note{}, false
}
