package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// workspaceKey is the app_state record holding the UI selection.
const workspaceKey = "appState"

// Compile-time interface satisfaction check.
var _ driven.NotesStore = (*NotesRepo)(nil)

// NotesRepo is the SQLite implementation of the NotesStore port interface.
// SaveAll replaces the notes, categories, and tags collections plus the
// workspace record in one transaction (clear, then bulk insert), matching the
// wholesale-replacement contract of the port.
type NotesRepo struct {
	db *DB
}

// NewNotesRepo creates a new NotesRepo backed by the given DB.
func NewNotesRepo(db *DB) *NotesRepo {
	return &NotesRepo{db: db}
}

// LoadAll returns the complete persisted notes state. An empty database
// yields a zero-value state. A workspace record that fails to parse is
// treated as absent.
func (r *NotesRepo) LoadAll(ctx context.Context) (model.NotesState, error) {
	var state model.NotesState

	notes, err := r.loadNotes(ctx)
	if err != nil {
		return state, err
	}
	state.Notes = notes

	categories, err := r.loadCategories(ctx)
	if err != nil {
		return state, err
	}
	state.Categories = categories

	tags, err := r.loadTags(ctx)
	if err != nil {
		return state, err
	}
	state.Tags = tags

	var wsData []byte
	err = r.db.Reader.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, workspaceKey).Scan(&wsData)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No workspace persisted yet.
	case err != nil:
		return state, fmt.Errorf("load workspace: %w", err)
	default:
		var ws model.Workspace
		if err := json.Unmarshal(wsData, &ws); err == nil {
			state.Workspace = ws
		}
	}

	return state, nil
}

// SaveAll replaces all persisted collections with the given state in a single
// transaction.
func (r *NotesRepo) SaveAll(ctx context.Context, state model.NotesState) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notes", "categories", "tags"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const insertNote = `INSERT INTO notes (id, title, content, category_id, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, note := range state.Notes {
		tags, err := json.Marshal(note.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for note %q: %w", note.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insertNote,
			note.ID, note.Title, note.Content, note.CategoryID, string(tags),
			formatTime(note.CreatedAt), formatTime(note.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert note %q: %w", note.ID, err)
		}
	}

	const insertCategory = `INSERT INTO categories (id, name, parent_id, created_at) VALUES (?, ?, ?, ?)`
	for _, cat := range state.Categories {
		if _, err := tx.ExecContext(ctx, insertCategory,
			cat.ID, cat.Name, cat.ParentID, formatTime(cat.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert category %q: %w", cat.ID, err)
		}
	}

	const insertTag = `INSERT INTO tags (name) VALUES (?)`
	for _, tag := range state.Tags {
		if _, err := tx.ExecContext(ctx, insertTag, tag); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}

	wsData, err := json.Marshal(state.Workspace)
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	const upsertWorkspace = `INSERT OR REPLACE INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := tx.ExecContext(ctx, upsertWorkspace, workspaceKey, wsData); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// ClearAll removes every persisted note, category, tag, and the workspace
// record in a single transaction.
func (r *NotesRepo) ClearAll(ctx context.Context) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notes", "categories", "tags"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, workspaceKey); err != nil {
		return fmt.Errorf("clear workspace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

func (r *NotesRepo) loadNotes(ctx context.Context) ([]model.Note, error) {
	const query = `SELECT id, title, content, category_id, tags, created_at, updated_at FROM notes ORDER BY created_at`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var note model.Note
		var tagsJSON, createdAt, updatedAt string
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.CategoryID, &tagsJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}

		if err := json.Unmarshal([]byte(tagsJSON), &note.Tags); err != nil {
			note.Tags = []string{}
		}
		if note.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for note %q: %w", note.ID, err)
		}
		if note.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for note %q: %w", note.ID, err)
		}

		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func (r *NotesRepo) loadCategories(ctx context.Context) ([]model.Category, error) {
	const query = `SELECT id, name, parent_id, created_at FROM categories ORDER BY created_at`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		var createdAt string
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.ParentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if cat.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for category %q: %w", cat.ID, err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *NotesRepo) loadTags(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM tags ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// formatTime serializes a timestamp as UTC RFC 3339 with nanoseconds so
// round-trips compare equal.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a timestamp stored by formatTime.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
