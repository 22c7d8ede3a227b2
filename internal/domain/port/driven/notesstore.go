package driven

import (
	"context"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// NotesStore defines the driven port for notes/categories persistence.
// The full state is replaced wholesale on each save; partial updates are not
// part of the contract.
type NotesStore interface {
	// LoadAll returns the complete persisted notes state. An empty database
	// yields a zero-value state, not an error.
	LoadAll(ctx context.Context) (model.NotesState, error)

	// SaveAll replaces all persisted collections with the given state in a
	// single transaction (clear, then bulk insert).
	SaveAll(ctx context.Context, state model.NotesState) error

	// ClearAll removes every persisted note, category, tag, and the workspace
	// record in a single transaction.
	ClearAll(ctx context.Context) error
}
