package driven

import "context"

// StateStore defines the driven port for durable key-value persistence.
// Values are opaque serialized records (JSON in practice); one record per
// logical key ("github_token", "pingcode_credentials", ...). Records survive
// process restarts.
type StateStore interface {
	// Get retrieves the record for the given key. The second return is false
	// when no record exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores or replaces the record for the given key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the record for the given key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
