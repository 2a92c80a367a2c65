package blackboard

import "context"

// Store is the shared key-value space. Values are plain text and the last
// write for a key wins.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
