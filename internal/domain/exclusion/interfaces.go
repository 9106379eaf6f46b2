package exclusion

import "context"

// Repository provides persistence for exclusion entries.
type Repository interface {
	// Add stores an entry. Adding an entry already present is not an error.
	Add(ctx context.Context, e *Entry) error
	ListByFile(ctx context.Context, fileID string) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
}

// Metrics receives exclusion events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ExclusionRecorded()
	StaleExclusionServed()
}
