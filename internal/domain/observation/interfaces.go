package observation

import (
	"context"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Repository provides persistence for observation state.
type Repository interface {
	// Put inserts or replaces the state for (Subject, Role).
	Put(ctx context.Context, st *State) error
	Get(ctx context.Context, subject string, role team.Role) (*State, error)
	// FindBySite returns a role's states for a normalised site code, newest
	// first.
	FindBySite(ctx context.Context, siteCode string, role team.Role) ([]State, error)
	ListByFile(ctx context.Context, fileID string) ([]State, error)
	// Rekey moves every role's state from one row key to another.
	Rekey(ctx context.Context, from, to rowkey.RowKey) error
}
