package action

import "context"

// Repository provides persistence for actions.
type Repository interface {
	Create(ctx context.Context, a *Action) error
	Get(ctx context.Context, id string) (*Action, error)
	// Update stores a when the persisted version equals expectedVersion and
	// returns repository.ErrConflict otherwise.
	Update(ctx context.Context, a *Action, expectedVersion int64) error
	List(ctx context.Context, opts ListOptions) ([]Action, error)
}
