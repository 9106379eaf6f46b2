package sourcefile

import "context"

// Repository provides persistence for source files.
type Repository interface {
	Create(ctx context.Context, f *File) error
	Get(ctx context.Context, id string) (*File, error)
	Update(ctx context.Context, f *File) error
	List(ctx context.Context) ([]File, error)
	IncrementTick(ctx context.Context, id string) (int64, error)
}
