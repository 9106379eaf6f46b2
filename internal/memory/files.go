package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/repository"
)

// SourceFileStore is an in-memory sourcefile.Repository.
type SourceFileStore struct {
	mu   sync.RWMutex
	data map[string]sourcefile.File
}

// NewSourceFileStore creates an empty file registry.
func NewSourceFileStore() *SourceFileStore {
	return &SourceFileStore{data: make(map[string]sourcefile.File)}
}

func (s *SourceFileStore) Create(_ context.Context, f *sourcefile.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[f.ID]; ok {
		return repository.ErrConflict
	}
	cp := *f
	cp.Headers = slices.Clone(f.Headers)
	s.data[f.ID] = cp
	return nil
}

func (s *SourceFileStore) Get(_ context.Context, id string) (*sourcefile.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.Headers = slices.Clone(f.Headers)
	return &f, nil
}

func (s *SourceFileStore) Update(_ context.Context, f *sourcefile.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[f.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name = f.Name
	cur.Headers = slices.Clone(f.Headers)
	cur.UpdatedAt = f.UpdatedAt
	s.data[f.ID] = cur
	return nil
}

func (s *SourceFileStore) List(_ context.Context) ([]sourcefile.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sourcefile.File, 0, len(s.data))
	for _, f := range s.data {
		f.Headers = slices.Clone(f.Headers)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IncrementTick bumps the file tick and returns the new value.
func (s *SourceFileStore) IncrementTick(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.data[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	f.Tick++
	s.data[id] = f
	return f.Tick, nil
}
