// Package memory provides in-process repository implementations. They back
// the "memory" database driver and the workflow tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/repository"
)

// ActionStore is an in-memory action.Repository.
type ActionStore struct {
	mu    sync.RWMutex
	data  map[string]action.Action
	order []string
}

// NewActionStore creates an empty action store.
func NewActionStore() *ActionStore {
	return &ActionStore{data: make(map[string]action.Action)}
}

func (s *ActionStore) Create(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[a.ID]; ok {
		return repository.ErrConflict
	}
	s.data[a.ID] = cloneAction(*a)
	s.order = append(s.order, a.ID)
	return nil
}

func (s *ActionStore) Get(_ context.Context, id string) (*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneAction(a)
	return &out, nil
}

// Update replaces the action when its stored version equals expectedVersion.
func (s *ActionStore) Update(_ context.Context, a *action.Action, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repository.ErrConflict
	}
	s.data[a.ID] = cloneAction(*a)
	return nil
}

func (s *ActionStore) List(_ context.Context, opts action.ListOptions) ([]action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code := site.NormalizeCode(opts.SiteCode)
	out := []action.Action{}
	for _, id := range s.order {
		a := s.data[id]
		switch {
		case opts.AssignedToRole != "" && a.AssignedToRole != opts.AssignedToRole:
		case opts.AssignedByRole != "" && a.AssignedByRole != opts.AssignedByRole:
		case opts.Party != "" && !a.InvolvesRole(opts.Party):
		case code != "" && a.SiteCode != code:
		case opts.SourceFileID != "" && a.SourceFileID != opts.SourceFileID:
		case opts.Kind != "" && a.Kind != opts.Kind:
		case opts.OpenOnly && !a.Open():
		default:
			out = append(out, cloneAction(a))
		}
	}
	return out, nil
}

func cloneAction(a action.Action) action.Action {
	a.Photos = slices.Clone(a.Photos)
	a.PreviousAssignees = slices.Clone(a.PreviousAssignees)
	return a
}
