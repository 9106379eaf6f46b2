package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/repository"
)

type obsKey struct {
	subject string
	role    team.Role
}

// ObservationStore is an in-memory observation.Repository keyed by subject and role.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[obsKey]observation.State
}

// NewObservationStore creates an empty observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{data: make(map[obsKey]observation.State)}
}

func (s *ObservationStore) Put(_ context.Context, st *observation.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[obsKey{observation.Subject(st.RowKey, st.SiteCode), st.Role}] = *st
	return nil
}

func (s *ObservationStore) Get(_ context.Context, subject string, role team.Role) (*observation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[obsKey{subject, role}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *ObservationStore) FindBySite(_ context.Context, siteCode string, role team.Role) ([]observation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []observation.State{}
	for k, st := range s.data {
		if k.role == role && st.SiteCode == siteCode {
			out = append(out, st)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *ObservationStore) ListByFile(_ context.Context, fileID string) ([]observation.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []observation.State{}
	for _, st := range s.data {
		if st.RowKey.FileID == fileID {
			out = append(out, st)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Rekey moves every state recorded under from to the row key to.
func (s *ObservationStore) Rekey(_ context.Context, from, to rowkey.RowKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, st := range s.data {
		if st.RowKey != from {
			continue
		}
		delete(s.data, k)
		st.RowKey = to
		s.data[obsKey{observation.Subject(to, st.SiteCode), st.Role}] = st
	}
	return nil
}

func sortNewestFirst(states []observation.State) {
	sort.SliceStable(states, func(i, j int) bool {
		if !states[i].UpdatedAt.Equal(states[j].UpdatedAt) {
			return states[i].UpdatedAt.After(states[j].UpdatedAt)
		}
		return observation.Subject(states[i].RowKey, states[i].SiteCode) < observation.Subject(states[j].RowKey, states[j].SiteCode)
	})
}
