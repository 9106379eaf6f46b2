package memory

import (
	"context"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
)

type exclusionKey struct {
	fileID   string
	rowKey   rowkey.RowKey
	siteCode string
}

// ExclusionStore is an in-memory exclusion.Repository.
type ExclusionStore struct {
	mu      sync.RWMutex
	seen    map[exclusionKey]struct{}
	entries []exclusion.Entry
}

// NewExclusionStore creates an empty exclusion store.
func NewExclusionStore() *ExclusionStore {
	return &ExclusionStore{seen: make(map[exclusionKey]struct{})}
}

func (s *ExclusionStore) Add(_ context.Context, e *exclusion.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := exclusionKey{e.FileID, e.RowKey, e.SiteCode}
	if _, ok := s.seen[k]; ok {
		return nil
	}
	s.seen[k] = struct{}{}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *ExclusionStore) ListByFile(_ context.Context, fileID string) ([]exclusion.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []exclusion.Entry{}
	for _, e := range s.entries {
		if e.FileID == fileID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ExclusionStore) ListAll(_ context.Context) ([]exclusion.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]exclusion.Entry{}, s.entries...), nil
}
