package memory

import (
	"context"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/site"
)

// ActivityStore is an in-memory activity.Repository.
type ActivityStore struct {
	mu      sync.RWMutex
	entries []activity.ActivityEntry
}

// NewActivityStore creates an empty activity log.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

func (s *ActivityStore) Log(_ context.Context, entry *activity.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *entry)
	return nil
}

// List returns matching entries newest first.
func (s *ActivityStore) List(_ context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code := site.NormalizeCode(opts.SiteCode)
	out := []activity.ActivityEntry{}
	skipped := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		switch {
		case code != "" && e.SiteCode != code:
			continue
		case opts.FileID != "" && e.FileID != opts.FileID:
			continue
		case opts.ActionID != nil && (e.ActionID == nil || *e.ActionID != *opts.ActionID):
			continue
		case opts.ActivityType != nil && e.ActivityType != *opts.ActivityType:
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}
