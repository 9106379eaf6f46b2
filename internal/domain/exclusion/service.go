package exclusion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"golang.org/x/sync/singleflight"
)

const allKey = "*"

// Service reads and appends the exclusion set. Concurrent fetches of the same
// scope share one repository call; when a fetch fails the last known snapshot
// is served instead.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]Set
}

// NewService creates a new exclusion service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]Set),
	}
}

// WithMetrics attaches a metrics sink.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// Record appends an entry and makes it visible to later reads immediately.
func (s *Service) Record(ctx context.Context, e Entry) error {
	e.SiteCode = site.NormalizeCode(e.SiteCode)
	if e.SiteCode == "" && e.RowKey.IsZero() {
		return ErrInvalidInput
	}
	if e.FileID == "" {
		e.FileID = e.RowKey.FileID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Add(ctx, &e); err != nil {
		return fmt.Errorf("recording exclusion: %w", err)
	}

	s.mu.Lock()
	for _, scope := range []string{allKey, fileKey(e.FileID)} {
		set := s.cache[scope].clone()
		set.add(e)
		s.cache[scope] = set
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ExclusionRecorded()
	}
	s.logger.Info("site excluded", "site_code", e.SiteCode, "row_key", e.RowKey.String(), "approval_id", e.ApprovalID)
	return nil
}

// ForFile returns the exclusion set recorded against one file.
func (s *Service) ForFile(ctx context.Context, fileID string) (Set, error) {
	return s.fetch(ctx, fileKey(fileID), func(ctx context.Context) ([]Entry, error) {
		return s.repo.ListByFile(ctx, fileID)
	})
}

// All returns the exclusion set across every file.
func (s *Service) All(ctx context.Context) (Set, error) {
	return s.fetch(ctx, allKey, s.repo.ListAll)
}

// IsExcluded reports whether a row or site is excluded for every role.
func (s *Service) IsExcluded(ctx context.Context, key rowkey.RowKey, siteCode string) (bool, error) {
	set, err := s.All(ctx)
	if err != nil {
		return false, err
	}
	return set.Contains(key, siteCode), nil
}

func (s *Service) fetch(ctx context.Context, scope string, list func(context.Context) ([]Entry, error)) (Set, error) {
	v, err, _ := s.group.Do(scope, func() (any, error) {
		entries, err := list(ctx)
		if err != nil {
			return nil, err
		}
		set := NewSet(entries)
		s.mu.Lock()
		// Entries are never revoked, so anything recorded while the list
		// was in flight is kept.
		set.merge(s.cache[scope])
		s.cache[scope] = set
		s.mu.Unlock()
		return set, nil
	})
	if err == nil {
		return v.(Set), nil
	}

	s.mu.RLock()
	last, ok := s.cache[scope]
	s.mu.RUnlock()
	if !ok {
		return Set{}, fmt.Errorf("fetching exclusions: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StaleExclusionServed()
	}
	s.logger.Warn("exclusion fetch failed, serving last known set", "scope", scope, "error", err)
	last = last.clone()
	last.Stale = true
	return last, nil
}

func fileKey(fileID string) string {
	return "file:" + fileID
}
