package observation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/repository"
)

// Service handles observation state.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new observation service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RecordRequest defines an observation write.
type RecordRequest struct {
	RowKey   rowkey.RowKey
	SiteCode string
	Role     team.Role
	Status   Status
	Remarks  string
}

// Record creates or overwrites the role's observation.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*State, error) {
	code := site.NormalizeCode(req.SiteCode)
	if !req.Role.Valid() || (code == "" && req.RowKey.IsZero()) {
		return nil, ErrInvalidInput
	}
	switch req.Status {
	case StatusNone, StatusPending, StatusResolved:
	default:
		return nil, ErrInvalidInput
	}

	st := &State{
		RowKey:    req.RowKey,
		SiteCode:  code,
		Role:      req.Role,
		Status:    req.Status,
		Remarks:   strings.TrimSpace(req.Remarks),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("recording observation: %w", err)
	}
	return st, nil
}

// ForceResolved overwrites the role's observation with Resolved, keeping any
// remarks already recorded.
func (s *Service) ForceResolved(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) error {
	prev, err := s.Lookup(ctx, key, siteCode, role)
	if err != nil {
		return err
	}
	req := RecordRequest{RowKey: key, SiteCode: siteCode, Role: role, Status: StatusResolved}
	if prev != nil {
		req.Remarks = prev.Remarks
	}
	_, err = s.Record(ctx, req)
	return err
}

// Clear resets the role's observation so it can resubmit.
func (s *Service) Clear(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) error {
	_, err := s.Record(ctx, RecordRequest{RowKey: key, SiteCode: siteCode, Role: role, Status: StatusNone})
	return err
}

// Status returns the role's observation marker, StatusNone when absent.
func (s *Service) Status(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) (Status, error) {
	st, err := s.Lookup(ctx, key, siteCode, role)
	if err != nil || st == nil {
		return StatusNone, err
	}
	return st.Status, nil
}

// Lookup finds the role's state by row key, then by site code. A nil state
// means the role has observed nothing.
func (s *Service) Lookup(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) (*State, error) {
	if !key.IsZero() {
		st, err := s.repo.Get(ctx, Subject(key, ""), role)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("getting observation: %w", err)
		}
	}
	code := site.NormalizeCode(siteCode)
	if code == "" {
		return nil, nil
	}
	states, err := s.repo.FindBySite(ctx, code, role)
	if err != nil {
		return nil, fmt.Errorf("finding observation by site: %w", err)
	}
	if len(states) == 0 {
		return nil, nil
	}
	return &states[0], nil
}

// Migrate moves stored states onto the keys a re-ingested file resolves to.
// Unmatched keys keep their state but no current row reaches it.
func (s *Service) Migrate(ctx context.Context, m rowkey.Migration) (int, error) {
	froms := make([]rowkey.RowKey, 0, len(m.Moves))
	for from := range m.Moves {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool { return froms[i].String() < froms[j].String() })

	moved := 0
	for _, from := range froms {
		if err := s.repo.Rekey(ctx, from, m.Moves[from]); err != nil {
			return moved, fmt.Errorf("rekeying observation %s: %w", from, err)
		}
		moved++
	}
	if len(m.Unmatched) > 0 {
		s.logger.Info("row keys without a current row, prior state dropped from view", "count", len(m.Unmatched))
	}
	return moved, nil
}

// KnownKeys lists the distinct row keys holding state for a file.
func (s *Service) KnownKeys(ctx context.Context, fileID string) ([]rowkey.RowKey, error) {
	states, err := s.repo.ListByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	seen := make(map[rowkey.RowKey]bool, len(states))
	var keys []rowkey.RowKey
	for _, st := range states {
		if st.RowKey.IsZero() || seen[st.RowKey] {
			continue
		}
		seen[st.RowKey] = true
		keys = append(keys, st.RowKey)
	}
	return keys, nil
}
