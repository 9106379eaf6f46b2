package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/repository"
)

// maxUpdateAttempts bounds optimistic retries when another writer wins.
const maxUpdateAttempts = 3

// Service handles action lifecycle operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new action service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest defines action creation inputs.
type CreateRequest struct {
	SourceFileID     string
	RowKey           rowkey.RowKey
	SiteCode         string
	DeviceType       string
	TypeOfIssue      string
	Kind             Kind
	AssignedByRole   team.Role
	AssignedByUserID string
	AssignedToRole   team.Role
	AssignedToUserID string
	AssignedToVendor string
	Remarks          string
	Photos           []string
	OriginRowKey     rowkey.RowKey
	OriginActionID   string
	SubmittedByRole  team.Role
	// CreatedAt stamps the action. Zero means now.
	CreatedAt time.Time
}

// RerouteRequest names the new assignee and any remarks or photos added with
// the handover.
type RerouteRequest struct {
	Role    team.Role
	UserID  string
	Vendor  string
	Remarks string
	Photos  []string
}

// Create stores a new action in Pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Action, error) {
	if req.Kind == "" {
		req.Kind = KindExecution
	}
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !req.CreatedAt.IsZero() {
		now = req.CreatedAt.UTC()
	}
	a := &Action{
		ID:               uuid.NewString(),
		SourceFileID:     req.SourceFileID,
		RowKey:           req.RowKey,
		SiteCode:         site.NormalizeCode(req.SiteCode),
		DeviceType:       strings.TrimSpace(req.DeviceType),
		TypeOfIssue:      strings.TrimSpace(req.TypeOfIssue),
		Kind:             req.Kind,
		AssignedByRole:   req.AssignedByRole,
		AssignedByUserID: req.AssignedByUserID,
		AssignedToRole:   req.AssignedToRole,
		AssignedToUserID: req.AssignedToUserID,
		AssignedToVendor: req.AssignedToVendor,
		Status:           StatusPending,
		Remarks:          strings.TrimSpace(req.Remarks),
		Photos:           appendUnique(nil, req.Photos...),
		OriginRowKey:     req.OriginRowKey,
		OriginActionID:   req.OriginActionID,
		SubmittedByRole:  req.SubmittedByRole,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating action: %w", err)
	}
	s.logger.Debug("action created", "action_id", a.ID, "site_code", a.SiteCode,
		"issue", a.TypeOfIssue, "assigned_to", a.AssignedToRole, "vendor", a.AssignedToVendor)
	return a, nil
}

// Get fetches an action by ID.
func (s *Service) Get(ctx context.Context, id string) (*Action, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("getting action: %w", err)
	}
	return a, nil
}

// List returns actions matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Action, error) {
	actions, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return actions, nil
}

// Complete moves an action to Completed, appending remarks.
func (s *Service) Complete(ctx context.Context, id, remarks string) (*Action, error) {
	return s.apply(ctx, id, EventComplete, remarks)
}

// RequestRecheck sends an approval back to its submitter.
func (s *Service) RequestRecheck(ctx context.Context, id, remarks string) (*Action, error) {
	return s.apply(ctx, id, EventRequestRecheck, remarks)
}

// Resubmit returns a rechecked approval to Pending.
func (s *Service) Resubmit(ctx context.Context, id, remarks string) (*Action, error) {
	return s.apply(ctx, id, EventResubmit, remarks)
}

// Apply fires ev against an action.
func (s *Service) Apply(ctx context.Context, id string, ev Event, remarks string) (*Action, error) {
	return s.apply(ctx, id, ev, remarks)
}

func (s *Service) apply(ctx context.Context, id string, ev Event, remarks string) (*Action, error) {
	return s.mutate(ctx, id, func(a *Action) (bool, error) {
		next, err := Transition(a, ev)
		if err != nil {
			return false, err
		}
		a.Status = next
		a.Remarks = appendRemark(a.Remarks, remarks)
		return true, nil
	})
}

// Reroute reassigns an action in place. The previous assignee is superseded in
// the same update; id, status, remarks and photos are kept. Rerouting to the
// current assignee is a no-op and reports changed=false.
func (s *Service) Reroute(ctx context.Context, id string, req RerouteRequest) (*Action, bool, error) {
	if err := ValidateReroute(req); err != nil {
		return nil, false, err
	}
	target := Assignee{Role: req.Role, UserID: req.UserID, Vendor: req.Vendor}

	var changed bool
	a, err := s.mutate(ctx, id, func(a *Action) (bool, error) {
		if a.Status == StatusCompleted {
			return false, fmt.Errorf("reroute from %s: %w", a.Status, ErrInvalidTransition)
		}
		changed = false
		if a.Assignee() != target {
			a.PreviousAssignees = append(a.PreviousAssignees, a.Assignee())
			a.AssignedToRole = target.Role
			a.AssignedToUserID = target.UserID
			a.AssignedToVendor = target.Vendor
			changed = true
		}
		remarks := appendRemark(a.Remarks, req.Remarks)
		photos := appendUnique(a.Photos, req.Photos...)
		if remarks != a.Remarks || len(photos) != len(a.Photos) {
			a.Remarks = remarks
			a.Photos = photos
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, false, err
	}
	return a, changed, nil
}

// mutate loads, edits and stores an action under optimistic concurrency,
// retrying when another writer got there first.
func (s *Service) mutate(ctx context.Context, id string, edit func(*Action) (bool, error)) (*Action, error) {
	for attempt := 1; ; attempt++ {
		a, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := a.Version
		changed, err := edit(a)
		if err != nil {
			return nil, err
		}
		if !changed {
			return a, nil
		}
		a.Version = expected + 1
		a.UpdatedAt = s.now().UTC()

		err = s.repo.Update(ctx, a, expected)
		if err == nil {
			return a, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("updating action: %w", err)
		}
		if attempt >= maxUpdateAttempts {
			return nil, ErrConflict
		}
		s.logger.Debug("action update conflict, retrying", "action_id", id, "attempt", attempt)
	}
}

func appendRemark(existing, add string) string {
	add = strings.TrimSpace(add)
	if add == "" {
		return existing
	}
	if existing == "" {
		return add
	}
	for _, line := range strings.Split(existing, "\n") {
		if line == add {
			return existing
		}
	}
	return existing + "\n" + add
}

func appendUnique(existing []string, add ...string) []string {
	out := existing
	for _, p := range add {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
