// Package workflow is the facade the presentation layer drives. It ties the
// routing engine, action lifecycle, approval chain, status aggregation and
// exclusion filter into the operations a client calls.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/metrics"
)

const defaultFanoutLimit = 4

var (
	// ErrInvalidInput is returned when a request is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownRole is returned when the caller names no known role.
	ErrUnknownRole = errors.New("unknown role")
)

// Caller identifies who issued a request.
type Caller struct {
	Role   team.Role `json:"role"`
	UserID string    `json:"user_id,omitempty"`
}

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Router       *routing.Engine
	Actions      *action.Service
	Observations *observation.Service
	Exclusions   *exclusion.Service
	Files        *sourcefile.Service
	Activity     *activity.Service
	Metrics      *metrics.Collectors
	Logger       *slog.Logger
	// FanoutLimit bounds concurrent destination submissions.
	FanoutLimit int
}

// Engine implements the workflow operations.
type Engine struct {
	router       *routing.Engine
	actions      *action.Service
	observations *observation.Service
	exclusions   *exclusion.Service
	files        *sourcefile.Service
	audit        *activity.Service
	coord        *approval.Coordinator
	metrics      *metrics.Collectors
	logger       *slog.Logger
	fanoutLimit  int
}

// New creates an Engine.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := d.FanoutLimit
	if limit <= 0 {
		limit = defaultFanoutLimit
	}
	var auditor approval.Auditor
	if d.Activity != nil {
		auditor = d.Activity
	}
	return &Engine{
		router:       d.Router,
		actions:      d.Actions,
		observations: d.Observations,
		exclusions:   d.Exclusions,
		files:        d.Files,
		audit:        d.Activity,
		coord:        approval.NewCoordinator(d.Actions, d.Observations, d.Exclusions, auditor, logger),
		metrics:      d.Metrics,
		logger:       logger,
		fanoutLimit:  limit,
	}
}

// ResolveRowKey computes a row's identity key.
func (e *Engine) ResolveRowKey(fileID string, row site.Row, headers []string) rowkey.RowKey {
	return rowkey.Resolve(fileID, row, headers)
}

// Route returns the destinations an issue at a site is routed to.
func (e *Engine) Route(issue, deviceType, circle, siteCode string) routing.DestinationSet {
	return e.routeSite(issue, site.SiteRecord{SiteCode: siteCode, DeviceType: deviceType, Circle: circle})
}

func (e *Engine) routeSite(issue string, rec site.SiteRecord) routing.DestinationSet {
	dests := e.router.RouteSite(issue, rec)
	for _, d := range dests {
		e.metrics.Routed(string(d.Role))
	}
	return dests
}

// UpdateActionStatus moves an action to status and advances its approval
// chain. Completed is terminal.
func (e *Engine) UpdateActionStatus(ctx context.Context, id string, status action.Status, remarks string) (*approval.Outcome, error) {
	ev, err := action.EventFor(status)
	if err != nil {
		return nil, err
	}

	var out *approval.Outcome
	switch ev {
	case action.EventComplete:
		out, err = e.coord.Complete(ctx, id, remarks)
	case action.EventRequestRecheck:
		out, err = e.coord.RequestRecheck(ctx, id, remarks)
	case action.EventResubmit:
		out, err = e.coord.Resubmit(ctx, id, remarks)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.Transition(string(ev))
	return out, nil
}

// RequestRecheck sends an approval back to the role that submitted it.
func (e *Engine) RequestRecheck(ctx context.Context, id, remarks string) (*approval.Outcome, error) {
	return e.UpdateActionStatus(ctx, id, action.StatusInProgress, remarks)
}

// RerouteAction reassigns an action in place.
func (e *Engine) RerouteAction(ctx context.Context, id string, req action.RerouteRequest) (*action.Action, error) {
	a, changed, err := e.actions.Reroute(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if !changed {
		return a, nil
	}
	e.metrics.Transition("reroute")
	actionID := a.ID
	e.record(ctx, &activity.ActivityEntry{
		SiteCode:     a.SiteCode,
		FileID:       a.SourceFileID,
		ActionID:     &actionID,
		Role:         string(a.AssignedToRole),
		ActivityType: activity.TypeActionRerouted,
		Summary:      fmt.Sprintf("rerouted to %s", routing.Label(a.AssignedToRole, a.AssignedToVendor)),
	}, a.PreviousAssignees)
	return a, nil
}

// RecordObservation stores a role's marker for a row and lets the approval
// chain react to it.
func (e *Engine) RecordObservation(ctx context.Context, req observation.RecordRequest) (*approval.Outcome, error) {
	out, err := e.coord.RecordObservation(ctx, req)
	if err != nil {
		return nil, err
	}
	e.metrics.Transition("observe")
	return out, nil
}

// ListMyActions returns the actions assigned to role on sites still active.
func (e *Engine) ListMyActions(ctx context.Context, role team.Role) ([]action.Action, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	list, err := e.actions.List(ctx, action.ListOptions{AssignedToRole: role})
	if err != nil {
		return nil, err
	}
	return exclusion.Filter(e.excludedSet(ctx), list, actionKey), nil
}

// ListActionsIRouted returns the actions role assigned on sites still active.
func (e *Engine) ListActionsIRouted(ctx context.Context, role team.Role) ([]action.Action, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	list, err := e.actions.List(ctx, action.ListOptions{AssignedByRole: role})
	if err != nil {
		return nil, err
	}
	return exclusion.Filter(e.excludedSet(ctx), list, actionKey), nil
}

// Activity returns the audit trail of a site, newest first.
func (e *Engine) Activity(ctx context.Context, siteCode string, limit int) ([]activity.ActivityEntry, error) {
	if e.audit == nil {
		return []activity.ActivityEntry{}, nil
	}
	return e.audit.GetRecentActivity(ctx, activity.ListActivityOptions{SiteCode: siteCode, Limit: limit})
}

func (e *Engine) record(ctx context.Context, entry *activity.ActivityEntry, details any) {
	if e.audit != nil {
		e.audit.Record(ctx, entry, details)
	}
}

func actionKey(a action.Action) (rowkey.RowKey, string) {
	if !a.OriginRowKey.IsZero() {
		return a.OriginRowKey, a.SiteCode
	}
	return a.RowKey, a.SiteCode
}
