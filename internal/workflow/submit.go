package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"golang.org/x/sync/errgroup"
)

// SubmitRequest reports an observed issue on one spreadsheet row.
type SubmitRequest struct {
	FileID string
	// RowKey is resolved from Row and Headers when zero.
	RowKey  rowkey.RowKey
	Row     site.Row
	Headers []string
	Issue   string
	Remarks string
	Photos  []string
	Caller  Caller
	// Only restricts submission to these destinations. Retry sets it to the
	// destinations that failed.
	Only routing.DestinationSet
}

// DestinationResult is the outcome of submitting to one destination.
type DestinationResult struct {
	Destination routing.Destination `json:"destination"`
	Action      *action.Action      `json:"action,omitempty"`
	Err         error               `json:"-"`
	Error       string              `json:"error,omitempty"`
}

// SubmitResult reports every destination of a submission separately.
// Destinations that succeeded are never rolled back.
type SubmitResult struct {
	RowKey       rowkey.RowKey          `json:"row_key"`
	SiteCode     string                 `json:"site_code"`
	Destinations routing.DestinationSet `json:"destinations"`
	Results      []DestinationResult    `json:"results"`
	Observation  *observation.State     `json:"observation,omitempty"`
}

// Failed returns the destinations whose submission failed.
func (r *SubmitResult) Failed() routing.DestinationSet {
	var out routing.DestinationSet
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Destination)
		}
	}
	return out
}

// OK reports whether every destination succeeded.
func (r *SubmitResult) OK() bool {
	return len(r.Failed()) == 0
}

// Submit routes an observed issue and creates one action per destination.
// Destinations are submitted concurrently and independently. An issue with no
// routed destination is recorded as the caller's observation only.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if !req.Caller.Role.Valid() {
		return nil, ErrUnknownRole
	}
	rec := req.Row.Record()
	rec.SiteCode = site.NormalizeCode(rec.SiteCode)
	if rec.SiteCode == "" || strings.TrimSpace(req.Issue) == "" {
		return nil, fmt.Errorf("site code and issue are required: %w", ErrInvalidInput)
	}
	key := req.RowKey
	if key.IsZero() {
		key = rowkey.Resolve(req.FileID, req.Row, req.Headers)
	}

	dests := e.routeSite(req.Issue, rec)
	retry := len(req.Only) > 0
	if retry {
		dests = restrict(dests, req.Only)
	}
	res := &SubmitResult{RowKey: key, SiteCode: rec.SiteCode, Destinations: dests}

	if !retry {
		out, err := e.coord.RecordObservation(ctx, observation.RecordRequest{
			RowKey:   key,
			SiteCode: rec.SiteCode,
			Role:     req.Caller.Role,
			Status:   observation.StatusPending,
			Remarks:  req.Remarks,
		})
		if err != nil {
			return nil, fmt.Errorf("recording submitter observation: %w", err)
		}
		res.Observation = out.Observation
	}
	if dests.Empty() {
		e.logger.Info("issue has no routed destination, recorded remarks only",
			"site_code", rec.SiteCode, "issue", req.Issue)
		return res, nil
	}

	// One timestamp for the whole fan-out keeps sibling actions ordered by
	// destination rather than by goroutine scheduling.
	submittedAt := time.Now().UTC()
	res.Results = make([]DestinationResult, len(dests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanoutLimit)
	for i, d := range dests {
		g.Go(func() error {
			a, err := e.create(gctx, req, key, rec, d, submittedAt)
			res.Results[i] = DestinationResult{Destination: d, Action: a, Err: err}
			if err != nil {
				res.Results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range res.Results {
		if r.Err == nil {
			continue
		}
		e.metrics.FanoutFailure(string(r.Destination.Role))
		e.logger.Warn("destination submission failed, other destinations kept",
			"site_code", rec.SiteCode, "destination", r.Destination.Label(), "error", r.Err)
	}
	return res, nil
}

// Retry resubmits only the destinations that failed in prev.
func (e *Engine) Retry(ctx context.Context, req SubmitRequest, prev *SubmitResult) (*SubmitResult, error) {
	failed := prev.Failed()
	if len(failed) == 0 {
		return prev, nil
	}
	req.RowKey = prev.RowKey
	req.Only = failed
	return e.Submit(ctx, req)
}

// SubmitActionRequest creates one action for an explicitly chosen
// destination.
type SubmitActionRequest struct {
	FileID      string
	RowKey      rowkey.RowKey
	Row         site.Row
	Headers     []string
	Destination routing.Destination
	Issue       string
	Remarks     string
	Photos      []string
	Caller      Caller
}

// SubmitAction creates a single action without routing.
func (e *Engine) SubmitAction(ctx context.Context, req SubmitActionRequest) (*action.Action, error) {
	if !req.Caller.Role.Valid() {
		return nil, ErrUnknownRole
	}
	rec := req.Row.Record()
	key := req.RowKey
	if key.IsZero() {
		key = rowkey.Resolve(req.FileID, req.Row, req.Headers)
	}
	return e.create(ctx, SubmitRequest{
		FileID:  req.FileID,
		Issue:   req.Issue,
		Remarks: req.Remarks,
		Photos:  req.Photos,
		Caller:  req.Caller,
	}, key, rec, req.Destination, time.Time{})
}

func (e *Engine) create(ctx context.Context, req SubmitRequest, key rowkey.RowKey, rec site.SiteRecord, d routing.Destination, at time.Time) (*action.Action, error) {
	a, err := e.actions.Create(ctx, action.CreateRequest{
		SourceFileID:     req.FileID,
		RowKey:           key,
		SiteCode:         rec.SiteCode,
		DeviceType:       rec.DeviceType,
		TypeOfIssue:      req.Issue,
		AssignedByRole:   req.Caller.Role,
		AssignedByUserID: req.Caller.UserID,
		AssignedToRole:   d.Role,
		AssignedToVendor: d.Vendor,
		Remarks:          req.Remarks,
		Photos:           req.Photos,
		CreatedAt:        at,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.Transition("create")
	actionID := a.ID
	e.record(ctx, &activity.ActivityEntry{
		SiteCode:     a.SiteCode,
		FileID:       a.SourceFileID,
		ActionID:     &actionID,
		Role:         string(a.AssignedByRole),
		ActivityType: activity.TypeActionCreated,
		Summary:      fmt.Sprintf("%s routed to %s", a.TypeOfIssue, d.Label()),
	}, nil)
	return a, nil
}

func restrict(dests, only routing.DestinationSet) routing.DestinationSet {
	var out routing.DestinationSet
	for _, d := range dests {
		for _, o := range only {
			if d == o {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
