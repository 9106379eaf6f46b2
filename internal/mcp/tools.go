package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/syncer"
	"github.com/rpggio/siteflow/internal/workflow"
)

const defaultActivityLimit = 50

type tools struct {
	wf     Workflow
	drafts *syncer.Store
}

// addTool registers fn under name. Its result is returned as JSON text.
func addTool[In any](s *sdkmcp.Server, name, description string, fn func(context.Context, In) (any, error)) {
	sdkmcp.AddTool(s, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			out, err := fn(ctx, in)
			if err != nil {
				return nil, nil, toolError(err)
			}
			data, err := json.Marshal(out)
			if err != nil {
				return nil, nil, err
			}
			return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}}}, nil, nil
		})
}

func registerTools(s *sdkmcp.Server, t *tools) {
	// Identity and routing
	addTool(s, "resolve_row_key", "Compute the stable key of a spreadsheet row", t.resolveRowKey)
	addTool(s, "route_issue", "Show which teams an issue on a site would be routed to", t.routeIssue)

	// Submission
	addTool(s, "submit_issue", "Report an issue on a row; routes it and creates one action per destination", t.submitIssue)
	addTool(s, "submit_action", "Create a single action for an explicitly chosen destination", t.submitAction)

	// Action lifecycle
	addTool(s, "update_action_status", "Move an action to Completed, In Progress (recheck) or Pending (resubmit)", t.updateActionStatus)
	addTool(s, "request_recheck", "Send an approval back to its executing team", t.requestRecheck)
	addTool(s, "reroute_action", "Reassign an action to another team or vendor", t.rerouteAction)
	addTool(s, "record_observation", "Set the calling role's own marker on a site", t.recordObservation)

	// Views
	addTool(s, "list_my_actions", "List active actions assigned to a role", t.listMyActions)
	addTool(s, "list_routed_actions", "List active actions a role routed to others", t.listRoutedActions)
	addTool(s, "active_queue", "List the active sites a role is party to, with the status it sees", t.activeQueue)
	addTool(s, "display_status", "Compute the status text a role sees for a site", t.displayStatus)
	addTool(s, "list_excluded_sites", "List the row keys and site codes closed for a file", t.listExcludedSites)
	addTool(s, "is_excluded", "Report whether a row or site has been closed by CCR", t.isExcluded)
	addTool(s, "site_activity", "Show the audit trail of a site, newest first", t.siteActivity)

	// Files
	addTool(s, "register_file", "Register an ingested sheet's header order; migrates keys when it changed", t.registerFile)

	if t.drafts != nil {
		addTool(s, "stage_observation", "Stage an observation edit; it is pushed after the debounce window", t.stageObservation)
		addTool(s, "flush_observations", "Push every staged observation now", t.flushObservations)
		addTool(s, "get_observation", "Read an observation, including staged edits not yet pushed", t.getObservation)
	}
}

func parseRow(fileID, key string, headers, values []string) (site.Row, []string, rowkey.RowKey, error) {
	if len(headers) == 0 {
		return nil, nil, rowkey.RowKey{}, fmt.Errorf("%w: headers required", errInvalidArgs)
	}
	k, err := rowkey.Parse(key)
	if err != nil {
		return nil, nil, rowkey.RowKey{}, err
	}
	schema := site.NewSchema(headers)
	return schema.Row(values), schema.Columns, k, nil
}

func parseRole(raw string) (team.Role, error) {
	r, ok := team.Parse(raw)
	if !ok {
		return "", fmt.Errorf("%q: %w", raw, workflow.ErrUnknownRole)
	}
	return r, nil
}

func (t *tools) resolveRowKey(_ context.Context, in RowParams) (any, error) {
	row, headers, _, err := parseRow(in.FileID, in.RowKey, in.Headers, in.Values)
	if err != nil {
		return nil, err
	}
	return map[string]rowkey.RowKey{"row_key": t.wf.ResolveRowKey(in.FileID, row, headers)}, nil
}

func (t *tools) routeIssue(_ context.Context, in RouteIssueParams) (any, error) {
	set := t.wf.Route(in.Issue, in.DeviceType, in.Circle, in.SiteCode)
	return map[string]any{"destinations": set, "label": set.String()}, nil
}

func (t *tools) submitIssue(ctx context.Context, in SubmitIssueParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	row, headers, key, err := parseRow(in.FileID, in.RowKey, in.Headers, in.Values)
	if err != nil {
		return nil, err
	}
	return t.wf.Submit(ctx, workflow.SubmitRequest{
		FileID:  in.FileID,
		RowKey:  key,
		Row:     row,
		Headers: headers,
		Issue:   in.Issue,
		Remarks: in.Remarks,
		Photos:  in.Photos,
		Caller:  caller,
	})
}

func (t *tools) submitAction(ctx context.Context, in SubmitActionParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	to, err := parseRole(in.ToRole)
	if err != nil {
		return nil, err
	}
	row, headers, key, err := parseRow(in.FileID, in.RowKey, in.Headers, in.Values)
	if err != nil {
		return nil, err
	}
	return t.wf.SubmitAction(ctx, workflow.SubmitActionRequest{
		FileID:      in.FileID,
		RowKey:      key,
		Row:         row,
		Headers:     headers,
		Destination: routing.Destination{Role: to, Vendor: in.ToVendor},
		Issue:       in.Issue,
		Remarks:     in.Remarks,
		Photos:      in.Photos,
		Caller:      caller,
	})
}

func (t *tools) updateActionStatus(ctx context.Context, in UpdateActionStatusParams) (any, error) {
	status, ok := action.ParseStatus(in.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", errInvalidArgs, in.Status)
	}
	return t.wf.UpdateActionStatus(ctx, in.ActionID, status, in.Remarks)
}

func (t *tools) requestRecheck(ctx context.Context, in RequestRecheckParams) (any, error) {
	return t.wf.RequestRecheck(ctx, in.ActionID, in.Remarks)
}

func (t *tools) rerouteAction(ctx context.Context, in RerouteActionParams) (any, error) {
	to, err := parseRole(in.ToRole)
	if err != nil {
		return nil, err
	}
	return t.wf.RerouteAction(ctx, in.ActionID, action.RerouteRequest{
		Role:    to,
		UserID:  in.ToUserID,
		Vendor:  in.ToVendor,
		Remarks: in.Remarks,
		Photos:  in.Photos,
	})
}

func (t *tools) recordObservation(ctx context.Context, in ObservationParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	key, err := rowkey.Parse(in.RowKey)
	if err != nil {
		return nil, err
	}
	status, ok := observation.ParseStatus(in.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", errInvalidArgs, in.Status)
	}
	return t.wf.RecordObservation(ctx, observation.RecordRequest{
		RowKey:   key,
		SiteCode: in.SiteCode,
		Role:     caller.Role,
		Status:   status,
		Remarks:  in.Remarks,
	})
}

func (t *tools) listMyActions(ctx context.Context, in RoleParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	return t.wf.ListMyActions(ctx, caller.Role)
}

func (t *tools) listRoutedActions(ctx context.Context, in RoleParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	return t.wf.ListActionsIRouted(ctx, caller.Role)
}

func (t *tools) activeQueue(ctx context.Context, in RoleParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	return t.wf.ActiveQueue(ctx, caller.Role)
}

func (t *tools) displayStatus(ctx context.Context, in DisplayStatusParams) (any, error) {
	caller, err := resolveCaller(ctx, in.Role)
	if err != nil {
		return nil, err
	}
	key, err := rowkey.Parse(in.RowKey)
	if err != nil {
		return nil, err
	}
	text, err := t.wf.DisplayStatus(ctx, key, in.SiteCode, caller.Role)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"site_code": site.NormalizeCode(in.SiteCode),
		"viewer":    caller.Role,
		"status":    text,
		"excluded":  t.wf.IsExcluded(ctx, key, in.SiteCode),
	}, nil
}

func (t *tools) listExcludedSites(ctx context.Context, in FileParams) (any, error) {
	return t.wf.ListExcludedSites(ctx, in.FileID)
}

func (t *tools) isExcluded(ctx context.Context, in IsExcludedParams) (any, error) {
	key, err := rowkey.Parse(in.RowKey)
	if err != nil {
		return nil, err
	}
	if key.IsZero() && in.SiteCode == "" {
		return nil, fmt.Errorf("%w: row_key or site_code required", errInvalidArgs)
	}
	return map[string]bool{"excluded": t.wf.IsExcluded(ctx, key, in.SiteCode)}, nil
}

func (t *tools) siteActivity(ctx context.Context, in SiteActivityParams) (any, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return t.wf.Activity(ctx, site.NormalizeCode(in.SiteCode), limit)
}

func (t *tools) registerFile(ctx context.Context, in RegisterFileParams) (any, error) {
	return t.wf.RegisterFile(ctx, workflow.RegisterFileRequest{
		ID:      in.FileID,
		Name:    in.Name,
		Headers: in.Headers,
		Rows:    in.Rows,
	})
}

func (t *tools) draftKey(ctx context.Context, role, rowKey, siteCode string) (syncer.Key, error) {
	caller, err := resolveCaller(ctx, role)
	if err != nil {
		return syncer.Key{}, err
	}
	key, err := rowkey.Parse(rowKey)
	if err != nil {
		return syncer.Key{}, err
	}
	code := site.NormalizeCode(siteCode)
	if code == "" {
		return syncer.Key{}, fmt.Errorf("%w: site_code required", errInvalidArgs)
	}
	return syncer.Key{RowKey: key, SiteCode: code, Role: caller.Role}, nil
}

func (t *tools) stageObservation(ctx context.Context, in ObservationParams) (any, error) {
	key, err := t.draftKey(ctx, in.Role, in.RowKey, in.SiteCode)
	if err != nil {
		return nil, err
	}
	if _, ok := observation.ParseStatus(in.Status); !ok {
		return nil, fmt.Errorf("%w: unknown status %q", errInvalidArgs, in.Status)
	}
	if err := t.drafts.Set(key, syncer.Draft{Status: in.Status, Remarks: in.Remarks}); err != nil {
		return nil, err
	}
	d, _ := t.drafts.Get(key)
	return draftView(key, d), nil
}

func (t *tools) flushObservations(ctx context.Context, _ FlushParams) (any, error) {
	if err := t.drafts.Flush(ctx); err != nil {
		return nil, err
	}
	return map[string]bool{"flushed": true}, nil
}

func (t *tools) getObservation(ctx context.Context, in ObservationRefParams) (any, error) {
	key, err := t.draftKey(ctx, in.Role, in.RowKey, in.SiteCode)
	if err != nil {
		return nil, err
	}
	if _, ok := t.drafts.Get(key); !ok {
		t.drafts.Track(key)
		if err := t.drafts.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	d, _ := t.drafts.Get(key)
	return draftView(key, d), nil
}

func draftView(key syncer.Key, d syncer.Draft) DraftView {
	return DraftView{
		SiteCode: key.SiteCode,
		RowKey:   key.RowKey.String(),
		Role:     string(key.Role),
		Status:   d.Status,
		Remarks:  d.Remarks,
		Photos:   d.Photos,
		Dirty:    d.Dirty,
	}
}
