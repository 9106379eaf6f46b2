// Package approval chains an executing role's resolution into oversight
// approvals that end at the terminal authority.
//
// Tier 1 is routed execution work. When an executor resolves, its approver
// (the role above it) receives a "<Role> Resolution Approval". Each completed
// approval escalates one step further until CCR signs off, at which point the
// site is excluded from every active view.
package approval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Coordinator owns every status change that can advance an approval chain.
// Steps are serialised so gating checks see a consistent action set.
type Coordinator struct {
	actions      Actions
	observations Observations
	exclusions   Exclusions
	audit        Auditor
	logger       *slog.Logger

	mu sync.Mutex
}

// NewCoordinator creates a coordinator. audit may be nil.
func NewCoordinator(actions Actions, observations Observations, exclusions Exclusions, audit Auditor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		actions:      actions,
		observations: observations,
		exclusions:   exclusions,
		audit:        audit,
		logger:       logger,
	}
}

// Complete finishes an action and advances its chain.
func (c *Coordinator) Complete(ctx context.Context, actionID, remarks string) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete(ctx, actionID, remarks)
}

// RequestRecheck returns an approval to its submitter and clears the
// submitter's observation so it can resolve again.
func (c *Coordinator) RequestRecheck(ctx context.Context, approvalID, remarks string) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ap, err := c.actions.RequestRecheck(ctx, approvalID, remarks)
	if err != nil {
		return nil, err
	}
	subj := subjectOf(ap)
	if err := c.observations.Clear(ctx, subj.RowKey, subj.SiteCode, ap.SubmittedByRole); err != nil {
		return nil, fmt.Errorf("clearing submitter observation: %w", err)
	}
	c.record(ctx, ap, activity.TypeRecheckRequested, fmt.Sprintf("%s requested recheck from %s", ap.AssignedToRole, ap.SubmittedByRole))
	return &Outcome{Actions: []*action.Action{ap}}, nil
}

// Resubmit returns a rechecked approval to its approver.
func (c *Coordinator) Resubmit(ctx context.Context, approvalID, remarks string) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ap, err := c.resubmit(ctx, approvalID, remarks)
	if err != nil {
		return nil, err
	}
	return &Outcome{Actions: []*action.Action{ap}}, nil
}

// RecordObservation stores a role's marker. A Resolved marker is treated as
// the role claiming its work is done: a rechecked approval is resubmitted,
// otherwise the role's open actions on the site are completed, otherwise an
// approval is raised directly.
func (c *Coordinator) RecordObservation(ctx context.Context, req observation.RecordRequest) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.observations.Record(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Observation: st}
	c.logActivity(ctx, &activity.ActivityEntry{
		SiteCode:     st.SiteCode,
		FileID:       st.RowKey.FileID,
		Role:         string(st.Role),
		ActivityType: activity.TypeObservationRecorded,
		Summary:      fmt.Sprintf("%s marked %q", st.Role, st.Status),
	})
	if st.Status != observation.StatusResolved || st.Role == team.RoleCCR {
		return out, nil
	}

	actions, err := c.siteActions(ctx, st.SiteCode)
	if err != nil {
		return nil, err
	}

	for i := range actions {
		a := &actions[i]
		if a.IsApproval() && a.SubmittedByRole == st.Role && a.Status == action.StatusInProgress {
			ap, err := c.resubmit(ctx, a.ID, req.Remarks)
			if err != nil {
				return nil, err
			}
			out.Approval = ap
			return out, nil
		}
	}

	finished := make(map[string]bool)
	for i := range actions {
		a := &actions[i]
		if a.AssignedToRole != st.Role || !a.Open() || finished[a.ID] {
			continue
		}
		step, err := c.complete(ctx, a.ID, req.Remarks)
		if err != nil {
			return nil, err
		}
		for _, done := range step.Actions {
			finished[done.ID] = true
		}
		out.Actions = append(out.Actions, step.Actions...)
		if step.Approval != nil {
			out.Approval = step.Approval
		}
		out.Excluded = out.Excluded || step.Excluded
	}
	if len(out.Actions) > 0 {
		return out, nil
	}

	subj := subject{RowKey: st.RowKey, SiteCode: st.SiteCode, SourceFileID: st.RowKey.FileID}
	if first := primaryAction(actions); first != nil {
		subj.SourceFileID = first.SourceFileID
		subj.DeviceType = first.DeviceType
		if subj.RowKey.IsZero() {
			subj.RowKey = first.RowKey
		}
	}
	if team.HasIntermediateApprover(st.Role) {
		out.Approval, err = c.ensureApproval(ctx, subj, st.Role, actions)
	} else {
		out.Approval, err = c.escalateTerminal(ctx, subj, st.Role, actions)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Coordinator) complete(ctx context.Context, actionID, remarks string) (*Outcome, error) {
	a, err := c.actions.Complete(ctx, actionID, remarks)
	if err != nil {
		return nil, err
	}
	c.record(ctx, a, activity.TypeActionCompleted, fmt.Sprintf("%s completed %s", a.AssignedToRole, a.TypeOfIssue))

	subj := subjectOf(a)
	if err := c.observations.ForceResolved(ctx, subj.RowKey, subj.SiteCode, a.AssignedToRole); err != nil {
		return nil, fmt.Errorf("resolving %s observation: %w", a.AssignedToRole, err)
	}

	actions, err := c.siteActions(ctx, a.SiteCode)
	if err != nil {
		return nil, err
	}
	closed, err := c.closeDuplicates(ctx, a, actions, remarks)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Actions: append([]*action.Action{a}, closed...)}
	if a.IsApproval() && a.AssignedToRole == team.RoleCCR {
		if err := c.exclude(ctx, a, subj); err != nil {
			return nil, err
		}
		out.Excluded = true
		return out, nil
	}

	submitter := a.AssignedToRole
	if !a.IsApproval() && team.HasIntermediateApprover(submitter) {
		out.Approval, err = c.ensureApproval(ctx, subj, submitter, actions)
	} else {
		out.Approval, err = c.escalateTerminal(ctx, subj, submitter, actions)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// closeDuplicates completes the open actions sharing done's natural key and
// updates actions in place, so a repeated submission cannot hold the chain
// open once its original is finished.
func (c *Coordinator) closeDuplicates(ctx context.Context, done *action.Action, actions []action.Action, remarks string) ([]*action.Action, error) {
	key := done.NaturalKey()
	var closed []*action.Action
	for i := range actions {
		a := &actions[i]
		if a.ID == done.ID {
			*a = *done
			continue
		}
		if !a.Open() || a.NaturalKey() != key {
			continue
		}
		dup, err := c.actions.Complete(ctx, a.ID, remarks)
		if err != nil {
			return nil, fmt.Errorf("closing duplicate %s: %w", a.ID, err)
		}
		c.record(ctx, dup, activity.TypeActionCompleted, fmt.Sprintf("%s duplicate closed with %s", dup.AssignedToRole, done.ID))
		*a = *dup
		closed = append(closed, dup)
	}
	return closed, nil
}

func (c *Coordinator) resubmit(ctx context.Context, approvalID, remarks string) (*action.Action, error) {
	ap, err := c.actions.Resubmit(ctx, approvalID, remarks)
	if err != nil {
		return nil, err
	}
	subj := subjectOf(ap)
	if err := c.observations.ForceResolved(ctx, subj.RowKey, subj.SiteCode, ap.SubmittedByRole); err != nil {
		return nil, fmt.Errorf("resolving submitter observation: %w", err)
	}
	c.record(ctx, ap, activity.TypeApprovalResubmitted, fmt.Sprintf("%s resubmitted to %s", ap.SubmittedByRole, ap.AssignedToRole))
	return ap, nil
}

// ensureApproval raises the submitter's approval to its approver unless one
// already exists. A rechecked approval is resubmitted instead of duplicated.
func (c *Coordinator) ensureApproval(ctx context.Context, subj subject, submitter team.Role, actions []action.Action) (*action.Action, error) {
	approver, ok := team.ApproverOf(submitter)
	if !ok {
		return nil, nil
	}
	for i := range actions {
		a := &actions[i]
		if !a.IsApproval() || a.SubmittedByRole != submitter || a.AssignedToRole != approver {
			continue
		}
		if a.Status == action.StatusInProgress {
			return c.resubmit(ctx, a.ID, "")
		}
		c.logger.Debug("approval already raised", "approval_id", a.ID, "status", a.Status)
		return a, nil
	}
	return c.raise(ctx, subj, submitter, approver)
}

// escalateTerminal raises the CCR approval for a site once nothing else on
// the site is open. The exclusion it leads to must not hide a branch that is
// still being worked.
func (c *Coordinator) escalateTerminal(ctx context.Context, subj subject, submitter team.Role, actions []action.Action) (*action.Action, error) {
	approved := make(map[team.Role]bool)
	for i := range actions {
		a := &actions[i]
		if a.IsApproval() && a.AssignedToRole != team.RoleCCR && !a.Open() {
			approved[a.SubmittedByRole] = true
		}
	}
	for i := range actions {
		a := &actions[i]
		switch {
		case a.IsApproval() && a.AssignedToRole == team.RoleCCR:
			c.logger.Debug("terminal approval already raised", "approval_id", a.ID, "site_code", a.SiteCode)
			return nil, nil
		case a.Open():
			return nil, nil
		case !a.IsApproval() && team.HasIntermediateApprover(a.AssignedToRole) && !approved[a.AssignedToRole]:
			return nil, nil
		}
	}
	return c.raise(ctx, subj, submitter, team.RoleCCR)
}

func (c *Coordinator) raise(ctx context.Context, subj subject, submitter, approver team.Role) (*action.Action, error) {
	ap, err := c.actions.Create(ctx, action.CreateRequest{
		SourceFileID:    subj.SourceFileID,
		RowKey:          subj.RowKey,
		SiteCode:        subj.SiteCode,
		DeviceType:      subj.DeviceType,
		TypeOfIssue:     action.ApprovalType(submitter),
		Kind:            action.KindApproval,
		AssignedByRole:  submitter,
		AssignedToRole:  approver,
		OriginRowKey:    subj.RowKey,
		OriginActionID:  subj.ActionID,
		SubmittedByRole: submitter,
	})
	if err != nil {
		return nil, fmt.Errorf("raising %s approval: %w", approver, err)
	}
	c.record(ctx, ap, activity.TypeActionCreated, fmt.Sprintf("%s sent to %s", ap.TypeOfIssue, approver))
	c.logger.Info("approval raised", "approval_id", ap.ID, "site_code", ap.SiteCode, "submitter", submitter, "approver", approver)
	return ap, nil
}

func (c *Coordinator) exclude(ctx context.Context, ap *action.Action, subj subject) error {
	err := c.exclusions.Record(ctx, exclusion.Entry{
		FileID:     subj.SourceFileID,
		RowKey:     subj.RowKey,
		SiteCode:   subj.SiteCode,
		ApprovalID: ap.ID,
	})
	if err != nil {
		return fmt.Errorf("excluding site: %w", err)
	}
	c.record(ctx, ap, activity.TypeSiteExcluded, "CCR approved, site closed")
	return nil
}

func (c *Coordinator) siteActions(ctx context.Context, siteCode string) ([]action.Action, error) {
	actions, err := c.actions.List(ctx, action.ListOptions{SiteCode: site.NormalizeCode(siteCode)})
	if err != nil {
		return nil, fmt.Errorf("listing site actions: %w", err)
	}
	return actions, nil
}

func (c *Coordinator) record(ctx context.Context, a *action.Action, typ activity.ActivityType, summary string) {
	id := a.ID
	c.logActivity(ctx, &activity.ActivityEntry{
		SiteCode:     a.SiteCode,
		FileID:       a.SourceFileID,
		ActionID:     &id,
		Role:         string(a.AssignedToRole),
		ActivityType: typ,
		Summary:      summary,
	})
}

func (c *Coordinator) logActivity(ctx context.Context, entry *activity.ActivityEntry) {
	if c.audit != nil {
		c.audit.Record(ctx, entry, nil)
	}
}

func primaryAction(actions []action.Action) *action.Action {
	for i := range actions {
		if !actions[i].IsApproval() {
			return &actions[i]
		}
	}
	if len(actions) > 0 {
		return &actions[0]
	}
	return nil
}
