package approval_test

import (
	"context"
	"testing"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/memory"
	"github.com/stretchr/testify/require"
)

var blrKey = rowkey.RowKey{FileID: "f1", Identity: "BLR001|RMU|SOUTH"}

type harness struct {
	actions      *action.Service
	observations *observation.Service
	exclusions   *exclusion.Service
	activityLog  *memory.ActivityStore
	coord        *approval.Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		actions:      action.NewService(memory.NewActionStore(), nil),
		observations: observation.NewService(memory.NewObservationStore(), nil),
		exclusions:   exclusion.NewService(memory.NewExclusionStore(), nil),
		activityLog:  memory.NewActivityStore(),
	}
	h.coord = approval.NewCoordinator(h.actions, h.observations, h.exclusions, activity.NewService(h.activityLog, nil), nil)
	return h
}

func (h *harness) route(t *testing.T, to team.Role, vendor string) *action.Action {
	t.Helper()
	a, err := h.actions.Create(context.Background(), action.CreateRequest{
		SourceFileID:     "f1",
		RowKey:           blrKey,
		SiteCode:         "BLR001",
		DeviceType:       "RMU",
		TypeOfIssue:      "Faulty",
		AssignedByRole:   team.RoleEquipment,
		AssignedToRole:   to,
		AssignedToVendor: vendor,
	})
	require.NoError(t, err)
	return a
}

func (h *harness) siteActions(t *testing.T) []action.Action {
	t.Helper()
	list, err := h.actions.List(context.Background(), action.ListOptions{SiteCode: "BLR001"})
	require.NoError(t, err)
	return list
}

func TestCoordinator_ExecutorWithApproverRaisesApproval(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	amc := h.route(t, team.RoleAMC, "VendorSouth")

	out, err := h.coord.Complete(ctx, amc.ID, "spare fitted")
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	require.Equal(t, "AMC Resolution Approval", out.Approval.TypeOfIssue)
	require.Equal(t, team.RoleEquipment, out.Approval.AssignedToRole)
	require.Equal(t, team.RoleAMC, out.Approval.SubmittedByRole)
	require.Equal(t, blrKey, out.Approval.OriginRowKey)
	require.Equal(t, amc.ID, out.Approval.OriginActionID)
	require.Equal(t, action.StatusPending, out.Approval.Status)

	status, err := h.observations.Status(ctx, blrKey, "BLR001", team.RoleAMC)
	require.NoError(t, err)
	require.Equal(t, observation.StatusResolved, status)
}

func TestCoordinator_TerminalApprovalWaitsForOpenBranches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")
	amc := h.route(t, team.RoleAMC, "VendorSouth")

	out, err := h.coord.Complete(ctx, amc.ID, "")
	require.NoError(t, err)
	equipmentApproval := out.Approval

	out, err = h.coord.Complete(ctx, equipmentApproval.ID, "")
	require.NoError(t, err)
	require.Nil(t, out.Approval, "O&M branch still open")

	out, err = h.coord.Complete(ctx, om.ID, "")
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	require.Equal(t, team.RoleCCR, out.Approval.AssignedToRole)
	require.Equal(t, "O&M Resolution Approval", out.Approval.TypeOfIssue)
}

func TestCoordinator_NoTerminalApprovalBeforeIntermediateSignoff(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")
	amc := h.route(t, team.RoleAMC, "VendorSouth")

	_, err := h.coord.Complete(ctx, amc.ID, "")
	require.NoError(t, err)
	out, err := h.coord.Complete(ctx, om.ID, "")
	require.NoError(t, err)
	require.Nil(t, out.Approval, "AMC approval still pending with Equipment")
}

func TestCoordinator_CCRCompletionExcludesSite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")

	out, err := h.coord.Complete(ctx, om.ID, "")
	require.NoError(t, err)
	ccr := out.Approval
	require.Equal(t, team.RoleCCR, ccr.AssignedToRole)

	out, err = h.coord.Complete(ctx, ccr.ID, "verified")
	require.NoError(t, err)
	require.True(t, out.Excluded)

	for _, code := range []string{"BLR001", "blr 001"} {
		excluded, err := h.exclusions.IsExcluded(ctx, rowkey.RowKey{}, code)
		require.NoError(t, err)
		require.True(t, excluded)
	}
	set, err := h.exclusions.ForFile(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, []string{blrKey.String()}, set.RowKeys())

	_, err = h.coord.Complete(ctx, ccr.ID, "")
	require.ErrorIs(t, err, action.ErrInvalidTransition)
}

func TestCoordinator_RecheckAndResubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	amc := h.route(t, team.RoleAMC, "VendorSouth")

	out, err := h.coord.Complete(ctx, amc.ID, "")
	require.NoError(t, err)
	ap := out.Approval

	out, err = h.coord.RequestRecheck(ctx, ap.ID, "photo unclear")
	require.NoError(t, err)
	require.Equal(t, action.StatusInProgress, out.Actions[0].Status)

	status, err := h.observations.Status(ctx, blrKey, "BLR001", team.RoleAMC)
	require.NoError(t, err)
	require.Equal(t, observation.StatusNone, status)

	out, err = h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleAMC, Status: observation.StatusResolved, Remarks: "new photo"})
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	require.Equal(t, ap.ID, out.Approval.ID)
	require.Equal(t, action.StatusPending, out.Approval.Status)

	approvals := 0
	for _, a := range h.siteActions(t) {
		if a.IsApproval() {
			approvals++
		}
	}
	require.Equal(t, 1, approvals)
}

func TestCoordinator_RecheckRejectsExecution(t *testing.T) {
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")
	_, err := h.coord.RequestRecheck(context.Background(), om.ID, "")
	require.ErrorIs(t, err, action.ErrNotApproval)
}

func TestCoordinator_ResolvedObservationCompletesOwnAction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")
	h.route(t, team.RoleAMC, "VendorSouth")

	out, err := h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleOM, Status: observation.StatusResolved})
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	require.Equal(t, om.ID, out.Actions[0].ID)
	require.Equal(t, action.StatusCompleted, out.Actions[0].Status)
	require.Nil(t, out.Approval)
}

func TestCoordinator_DirectResolutionGoesToCCR(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	out, err := h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleEquipment, Status: observation.StatusResolved})
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	require.Equal(t, team.RoleCCR, out.Approval.AssignedToRole)
	require.Equal(t, "Equipment Resolution Approval", out.Approval.TypeOfIssue)

	// Resolving again does not raise a second terminal approval.
	out, err = h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleEquipment, Status: observation.StatusResolved})
	require.NoError(t, err)
	require.Nil(t, out.Approval)
}

func TestCoordinator_PendingObservationChangesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.route(t, team.RoleOM, "")

	out, err := h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleOM, Status: observation.StatusPending})
	require.NoError(t, err)
	require.Empty(t, out.Actions)
	require.Nil(t, out.Approval)

	entries, err := h.activityLog.List(ctx, activity.ListActivityOptions{SiteCode: "BLR001"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, activity.TypeObservationRecorded, entries[0].ActivityType)
}

func TestCoordinator_DuplicateSubmissionDoesNotStallChain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	om := h.route(t, team.RoleOM, "")
	amc := h.route(t, team.RoleAMC, "VendorSouth")
	omDup := h.route(t, team.RoleOM, "")
	amcDup := h.route(t, team.RoleAMC, "VendorSouth")

	out, err := h.coord.Complete(ctx, om.ID, "")
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)
	require.Equal(t, omDup.ID, out.Actions[1].ID)

	out, err = h.coord.Complete(ctx, amc.ID, "")
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	equipmentApproval := out.Approval

	out, err = h.coord.Complete(ctx, equipmentApproval.ID, "")
	require.NoError(t, err)
	require.NotNil(t, out.Approval)
	require.Equal(t, team.RoleCCR, out.Approval.AssignedToRole)

	out, err = h.coord.Complete(ctx, out.Approval.ID, "")
	require.NoError(t, err)
	require.True(t, out.Excluded)

	for _, a := range h.siteActions(t) {
		require.Equal(t, action.StatusCompleted, a.Status, a.ID)
	}
	_, err = h.coord.Complete(ctx, amcDup.ID, "")
	require.ErrorIs(t, err, action.ErrInvalidTransition)
}

func TestCoordinator_ResolvedObservationClosesDuplicates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.route(t, team.RoleOM, "")
	h.route(t, team.RoleOM, "")

	out, err := h.coord.RecordObservation(ctx, observation.RecordRequest{RowKey: blrKey, SiteCode: "BLR001", Role: team.RoleOM, Status: observation.StatusResolved})
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)
	require.NotNil(t, out.Approval)
	require.Equal(t, team.RoleCCR, out.Approval.AssignedToRole)
}
