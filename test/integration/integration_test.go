package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/testserver"
	"github.com/rpggio/siteflow/internal/transport"
	"github.com/rpggio/siteflow/internal/workflow"
)

var headers = []string{"Site Code", "Device Type", "Circle", "Division"}

type client struct {
	t   *testing.T
	url string
}

func (c client) do(method, path string, role team.Role, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.url+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(transport.HeaderRole, string(role))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, want int) T {
	t.Helper()
	require.Equal(t, want, resp.StatusCode)
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func submission(code, device, circle, issue string) map[string]any {
	return map[string]any{
		"file_id": "f1",
		"headers": headers,
		"values":  []string{code, device, circle, "Division"},
		"issue":   issue,
	}
}

func complete(t *testing.T, c client, id string, role team.Role) approval.Outcome {
	t.Helper()
	return decode[approval.Outcome](t, c.do(http.MethodPatch, "/actions/"+id+"/status", role, map[string]string{"status": "Completed"}), http.StatusOK)
}

func TestIntegration_FanOutAndApproval(t *testing.T) {
	ts := testserver.New(t)
	c := client{t: t, url: ts.Server.URL}

	res := decode[workflow.SubmitResult](t, c.do(http.MethodPost, "/observations/submit", team.RoleEquipment, submission("BLR001", "RMU", "SOUTH", "Faulty")), http.StatusOK)
	require.Len(t, res.Results, 2)
	om, amc := res.Results[0].Action, res.Results[1].Action
	require.Equal(t, team.RoleOM, om.AssignedToRole)
	require.Equal(t, team.RoleAMC, amc.AssignedToRole)
	require.Equal(t, "VendorSouth", amc.AssignedToVendor)

	outcome := complete(t, c, om.ID, team.RoleOM)
	require.Nil(t, outcome.Approval)
	outcome = complete(t, c, amc.ID, team.RoleAMC)
	require.NotNil(t, outcome.Approval)
	require.Equal(t, team.RoleEquipment, outcome.Approval.AssignedToRole)

	outcome = complete(t, c, outcome.Approval.ID, team.RoleEquipment)
	require.Equal(t, team.RoleCCR, outcome.Approval.AssignedToRole)
	outcome = complete(t, c, outcome.Approval.ID, team.RoleCCR)
	require.True(t, outcome.Excluded)

	check := decode[map[string]bool](t, c.do(http.MethodGet, "/exclusions/check?row_key="+url.QueryEscape("f1#BLR001|RMU|SOUTH"), "", nil), http.StatusOK)
	require.True(t, check["excluded"])

	// The exclusion outlives the engine that recorded it.
	excluded, err := ts.Engine.ListExcludedSites(t.Context(), "f1")
	require.NoError(t, err)
	require.Equal(t, []string{"BLR001"}, excluded.SiteCodes)
}

func TestIntegration_RecheckAndResubmit(t *testing.T) {
	ts := testserver.New(t)
	c := client{t: t, url: ts.Server.URL}

	res := decode[workflow.SubmitResult](t, c.do(http.MethodPost, "/observations/submit", team.RoleEquipment, submission("BLR001", "RMU", "SOUTH", "Faulty")), http.StatusOK)
	var last approval.Outcome
	for _, r := range res.Results {
		last = complete(t, c, r.Action.ID, r.Action.AssignedToRole)
	}
	require.NotNil(t, last.Approval)
	approvalID := last.Approval.ID

	recheck := decode[approval.Outcome](t, c.do(http.MethodPost, "/actions/"+approvalID+"/recheck", team.RoleEquipment, map[string]string{"remarks": "photos missing"}), http.StatusOK)
	require.Len(t, recheck.Actions, 1)
	require.Equal(t, action.StatusInProgress, recheck.Actions[0].Status)

	resubmit := decode[approval.Outcome](t, c.do(http.MethodPatch, "/actions/"+approvalID+"/status", team.RoleAMC, map[string]string{"status": "Pending"}), http.StatusOK)
	require.Len(t, resubmit.Actions, 1)
	require.Equal(t, action.StatusPending, resubmit.Actions[0].Status)

	final := complete(t, c, approvalID, team.RoleEquipment)
	require.NotNil(t, final.Approval)
	require.Equal(t, team.RoleCCR, final.Approval.AssignedToRole)
}

func TestIntegration_HeaderReorderMigratesKeys(t *testing.T) {
	ts := testserver.New(t)
	c := client{t: t, url: ts.Server.URL}

	rows := [][]string{{"BLR001", "RMU", "SOUTH", "Bangalore"}}
	first := decode[map[string]any](t, c.do(http.MethodPost, "/files/f1", team.RoleEquipment, map[string]any{
		"name": "Sites", "headers": headers, "rows": rows,
	}), http.StatusCreated)
	require.Equal(t, true, first["created"])

	decode[approval.Outcome](t, c.do(http.MethodPut, "/observations", team.RoleOM, map[string]string{
		"row_key": "f1#BLR001|RMU|SOUTH", "site_code": "BLR001", "status": "Pending", "remarks": "crew dispatched",
	}), http.StatusOK)

	reordered := decode[map[string]any](t, c.do(http.MethodPost, "/files/f1", team.RoleEquipment, map[string]any{
		"name":    "Sites",
		"headers": []string{"Circle", "Site Code", "Device Type", "Division"},
		"rows":    [][]string{{"SOUTH", "BLR001", "RMU", "Bangalore"}},
	}), http.StatusOK)
	require.Equal(t, true, reordered["headers_changed"])
	require.EqualValues(t, 1, reordered["migrated"])

	moved, err := rowkey.Parse("f1#SOUTH|BLR001|RMU")
	require.NoError(t, err)
	obs, err := ts.Engine.Observation(t.Context(), moved, "BLR001", team.RoleOM)
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.Equal(t, "crew dispatched", obs.Remarks)
}
