package transport_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpggio/siteflow/internal/app"
	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/metrics"
	"github.com/rpggio/siteflow/internal/transport"
	"github.com/rpggio/siteflow/internal/workflow"
)

var rawHeaders = []string{"Site Code", "Device Type", "Circle", "Division"}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)
	e := app.NewEngine(app.MemoryStores(), app.Options{Rules: routing.DefaultRules(), Metrics: collectors})
	return transport.NewServer(e, transport.Options{
		Middleware: []func(http.Handler) http.Handler{metrics.NewMiddleware(reg).Handler},
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func do(t *testing.T, h http.Handler, method, path string, role team.Role, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(transport.HeaderRole, string(role))
		req.Header.Set(transport.HeaderUserID, "user-"+string(role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func blrSubmission() map[string]any {
	return map[string]any{
		"file_id": "f1",
		"headers": rawHeaders,
		"values":  []string{"BLR001", "RMU", "SOUTH", "Bangalore"},
		"issue":   "Faulty",
		"remarks": "breaker tripped",
	}
}

func complete(t *testing.T, h http.Handler, id string, role team.Role) approval.Outcome {
	t.Helper()
	rec := do(t, h, http.MethodPatch, "/actions/"+id+"/status", role, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[approval.Outcome](t, rec)
}

func TestHTTP_Health(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHTTP_ResolveAndRoute(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/rowkeys", "", map[string]any{
		"file_id": "f1",
		"headers": rawHeaders,
		"values":  []string{"BLR001", "RMU", "SOUTH", "Bangalore"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"row_key":"f1#BLR001|RMU|SOUTH"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/routes", "", map[string]string{
		"issue": "Faulty", "device_type": "RMU", "circle": "SOUTH", "site_code": "BLR001",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	route := decode[transport.RouteResponse](t, rec)
	require.Equal(t, "O&M Team, Vendor (VendorSouth)", route.Label)
	require.Len(t, route.Destinations, 2)
}

func TestHTTP_ApprovalChainExcludesSite(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/observations/submit", team.RoleEquipment, blrSubmission())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[workflow.SubmitResult](t, rec)
	require.Len(t, res.Results, 2)
	om, amc := res.Results[0].Action, res.Results[1].Action
	require.Equal(t, "user-Equipment", om.AssignedByUserID)

	rec = do(t, h, http.MethodGet, "/queue", team.RoleOM, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[[]workflow.QueueItem](t, rec)
	require.Len(t, queue, 1)
	require.Equal(t, "Pending at O&M Team", queue[0].Status)

	complete(t, h, om.ID, team.RoleOM)
	eqApproval := complete(t, h, amc.ID, team.RoleAMC).Approval
	require.NotNil(t, eqApproval)
	require.Equal(t, team.RoleEquipment, eqApproval.AssignedToRole)

	ccrApproval := complete(t, h, eqApproval.ID, team.RoleEquipment).Approval
	require.NotNil(t, ccrApproval)
	require.Equal(t, team.RoleCCR, ccrApproval.AssignedToRole)

	final := complete(t, h, ccrApproval.ID, team.RoleCCR)
	require.True(t, final.Excluded)

	rec = do(t, h, http.MethodGet, "/exclusions/check?site_code=blr001", "", nil)
	require.JSONEq(t, `{"excluded":true}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/files/f1/exclusions", "", nil)
	excluded := decode[workflow.ExcludedSites](t, rec)
	require.Equal(t, []string{"f1#BLR001|RMU|SOUTH"}, excluded.RowKeys)
	require.Equal(t, []string{"BLR001"}, excluded.SiteCodes)

	rec = do(t, h, http.MethodGet, "/sites/BLR001/status?row_key="+url.QueryEscape("f1#BLR001|RMU|SOUTH"), team.RoleEquipment, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[transport.StatusResponse](t, rec)
	require.Equal(t, "Resolved", status.Status)
	require.True(t, status.Excluded)

	rec = do(t, h, http.MethodGet, "/queue", team.RoleOM, nil)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/sites/BLR001/activity?limit=100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decode[[]map[string]any](t, rec))
}

func TestHTTP_RerouteAndLists(t *testing.T) {
	h := newServer(t)
	res := decode[workflow.SubmitResult](t, do(t, h, http.MethodPost, "/observations/submit", team.RoleEquipment, blrSubmission()))
	om := res.Results[0].Action

	rec := do(t, h, http.MethodPost, "/actions/"+om.ID+"/reroute", team.RoleOM, map[string]string{"role": "RTU", "remarks": "comms fault"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rerouted := decode[action.Action](t, rec)
	require.Equal(t, team.RoleRTU, rerouted.AssignedToRole)

	mine := decode[[]action.Action](t, do(t, h, http.MethodGet, "/actions/mine", team.RoleRTU, nil))
	require.Len(t, mine, 1)

	routed := decode[[]action.Action](t, do(t, h, http.MethodGet, "/actions/routed", team.RoleEquipment, nil))
	require.Len(t, routed, 2)

	rec = do(t, h, http.MethodPost, "/actions", team.RoleEquipment, map[string]any{
		"file_id":     "f1",
		"headers":     rawHeaders,
		"values":      []string{"MYS002", "FPI", "SOUTH", "Mysore"},
		"destination": map[string]string{"role": "O&M"},
		"issue":       "Line Idle",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "MYS002", decode[action.Action](t, rec).SiteCode)
}

func TestHTTP_RecordObservation(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPut, "/observations", team.RoleOM, map[string]string{
		"row_key": "f1#GUL003|RMU|NORTH", "site_code": "GUL003", "status": "Resolved", "remarks": "fixed on site",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[approval.Outcome](t, rec)
	require.NotNil(t, out.Approval)
	require.Equal(t, team.RoleCCR, out.Approval.AssignedToRole)

	rec = do(t, h, http.MethodPut, "/observations", team.RoleOM, map[string]string{"site_code": "GUL003", "status": "Escalated"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Errors(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   team.Role
		body   any
		status int
		code   string
	}{
		{"missing role", http.MethodPost, "/observations/submit", "", blrSubmission(), http.StatusUnauthorized, "MISSING_ROLE"},
		{"unknown role", http.MethodGet, "/queue", "Finance", nil, http.StatusBadRequest, "UNKNOWN_ROLE"},
		{"missing issue", http.MethodPost, "/observations/submit", team.RoleEquipment, map[string]any{"headers": rawHeaders}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown action", http.MethodPatch, "/actions/nope/status", team.RoleOM, map[string]string{"status": "Completed"}, http.StatusNotFound, "ACTION_NOT_FOUND"},
		{"unknown status", http.MethodPatch, "/actions/nope/status", team.RoleOM, map[string]string{"status": "Reopened"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed row key", http.MethodGet, "/exclusions/check?row_key=nofile", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"no subject", http.MethodGet, "/exclusions/check", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad limit", http.MethodGet, "/sites/BLR001/activity?limit=-1", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.role, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, tc.code, decode[transport.ErrorResponse](t, rec).Code)
		})
	}
}

func TestHTTP_CompletedIsTerminal(t *testing.T) {
	h := newServer(t)
	res := decode[workflow.SubmitResult](t, do(t, h, http.MethodPost, "/observations/submit", team.RoleEquipment, blrSubmission()))
	om := res.Results[0].Action

	complete(t, h, om.ID, team.RoleOM)
	rec := do(t, h, http.MethodPatch, "/actions/"+om.ID+"/status", team.RoleOM, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "INVALID_TRANSITION", decode[transport.ErrorResponse](t, rec).Code)
}

func TestHTTP_RegisterFile(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/files/f1", team.RoleEquipment, map[string]any{
		"name":    "offline.xlsx",
		"headers": rawHeaders,
		"rows":    [][]string{{"BLR001", "RMU", "SOUTH", "Bangalore"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[map[string]any](t, rec)
	require.Equal(t, true, reg["created"])
	require.EqualValues(t, 1, reg["active_rows"])

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, v := range []string{"Circle", "Site Code", "Device Type", "Division"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	for i, v := range []string{"SOUTH", "BLR001", "RMU", "Bangalore"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/files/f1?name=offline.xlsx", buf)
	req.Header.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	req.Header.Set(transport.HeaderRole, "Equipment")
	upload := httptest.NewRecorder()
	h.ServeHTTP(upload, req)
	require.Equal(t, http.StatusOK, upload.Code, upload.Body.String())
	reg = decode[map[string]any](t, upload)
	require.Equal(t, true, reg["headers_changed"])
	require.EqualValues(t, 1, reg["rows"])
}

func TestHTTP_Metrics(t *testing.T) {
	h := newServer(t)
	do(t, h, http.MethodPost, "/observations/submit", team.RoleEquipment, blrSubmission())

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `siteflow_routed_destinations_total{role="AMC"} 1`)
	require.Contains(t, rec.Body.String(), `path="/observations/submit"`)
}
