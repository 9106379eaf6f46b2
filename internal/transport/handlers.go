package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/workflow"
)

const defaultActivityLimit = 50

// RowInput carries one spreadsheet row as raw headers and positional values.
type RowInput struct {
	FileID  string   `json:"file_id"`
	RowKey  string   `json:"row_key,omitempty"`
	Headers []string `json:"headers" validate:"required,min=1"`
	Values  []string `json:"values"`
}

// resolve normalises the headers and returns the canonical row, its
// canonical column order and the explicit key, if any.
func (in RowInput) resolve() (site.Row, []string, rowkey.RowKey, error) {
	schema := site.NewSchema(in.Headers)
	key, err := rowkey.Parse(in.RowKey)
	if err != nil {
		return nil, nil, rowkey.RowKey{}, err
	}
	return schema.Row(in.Values), schema.Columns, key, nil
}

// DestinationInput names one destination by role and optional vendor.
type DestinationInput struct {
	Role   string `json:"role" validate:"required"`
	Vendor string `json:"vendor,omitempty"`
}

func (d DestinationInput) destination() (routing.Destination, error) {
	role, ok := team.Parse(d.Role)
	if !ok {
		return routing.Destination{}, workflow.ErrUnknownRole
	}
	return routing.Destination{Role: role, Vendor: d.Vendor}, nil
}

// RowKeyResponse is the derived key of a row.
type RowKeyResponse struct {
	RowKey rowkey.RowKey `json:"row_key"`
}

// RouteRequest asks which destinations an issue routes to.
type RouteRequest struct {
	Issue      string `json:"issue" validate:"required"`
	DeviceType string `json:"device_type"`
	Circle     string `json:"circle"`
	SiteCode   string `json:"site_code"`
}

// RouteResponse lists the routed destinations and their display label.
type RouteResponse struct {
	Destinations routing.DestinationSet `json:"destinations"`
	Label        string                 `json:"label"`
}

// SubmitRequest fans one row out to its routed destinations, or to Only when set.
type SubmitRequest struct {
	RowInput
	Issue   string             `json:"issue" validate:"required"`
	Remarks string             `json:"remarks"`
	Photos  []string           `json:"photos"`
	Only    []DestinationInput `json:"only,omitempty" validate:"dive"`
}

// SubmitActionRequest creates a single action for one destination.
type SubmitActionRequest struct {
	RowInput
	Destination DestinationInput `json:"destination"`
	Issue       string           `json:"issue" validate:"required"`
	Remarks     string           `json:"remarks"`
	Photos      []string         `json:"photos"`
}

// UpdateStatusRequest moves an action to a new status.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks"`
}

// RerouteRequest reassigns an open action.
type RerouteRequest struct {
	Role    string   `json:"role" validate:"required"`
	UserID  string   `json:"user_id"`
	Vendor  string   `json:"vendor"`
	Remarks string   `json:"remarks"`
	Photos  []string `json:"photos"`
}

// RecheckRequest sends an approval back to the role that submitted it.
type RecheckRequest struct {
	Remarks string `json:"remarks"`
}

// ObservationRequest records the viewer's observation of one site.
type ObservationRequest struct {
	RowKey   string `json:"row_key"`
	SiteCode string `json:"site_code" validate:"required"`
	Status   string `json:"status"`
	Remarks  string `json:"remarks"`
}

// StatusResponse is the display status of a site for the viewer.
type StatusResponse struct {
	SiteCode string        `json:"site_code"`
	RowKey   rowkey.RowKey `json:"row_key"`
	Viewer   team.Role     `json:"viewer"`
	Status   string        `json:"status"`
	Excluded bool          `json:"excluded"`
}

// ExcludedResponse reports whether a site is excluded.
type ExcludedResponse struct {
	Excluded bool `json:"excluded"`
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.check(v)
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.check(v)
}

func (s *Server) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleResolveRowKey(w http.ResponseWriter, r *http.Request) {
	var in RowInput
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	row, headers, _, err := in.resolve()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, RowKeyResponse{RowKey: s.wf.ResolveRowKey(in.FileID, row, headers)})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var in RouteRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	set := s.wf.Route(in.Issue, in.DeviceType, in.Circle, in.SiteCode)
	render.JSON(w, r, RouteResponse{Destinations: set, Label: set.String()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in SubmitRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	row, headers, key, err := in.resolve()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var only routing.DestinationSet
	for _, d := range in.Only {
		dest, err := d.destination()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		only = append(only, dest)
	}

	res, err := s.wf.Submit(r.Context(), workflow.SubmitRequest{
		FileID:  in.FileID,
		RowKey:  key,
		Row:     row,
		Headers: headers,
		Issue:   in.Issue,
		Remarks: in.Remarks,
		Photos:  in.Photos,
		Caller:  callerOf(r),
		Only:    only,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !res.OK() {
		render.Status(r, http.StatusMultiStatus)
	}
	render.JSON(w, r, res)
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var in SubmitActionRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	row, headers, key, err := in.resolve()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dest, err := in.Destination.destination()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.wf.SubmitAction(r.Context(), workflow.SubmitActionRequest{
		FileID:      in.FileID,
		RowKey:      key,
		Row:         row,
		Headers:     headers,
		Destination: dest,
		Issue:       in.Issue,
		Remarks:     in.Remarks,
		Photos:      in.Photos,
		Caller:      callerOf(r),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, a)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in UpdateStatusRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	status, ok := action.ParseStatus(in.Status)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, in.Status))
		return
	}
	out, err := s.wf.UpdateActionStatus(r.Context(), chi.URLParam(r, "id"), status, in.Remarks)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleReroute(w http.ResponseWriter, r *http.Request) {
	var in RerouteRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	role, ok := team.Parse(in.Role)
	if !ok {
		s.fail(w, r, workflow.ErrUnknownRole)
		return
	}
	a, err := s.wf.RerouteAction(r.Context(), chi.URLParam(r, "id"), action.RerouteRequest{
		Role:    role,
		UserID:  in.UserID,
		Vendor:  in.Vendor,
		Remarks: in.Remarks,
		Photos:  in.Photos,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, a)
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	var in RecheckRequest
	if err := s.decodeOptional(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.wf.RequestRecheck(r.Context(), chi.URLParam(r, "id"), in.Remarks)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleRecordObservation(w http.ResponseWriter, r *http.Request) {
	var in ObservationRequest
	if err := s.decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	key, err := rowkey.Parse(in.RowKey)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status, ok := observation.ParseStatus(in.Status)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, in.Status))
		return
	}
	out, err := s.wf.RecordObservation(r.Context(), observation.RecordRequest{
		RowKey:   key,
		SiteCode: in.SiteCode,
		Role:     callerOf(r).Role,
		Status:   status,
		Remarks:  in.Remarks,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	list, err := s.wf.ListMyActions(r.Context(), callerOf(r).Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(list))
}

func (s *Server) handleListRouted(w http.ResponseWriter, r *http.Request) {
	list, err := s.wf.ListActionsIRouted(r.Context(), callerOf(r).Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(list))
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.wf.ActiveQueue(r.Context(), callerOf(r).Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(items))
}

func (s *Server) handleDisplayStatus(w http.ResponseWriter, r *http.Request) {
	key, err := rowkey.Parse(r.URL.Query().Get("row_key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	code := site.NormalizeCode(chi.URLParam(r, "siteCode"))
	viewer := callerOf(r).Role
	text, err := s.wf.DisplayStatus(r.Context(), key, code, viewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, StatusResponse{
		SiteCode: code,
		RowKey:   key,
		Viewer:   viewer,
		Status:   text,
		Excluded: s.wf.IsExcluded(r.Context(), key, code),
	})
}

func (s *Server) handleListExcluded(w http.ResponseWriter, r *http.Request) {
	set, err := s.wf.ListExcludedSites(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, set)
}

func (s *Server) handleCheckExcluded(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := rowkey.Parse(q.Get("row_key"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	code := q.Get("site_code")
	if key.IsZero() && code == "" {
		s.fail(w, r, fmt.Errorf("%w: row_key or site_code required", errBadRequest))
		return
	}
	render.JSON(w, r, ExcludedResponse{Excluded: s.wf.IsExcluded(r.Context(), key, code)})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}
	entries, err := s.wf.Activity(r.Context(), site.NormalizeCode(chi.URLParam(r, "siteCode")), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(entries))
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
