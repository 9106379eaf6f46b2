// Package transport serves the workflow engine over a chi REST API.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/workflow"
)

// Workflow is the set of operations the API exposes.
type Workflow interface {
	ResolveRowKey(fileID string, row site.Row, headers []string) rowkey.RowKey
	Route(issue, deviceType, circle, siteCode string) routing.DestinationSet
	Submit(ctx context.Context, req workflow.SubmitRequest) (*workflow.SubmitResult, error)
	SubmitAction(ctx context.Context, req workflow.SubmitActionRequest) (*action.Action, error)
	UpdateActionStatus(ctx context.Context, id string, status action.Status, remarks string) (*approval.Outcome, error)
	RequestRecheck(ctx context.Context, id, remarks string) (*approval.Outcome, error)
	RerouteAction(ctx context.Context, id string, req action.RerouteRequest) (*action.Action, error)
	RecordObservation(ctx context.Context, req observation.RecordRequest) (*approval.Outcome, error)
	ListMyActions(ctx context.Context, role team.Role) ([]action.Action, error)
	ListActionsIRouted(ctx context.Context, role team.Role) ([]action.Action, error)
	ActiveQueue(ctx context.Context, role team.Role) ([]workflow.QueueItem, error)
	DisplayStatus(ctx context.Context, key rowkey.RowKey, siteCode string, viewer team.Role) (string, error)
	ListExcludedSites(ctx context.Context, fileID string) (workflow.ExcludedSites, error)
	IsExcluded(ctx context.Context, key rowkey.RowKey, siteCode string) bool
	FilterRows(ctx context.Context, fileID string, rows []site.Row, headers []string) []site.Row
	RegisterFile(ctx context.Context, req workflow.RegisterFileRequest) (*workflow.FileRegistration, error)
	Activity(ctx context.Context, siteCode string, limit int) ([]activity.ActivityEntry, error)
}

// Options configures NewServer.
type Options struct {
	Logger *slog.Logger
	// Middleware wraps every route, outermost first. The metrics middleware
	// goes here.
	Middleware []func(http.Handler) http.Handler
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// Server holds the handlers' dependencies.
type Server struct {
	wf       Workflow
	logger   *slog.Logger
	validate *validator.Validate
}

// NewServer creates an HTTP server router with middleware.
func NewServer(wf Workflow, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{wf: wf, logger: logger, validate: validator.New()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Post("/rowkeys", srv.handleResolveRowKey)
		r.Post("/routes", srv.handleRoute)
		r.Get("/files/{fileId}/exclusions", srv.handleListExcluded)
		r.Get("/exclusions/check", srv.handleCheckExcluded)
		r.Get("/sites/{siteCode}/activity", srv.handleActivity)

		r.Group(func(r chi.Router) {
			r.Use(RequireCaller)

			r.Post("/observations/submit", srv.handleSubmit)
			r.Put("/observations", srv.handleRecordObservation)
			r.Post("/actions", srv.handleSubmitAction)
			r.Get("/actions/mine", srv.handleListMine)
			r.Get("/actions/routed", srv.handleListRouted)
			r.Patch("/actions/{id}/status", srv.handleUpdateStatus)
			r.Post("/actions/{id}/reroute", srv.handleReroute)
			r.Post("/actions/{id}/recheck", srv.handleRecheck)
			r.Get("/queue", srv.handleQueue)
			r.Get("/sites/{siteCode}/status", srv.handleDisplayStatus)
			r.Post("/files/{fileId}", srv.handleRegisterFile)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// fail writes err as a JSON error and logs the ones the client cannot fix.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if classify(err).status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeError(w, r, err)
}
