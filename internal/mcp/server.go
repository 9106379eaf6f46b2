// Package mcp exposes the workflow engine as MCP tools.
package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/syncer"
	"github.com/rpggio/siteflow/internal/workflow"
)

// Workflow defines the workflow operations needed by MCP.
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
	RegisterFile(ctx context.Context, req workflow.RegisterFileRequest) (*workflow.FileRegistration, error)
	Activity(ctx context.Context, siteCode string, limit int) ([]activity.ActivityEntry, error)
}

// Config contains server configuration.
type Config struct {
	Workflow Workflow
	// Drafts stages observation edits; the stage/flush tools are omitted
	// when nil.
	Drafts *syncer.Store
	// DefaultRole applies to sessions that identify no role.
	DefaultRole team.Role
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "siteflow",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(identityMiddleware(cfg.DefaultRole))
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{wf: cfg.Workflow, drafts: cfg.Drafts})

	return server
}
