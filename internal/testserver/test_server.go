// Package testserver runs the full HTTP surface over an in-memory SQLite
// database for end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/siteflow/internal/app"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/mcp"
	"github.com/rpggio/siteflow/internal/sqlite"
	"github.com/rpggio/siteflow/internal/syncer"
	"github.com/rpggio/siteflow/internal/transport"
	"github.com/rpggio/siteflow/internal/workflow"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Engine *workflow.Engine
}

// New starts a server whose REST API is mounted at / and MCP endpoint at /mcp.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	engine := app.NewEngine(app.SQLiteStores(db), app.Options{Rules: routing.DefaultRules()})
	drafts := syncer.NewStore(syncer.NewObservationGateway(engine), 10*time.Millisecond, nil)
	mcpServer := mcp.NewServer(mcp.Config{Workflow: engine, Drafts: drafts})

	mux := http.NewServeMux()
	mux.Handle("/mcp", sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	))
	mux.Handle("/", transport.NewServer(engine, transport.Options{}))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		_ = drafts.Close(context.Background())
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Engine: engine}
}

// Connect opens an MCP session that identifies itself as role on every request.
func (ts *TestServer) Connect(t *testing.T, role team.Role) *sdkmcp.ClientSession {
	t.Helper()

	httpClient := &http.Client{Transport: roleHeader{role: role, next: http.DefaultTransport}}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: httpClient,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type roleHeader struct {
	role team.Role
	next http.RoundTripper
}

func (h roleHeader) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if h.role != "" {
		r.Header.Set(transport.HeaderRole, string(h.role))
		r.Header.Set(transport.HeaderUserID, "user-"+string(h.role))
	}
	return h.next.RoundTrip(r)
}
