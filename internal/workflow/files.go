package workflow

import (
	"context"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
)

// RegisterFileRequest registers an ingested sheet. Headers and Rows are raw
// cell values in sheet order.
type RegisterFileRequest struct {
	ID      string
	Name    string
	Headers []string
	Rows    [][]string
}

// FileRegistration reports a registration and any key migration it caused.
type FileRegistration struct {
	*sourcefile.Registration
	Migrated  int      `json:"migrated"`
	Unmatched []string `json:"unmatched,omitempty"`
}

// RegisterFile records a file's header order. When the order changed since
// the last upload, observation state is moved onto the keys the rows resolve
// to now; state that matches no row is left unreachable.
func (e *Engine) RegisterFile(ctx context.Context, req RegisterFileRequest) (*FileRegistration, error) {
	reg, err := e.files.Register(ctx, sourcefile.RegisterRequest{ID: req.ID, Name: req.Name, Headers: req.Headers})
	if err != nil {
		return nil, err
	}
	out := &FileRegistration{Registration: reg}
	e.record(ctx, &activity.ActivityEntry{
		FileID:       reg.File.ID,
		ActivityType: activity.TypeFileRegistered,
		Summary:      fmt.Sprintf("registered %s (tick %d)", reg.File.Name, reg.File.Tick),
	}, map[string]any{"headers": reg.File.Headers, "headers_changed": reg.HeadersChanged})

	if !reg.HeadersChanged {
		return out, nil
	}

	schema := site.Schema{Columns: reg.File.Headers}
	rows := make([]site.Row, len(req.Rows))
	for i, values := range req.Rows {
		rows[i] = schema.Row(values)
	}
	known, err := e.observations.KnownKeys(ctx, reg.File.ID)
	if err != nil {
		return nil, err
	}
	m := rowkey.Migrate(reg.File.ID, rows, reg.PreviousHeaders, reg.File.Headers, known)
	moved, err := e.observations.Migrate(ctx, m)
	if err != nil {
		return nil, err
	}
	out.Migrated = moved
	for _, k := range m.Unmatched {
		out.Unmatched = append(out.Unmatched, k.String())
	}
	e.logger.Info("row keys migrated", "file_id", reg.File.ID, "moved", moved, "unmatched", len(m.Unmatched))
	return out, nil
}
