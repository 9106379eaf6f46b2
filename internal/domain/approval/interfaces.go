package approval

import (
	"context"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Actions is the action store the coordinator drives.
type Actions interface {
	Create(ctx context.Context, req action.CreateRequest) (*action.Action, error)
	Get(ctx context.Context, id string) (*action.Action, error)
	List(ctx context.Context, opts action.ListOptions) ([]action.Action, error)
	Complete(ctx context.Context, id, remarks string) (*action.Action, error)
	RequestRecheck(ctx context.Context, id, remarks string) (*action.Action, error)
	Resubmit(ctx context.Context, id, remarks string) (*action.Action, error)
}

// Observations is the per-role observation store.
type Observations interface {
	Record(ctx context.Context, req observation.RecordRequest) (*observation.State, error)
	ForceResolved(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) error
	Clear(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) error
}

// Exclusions receives terminal approvals.
type Exclusions interface {
	Record(ctx context.Context, e exclusion.Entry) error
}

// Auditor records workflow events. It must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry *activity.ActivityEntry, details any)
}
