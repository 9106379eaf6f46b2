package workflow

import (
	"context"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/status"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// ExcludedSites lists what the terminal authority closed for one file.
type ExcludedSites struct {
	RowKeys   []string `json:"row_keys"`
	SiteCodes []string `json:"site_codes"`
	// Stale is set when the set could not be refreshed.
	Stale bool `json:"stale,omitempty"`
}

// QueueItem is one active site in a role's queue.
type QueueItem struct {
	SiteCode   string          `json:"site_code"`
	FileID     string          `json:"file_id,omitempty"`
	RowKey     rowkey.RowKey   `json:"row_key"`
	DeviceType string          `json:"device_type,omitempty"`
	Status     string          `json:"status"`
	Open       int             `json:"open"`
	Actions    []action.Action `json:"actions"`
}

// DisplayStatus computes the status text viewer sees for a site.
func (e *Engine) DisplayStatus(ctx context.Context, key rowkey.RowKey, siteCode string, viewer team.Role) (string, error) {
	if !viewer.Valid() {
		return "", ErrUnknownRole
	}
	code := site.NormalizeCode(siteCode)
	if code == "" {
		return "", fmt.Errorf("site code is required: %w", ErrInvalidInput)
	}
	actions, err := e.actions.List(ctx, action.ListOptions{SiteCode: code})
	if err != nil {
		return "", err
	}
	return e.compute(ctx, key, code, viewer, actions)
}

func (e *Engine) compute(ctx context.Context, key rowkey.RowKey, siteCode string, viewer team.Role, actions []action.Action) (string, error) {
	st, err := e.observations.Lookup(ctx, key, siteCode, viewer)
	if err != nil {
		return "", err
	}
	var obs observation.Status
	if st != nil {
		obs = st.Status
	}
	return status.Compute(status.Input{Viewer: viewer, Actions: actions, Observation: obs}), nil
}

// Observation returns the role's stored marker for a row, falling back to
// the site. A nil state means the role has observed nothing.
func (e *Engine) Observation(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) (*observation.State, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	return e.observations.Lookup(ctx, key, siteCode, role)
}

// IsExcluded reports whether a row or site has been closed by the terminal
// authority. A failed lookup with no known set reports false.
func (e *Engine) IsExcluded(ctx context.Context, key rowkey.RowKey, siteCode string) bool {
	return e.excludedSet(ctx).Contains(key, siteCode)
}

// ListExcludedSites returns the exclusion set of a file. A failed refresh
// serves the last known set.
func (e *Engine) ListExcludedSites(ctx context.Context, fileID string) (ExcludedSites, error) {
	set, err := e.exclusions.ForFile(ctx, fileID)
	if err != nil {
		e.logger.Warn("exclusion set unavailable", "file_id", fileID, "error", err)
		return ExcludedSites{RowKeys: []string{}, SiteCodes: []string{}, Stale: true}, nil
	}
	return ExcludedSites{RowKeys: set.RowKeys(), SiteCodes: set.SiteCodes(), Stale: set.Stale}, nil
}

// RefreshExclusions reloads the exclusion set so a later failed fetch has a
// recent snapshot to fall back on.
func (e *Engine) RefreshExclusions(ctx context.Context) error {
	_, err := e.exclusions.All(ctx)
	return err
}

// FilterRows drops rows the terminal authority has closed. siteCode matching
// applies across files.
func (e *Engine) FilterRows(ctx context.Context, fileID string, rows []site.Row, headers []string) []site.Row {
	set := e.excludedSet(ctx)
	return exclusion.Filter(set, rows, func(r site.Row) (rowkey.RowKey, string) {
		return rowkey.Resolve(fileID, r, headers), r.Get(site.ColumnSiteCode)
	})
}

// ActiveQueue returns the sites role is a party to that are still active,
// each with the status role sees.
func (e *Engine) ActiveQueue(ctx context.Context, role team.Role) ([]QueueItem, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	list, err := e.actions.List(ctx, action.ListOptions{Party: role})
	if err != nil {
		return nil, err
	}
	list = exclusion.Filter(e.excludedSet(ctx), list, actionKey)

	index := make(map[string]int)
	var items []QueueItem
	for _, a := range list {
		i, ok := index[a.SiteCode]
		if !ok {
			key, _ := actionKey(a)
			i = len(items)
			index[a.SiteCode] = i
			items = append(items, QueueItem{
				SiteCode:   a.SiteCode,
				FileID:     a.SourceFileID,
				RowKey:     key,
				DeviceType: a.DeviceType,
			})
		}
		items[i].Actions = append(items[i].Actions, a)
		if a.Open() {
			items[i].Open++
		}
	}

	for i := range items {
		text, err := e.compute(ctx, items[i].RowKey, items[i].SiteCode, role, items[i].Actions)
		if err != nil {
			return nil, err
		}
		items[i].Status = text
	}
	if items == nil {
		items = []QueueItem{}
	}
	return items, nil
}

func (e *Engine) excludedSet(ctx context.Context) exclusion.Set {
	set, err := e.exclusions.All(ctx)
	if err != nil {
		e.logger.Warn("exclusion set unavailable, showing all rows", "error", err)
		return exclusion.Set{Stale: true}
	}
	return set
}
