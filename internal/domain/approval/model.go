package approval

import (
	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
)

// Outcome reports everything one coordinator step changed.
type Outcome struct {
	// Actions are the actions the step transitioned directly.
	Actions []*action.Action `json:"actions,omitempty"`
	// Approval is the approval raised or resubmitted as a consequence.
	Approval *action.Action `json:"approval,omitempty"`
	// Excluded is set when the step completed a terminal approval.
	Excluded    bool               `json:"excluded"`
	Observation *observation.State `json:"observation,omitempty"`
}

// subject is the observed row a chain step is about.
type subject struct {
	SourceFileID string
	RowKey       rowkey.RowKey
	SiteCode     string
	DeviceType   string
	ActionID     string
}

func subjectOf(a *action.Action) subject {
	key := a.OriginRowKey
	if key.IsZero() {
		key = a.RowKey
	}
	return subject{
		SourceFileID: a.SourceFileID,
		RowKey:       key,
		SiteCode:     a.SiteCode,
		DeviceType:   a.DeviceType,
		ActionID:     a.ID,
	}
}
