package syncer

import (
	"context"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/approval"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Observations is the workflow surface an ObservationGateway writes through.
type Observations interface {
	RecordObservation(ctx context.Context, req observation.RecordRequest) (*approval.Outcome, error)
	Observation(ctx context.Context, key rowkey.RowKey, siteCode string, role team.Role) (*observation.State, error)
}

// ObservationGateway stores drafts as role observations.
type ObservationGateway struct {
	obs Observations
}

// NewObservationGateway creates a gateway over obs.
func NewObservationGateway(obs Observations) *ObservationGateway {
	return &ObservationGateway{obs: obs}
}

// Push records the draft as the role's observation.
func (g *ObservationGateway) Push(ctx context.Context, key Key, d Draft) (Remote, error) {
	status, ok := observation.ParseStatus(d.Status)
	if !ok {
		return Remote{}, fmt.Errorf("status %q: %w", d.Status, observation.ErrInvalidInput)
	}
	out, err := g.obs.RecordObservation(ctx, observation.RecordRequest{
		RowKey:   key.RowKey,
		SiteCode: key.SiteCode,
		Role:     key.Role,
		Status:   status,
		Remarks:  d.Remarks,
	})
	if err != nil {
		return Remote{}, err
	}
	return remoteOf(out.Observation), nil
}

// Pull reads the role's stored observation.
func (g *ObservationGateway) Pull(ctx context.Context, key Key) (Remote, bool, error) {
	st, err := g.obs.Observation(ctx, key.RowKey, key.SiteCode, key.Role)
	if err != nil {
		return Remote{}, false, err
	}
	if st == nil {
		return Remote{}, false, nil
	}
	return remoteOf(st), true, nil
}

func remoteOf(st *observation.State) Remote {
	if st == nil {
		return Remote{}
	}
	return Remote{Status: string(st.Status), Remarks: st.Remarks}
}
