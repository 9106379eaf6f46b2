package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/syncer"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu      sync.Mutex
	records map[syncer.Key]syncer.Remote
	pushes  int
	failing bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{records: make(map[syncer.Key]syncer.Remote)}
}

func (g *fakeGateway) Push(_ context.Context, key syncer.Key, d syncer.Draft) (syncer.Remote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return syncer.Remote{}, errors.New("gateway down")
	}
	g.pushes++
	r := syncer.Remote{Status: d.Status, Remarks: d.Remarks, Photos: d.Photos}
	g.records[key] = r
	return r, nil
}

func (g *fakeGateway) Pull(_ context.Context, key syncer.Key) (syncer.Remote, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.records[key]
	return r, ok, nil
}

func (g *fakeGateway) set(key syncer.Key, r syncer.Remote) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[key] = r
}

var omKey = syncer.Key{
	RowKey:   rowkey.RowKey{FileID: "f1", Identity: "BLR001|RMU|SOUTH"},
	SiteCode: "BLR001",
	Role:     team.RoleOM,
}

func TestStore_SetIsLocalUntilFlushed(t *testing.T) {
	gw := newFakeGateway()
	s := syncer.NewStore(gw, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(omKey, syncer.Draft{Status: "Pending", Remarks: "on my way"}))
	require.NoError(t, s.Set(omKey, syncer.Draft{Status: "Resolved", Remarks: "fixed"}))

	got, ok := s.Get(omKey)
	require.True(t, ok)
	require.True(t, got.Dirty)
	require.Equal(t, "Resolved", got.Status)
	require.Zero(t, gw.pushes)

	require.NoError(t, s.Flush(ctx))
	require.Equal(t, 1, gw.pushes)

	got, _ = s.Get(omKey)
	require.False(t, got.Dirty)
	require.Equal(t, "fixed", got.Remarks)
}

func TestStore_RefreshKeepsUnackedEdits(t *testing.T) {
	gw := newFakeGateway()
	gw.set(omKey, syncer.Remote{Status: "Pending", Remarks: "from CCR"})
	s := syncer.NewStore(gw, time.Hour, nil)
	ctx := context.Background()

	s.Track(omKey)
	require.NoError(t, s.Refresh(ctx))
	got, ok := s.Get(omKey)
	require.True(t, ok)
	require.Equal(t, "from CCR", got.Remarks)

	require.NoError(t, s.Set(omKey, syncer.Draft{Status: "Resolved", Remarks: "fixed"}))
	require.NoError(t, s.Refresh(ctx))
	got, _ = s.Get(omKey)
	require.Equal(t, "Resolved", got.Status)
	require.Equal(t, "fixed", got.Remarks)

	gw.set(omKey, syncer.Remote{Status: "Completed"})
	require.NoError(t, s.Refresh(ctx))
	got, _ = s.Get(omKey)
	require.Equal(t, "Completed", got.Status)
}

func TestStore_FailedPushStaysDirty(t *testing.T) {
	gw := newFakeGateway()
	gw.failing = true
	s := syncer.NewStore(gw, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(omKey, syncer.Draft{Status: "Resolved"}))
	require.Error(t, s.Flush(ctx))

	got, _ := s.Get(omKey)
	require.True(t, got.Dirty)

	gw.mu.Lock()
	gw.failing = false
	gw.mu.Unlock()
	require.NoError(t, s.Close(ctx))

	got, _ = s.Get(omKey)
	require.False(t, got.Dirty)
	require.Equal(t, 1, gw.pushes)
}

func TestStore_SetAfterCloseRejected(t *testing.T) {
	gw := newFakeGateway()
	s := syncer.NewStore(gw, time.Hour, nil)

	require.NoError(t, s.Set(omKey, syncer.Draft{Status: "Pending"}))
	require.NoError(t, s.Close(context.Background()))
	require.Equal(t, 1, gw.pushes)

	require.ErrorIs(t, s.Set(omKey, syncer.Draft{Status: "Resolved"}), syncer.ErrStopped)
	got, ok := s.Get(omKey)
	require.True(t, ok)
	require.Equal(t, "Pending", got.Status)
	require.False(t, got.Dirty)
}
