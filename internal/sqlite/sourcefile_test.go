package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestSourceFileRepository_CRUD(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSourceFileRepository(db)

	now := time.Now().UTC()
	f := &sourcefile.File{ID: "f1", Name: "june.xlsx", Headers: []string{"site_code", "device_type"}, Tick: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, f))
	require.ErrorIs(t, repo.Create(ctx, f), repository.ErrConflict)

	f.Headers = []string{"device_type", "site_code"}
	require.NoError(t, repo.Update(ctx, f))

	tick, err := repo.IncrementTick(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, int64(2), tick)

	got, err := repo.Get(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, []string{"device_type", "site_code"}, got.Headers)
	require.Equal(t, int64(2), got.Tick)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = repo.IncrementTick(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
