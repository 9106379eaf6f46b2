package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	actionID := "a1"
	entry1 := &activity.ActivityEntry{
		SiteCode:     "BLR001",
		ActionID:     &actionID,
		ActivityType: activity.TypeActionCreated,
		Summary:      "Created action",
		Details:      `{"id":"a1"}`,
	}
	entry2 := &activity.ActivityEntry{
		SiteCode:     "BLR001",
		ActivityType: activity.TypeObservationRecorded,
		Summary:      "Observed",
	}

	require.NoError(t, repo.Log(ctx, entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{SiteCode: "BLR001"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Nil(t, entries[0].ActionID)
	require.Equal(t, "a1", *entries[1].ActionID)

	typ := activity.TypeActionCreated
	filtered, err := repo.List(ctx, activity.ListActivityOptions{ActivityType: &typ})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	paged, err := repo.List(ctx, activity.ListActivityOptions{SiteCode: "BLR001", Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, activity.TypeActionCreated, paged[0].ActivityType)
}
