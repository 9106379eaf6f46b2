package action_test

import (
	"testing"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	exec := &action.Action{Kind: action.KindExecution}
	approval := &action.Action{Kind: action.KindApproval}

	cases := []struct {
		name   string
		a      *action.Action
		from   action.Status
		ev     action.Event
		want   action.Status
		wantIs error
	}{
		{"complete pending", exec, action.StatusPending, action.EventComplete, action.StatusCompleted, nil},
		{"complete rechecked approval", approval, action.StatusInProgress, action.EventComplete, action.StatusCompleted, nil},
		{"recheck approval", approval, action.StatusPending, action.EventRequestRecheck, action.StatusInProgress, nil},
		{"recheck execution", exec, action.StatusPending, action.EventRequestRecheck, "", action.ErrNotApproval},
		{"recheck twice", approval, action.StatusInProgress, action.EventRequestRecheck, "", action.ErrInvalidTransition},
		{"resubmit", approval, action.StatusInProgress, action.EventResubmit, action.StatusPending, nil},
		{"resubmit pending", approval, action.StatusPending, action.EventResubmit, "", action.ErrInvalidTransition},
		{"out of completed", exec, action.StatusCompleted, action.EventComplete, "", action.ErrInvalidTransition},
		{"recheck completed", approval, action.StatusCompleted, action.EventRequestRecheck, "", action.ErrInvalidTransition},
		{"unknown event", exec, action.StatusPending, action.Event("reopen"), "", action.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := *tc.a
			a.Status = tc.from
			got, err := action.Transition(&a, tc.ev)
			if tc.wantIs != nil {
				require.ErrorIs(t, err, tc.wantIs)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]action.Status{
		"Pending":     action.StatusPending,
		"in_progress": action.StatusInProgress,
		"In Progress": action.StatusInProgress,
		"COMPLETED":   action.StatusCompleted,
	} {
		got, ok := action.ParseStatus(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	_, ok := action.ParseStatus("reopened")
	require.False(t, ok)
}

func TestEventFor(t *testing.T) {
	ev, err := action.EventFor(action.StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, action.EventComplete, ev)

	_, err = action.EventFor(action.Status("Archived"))
	require.ErrorIs(t, err, action.ErrInvalidInput)
}
