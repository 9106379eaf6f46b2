package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/siteflow/internal/syncer"
	"github.com/stretchr/testify/require"
)

type sent struct {
	key   string
	value int
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]int
}

func (r *recorder) flush(_ context.Context, key string, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[key] > 0 {
		r.fail[key]--
		return errors.New("remote unavailable")
	}
	r.sent = append(r.sent, sent{key, value})
	return nil
}

func (r *recorder) snapshot() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func TestDebouncer_CoalescesToLastWriteInOrder(t *testing.T) {
	rec := &recorder{}
	d := syncer.NewDebouncer(time.Hour, rec.flush, nil)

	require.NoError(t, d.Put("a", 1))
	require.NoError(t, d.Put("b", 1))
	require.NoError(t, d.Put("a", 2))
	require.NoError(t, d.Put("c", 1))
	require.NoError(t, d.Put("a", 3))
	require.Equal(t, 3, d.Pending())

	require.NoError(t, d.Flush(context.Background()))
	require.Equal(t, []sent{{"a", 3}, {"b", 1}, {"c", 1}}, rec.snapshot())
	require.Zero(t, d.Pending())
}

func TestDebouncer_FlushesAfterWindow(t *testing.T) {
	rec := &recorder{}
	d := syncer.NewDebouncer(20*time.Millisecond, rec.flush, nil)

	require.NoError(t, d.Put("a", 1))
	require.NoError(t, d.Put("a", 2))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []sent{{"a", 2}}, rec.snapshot())
	require.NoError(t, d.Stop(context.Background()))
}

func TestDebouncer_FailedKeyRequeuedUnlessNewer(t *testing.T) {
	rec := &recorder{fail: map[string]int{"a": 1, "b": 1}}
	d := syncer.NewDebouncer(time.Hour, rec.flush, nil)
	ctx := context.Background()

	require.NoError(t, d.Put("a", 1))
	require.NoError(t, d.Put("b", 1))
	err := d.Flush(ctx)
	require.Error(t, err)
	require.Equal(t, 2, d.Pending())

	require.NoError(t, d.Put("b", 2))
	require.NoError(t, d.Put("c", 1))
	require.NoError(t, d.Stop(ctx))
	require.Equal(t, []sent{{"a", 1}, {"b", 2}, {"c", 1}}, rec.snapshot())
}

func TestDebouncer_RejectsWritesAfterStop(t *testing.T) {
	rec := &recorder{}
	d := syncer.NewDebouncer(time.Hour, rec.flush, nil)

	require.NoError(t, d.Put("a", 1))
	require.NoError(t, d.Stop(context.Background()))
	require.ErrorIs(t, d.Put("b", 1), syncer.ErrStopped)
	require.Zero(t, d.Pending())
	require.Equal(t, []sent{{"a", 1}}, rec.snapshot())
}
