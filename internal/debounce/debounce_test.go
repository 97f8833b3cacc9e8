package debounce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestNew_InitialValueIsImmediate(t *testing.T) {
	d := New(context.Background(), "initial", time.Hour, nil)
	defer d.Stop()

	assert.Equal(t, "initial", d.Value())
	assert.Equal(t, "initial", d.Raw())
	assert.False(t, d.Pending())
}

func TestSet_BurstPromotesOnlyFinalValue(t *testing.T) {
	rec := &recorder{}
	d := New(context.Background(), "", 50*time.Millisecond, rec.record)
	defer d.Stop()

	for _, v := range []string{"g", "go", "gor", "goro"} {
		d.Set(v)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, "goro", d.Raw())
	assert.Equal(t, "", d.Value(), "value must lag until the quiet period elapses")
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return d.Value() == "goro" }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"goro"}, rec.snapshot())
}

func TestSet_EachChangeRestartsWait(t *testing.T) {
	d := New(context.Background(), "", 60*time.Millisecond, nil)
	defer d.Stop()

	d.Set("a")
	time.Sleep(40 * time.Millisecond)
	d.Set("ab")
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, "", d.Value(), "second Set should have restarted the timer")
	require.Eventually(t, func() bool { return d.Value() == "ab" }, time.Second, 5*time.Millisecond)
}

func TestSet_ReturningToCurrentValueDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	d := New(context.Background(), "go", 20*time.Millisecond, rec.record)
	defer d.Stop()

	d.Set("gopher")
	d.Set("go")
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, "go", d.Value())
	assert.Empty(t, rec.snapshot())
}

func TestSet_ZeroDelayPromotesSynchronously(t *testing.T) {
	rec := &recorder{}
	d := New(context.Background(), "", 0, rec.record)
	defer d.Stop()

	d.Set("x")

	assert.Equal(t, "x", d.Value())
	assert.Equal(t, []string{"x"}, rec.snapshot())
}

func TestStop_CancelsPendingUpdate(t *testing.T) {
	rec := &recorder{}
	d := New(context.Background(), "", 20*time.Millisecond, rec.record)

	d.Set("pending")
	d.Stop()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, "", d.Value())
	assert.Empty(t, rec.snapshot())

	d.Set("after stop")
	assert.Equal(t, "pending", d.Raw(), "Set after Stop is ignored")
}

func TestContextCancelStopsDebouncer(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	d := New(ctx, "", 30*time.Millisecond, rec.record)

	d.Set("typed")
	cancel()

	require.Eventually(t, func() bool { return !d.Pending() }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "", d.Value())
	assert.Empty(t, rec.snapshot())
}
