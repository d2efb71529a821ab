package suggestion

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirpos/internal/domain"
)

func cartOf(ids ...string) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, domain.CartLine{Product: domain.Product{ID: id, Name: id}, Quantity: 1})
	}
	return lines
}

func TestDebouncerRunsOnlyLastOfRapidTriggers(t *testing.T) {
	var calls atomic.Int32
	var seen atomic.Value
	d := NewDebouncer(30*time.Millisecond, func(_ context.Context, lines []domain.CartLine) string {
		calls.Add(1)
		seen.Store(lines[len(lines)-1].ID)
		return "for " + lines[len(lines)-1].ID
	})
	t.Cleanup(d.Close)

	d.Trigger("cashier", cartOf("A"))
	d.Trigger("cashier", cartOf("A", "B"))
	d.Trigger("cashier", cartOf("A", "B", "C"))
	assert.True(t, d.Latest("cashier").Pending)

	require.Eventually(t, func() bool {
		return d.Latest("cashier").Text == "for C"
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "C", seen.Load())
	assert.False(t, d.Latest("cashier").Pending)
}

func TestDebouncerDiscardsStaleResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var slowDone sync.WaitGroup
	slowDone.Add(1)

	d := NewDebouncer(5*time.Millisecond, func(_ context.Context, lines []domain.CartLine) string {
		if lines[0].ID == "slow" {
			defer slowDone.Done()
			close(started)
			<-release
			return "stale"
		}
		return "fresh"
	})
	t.Cleanup(d.Close)

	d.Trigger("cashier", cartOf("slow"))
	<-started

	d.Trigger("cashier", cartOf("fast"))
	require.Eventually(t, func() bool {
		return d.Latest("cashier").Text == "fresh"
	}, time.Second, 5*time.Millisecond)

	close(release)
	slowDone.Wait()
	assert.Equal(t, "fresh", d.Latest("cashier").Text)
}

func TestDebouncerCancelsInFlightContext(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})
	d := NewDebouncer(5*time.Millisecond, func(ctx context.Context, lines []domain.CartLine) string {
		if lines[0].ID != "first" {
			return ""
		}
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ""
	})
	t.Cleanup(d.Close)

	d.Trigger("cashier", cartOf("first"))
	<-started
	d.Trigger("cashier", cartOf("second"))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight call was not cancelled")
	}
}

func TestDebouncerEmptyCartClearsImmediately(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(5*time.Millisecond, func(context.Context, []domain.CartLine) string {
		calls.Add(1)
		return "tip"
	})
	t.Cleanup(d.Close)

	d.Trigger("cashier", cartOf("A"))
	require.Eventually(t, func() bool { return d.Latest("cashier").Text == "tip" }, time.Second, 5*time.Millisecond)

	d.Trigger("cashier", nil)
	got := d.Latest("cashier")
	assert.Empty(t, got.Text)
	assert.False(t, got.Pending)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDebouncerClearDropsPending(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func(context.Context, []domain.CartLine) string {
		calls.Add(1)
		return "tip"
	})
	t.Cleanup(d.Close)

	d.Trigger("cashier", cartOf("A"))
	d.Clear("cashier")
	time.Sleep(60 * time.Millisecond)

	assert.EqualValues(t, 0, calls.Load())
	assert.Equal(t, "", d.Latest("cashier").Text)
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(5*time.Millisecond, func(_ context.Context, lines []domain.CartLine) string {
		return lines[0].ID
	})
	t.Cleanup(d.Close)

	d.Trigger("a", cartOf("one"))
	d.Trigger("b", cartOf("two"))

	require.Eventually(t, func() bool {
		return d.Latest("a").Text == "one" && d.Latest("b").Text == "two"
	}, time.Second, 5*time.Millisecond)
}

func TestNilDebouncerIsInert(t *testing.T) {
	var d *Debouncer
	assert.Zero(t, d.Trigger("x", cartOf("A")))
	d.Clear("x")
	assert.Equal(t, Result{}, d.Latest("x"))
	d.Close()
}
