package suggestion

import (
	"context"
	"sync"
	"time"

	"kasirpos/internal/domain"
	"kasirpos/internal/metrics"
)

// SuggestFunc is what the debouncer runs once a key has been quiet for the
// configured delay. Engine.Suggest satisfies it.
type SuggestFunc func(ctx context.Context, lines []domain.CartLine) string

type Result struct {
	Text       string `json:"text"`
	Pending    bool   `json:"pending"`
	Generation uint64 `json:"generation"`
}

type slot struct {
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	result     Result
}

// Debouncer delays suggestion calls per key and keeps only the result of the
// most recent trigger. A trigger stops the pending timer and cancels any
// in-flight call; a call that finishes after a newer trigger is dropped.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	run    SuggestFunc
	seq    uint64
	slots  map[string]*slot
	closed bool
	wg     sync.WaitGroup
}

func NewDebouncer(delay time.Duration, run SuggestFunc) *Debouncer {
	if delay <= 0 {
		delay = time.Second
	}
	return &Debouncer{
		delay: delay,
		run:   run,
		slots: make(map[string]*slot),
	}
}

// Trigger schedules a suggestion for lines under key. An empty cart clears
// the result immediately without calling out.
func (d *Debouncer) Trigger(key string, lines []domain.CartLine) uint64 {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}

	s := d.slotLocked(key)
	d.seq++
	gen := d.seq
	s.generation = gen
	d.stopLocked(s)

	if len(lines) == 0 {
		s.result = Result{Generation: gen}
		return gen
	}

	s.result.Pending = true
	s.result.Generation = gen
	snapshot := append([]domain.CartLine(nil), lines...)
	s.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, gen, snapshot)
	})
	return gen
}

// Clear drops any pending or in-flight suggestion for key and empties its
// result.
func (d *Debouncer) Clear(key string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.slots[key]
	if !ok {
		return
	}
	d.seq++
	s.generation = d.seq
	d.stopLocked(s)
	s.result = Result{Generation: s.generation}
}

func (d *Debouncer) Latest(key string) Result {
	if d == nil {
		return Result{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.slots[key]
	if !ok {
		return Result{}
	}
	return s.result
}

// Close stops all timers, cancels in-flight calls and waits for them.
func (d *Debouncer) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	for _, s := range d.slots {
		d.stopLocked(s)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer) fire(key string, gen uint64, lines []domain.CartLine) {
	d.mu.Lock()
	s, ok := d.slots[key]
	if !ok || d.closed || s.generation != gen {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.timer = nil
	s.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	text := d.run(ctx, lines)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if s.generation != gen {
		metrics.Suggestions.WithLabelValues("stale").Inc()
		return
	}
	s.cancel = nil
	s.result = Result{Text: text, Generation: gen}
}

func (d *Debouncer) slotLocked(key string) *slot {
	s, ok := d.slots[key]
	if !ok {
		s = &slot{}
		d.slots[key] = s
	}
	return s
}

func (d *Debouncer) stopLocked(s *slot) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
