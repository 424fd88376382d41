// Package countdown implements the attempt clock: a one-second ticking timer
// with a single expiry callback per armed cycle.
package countdown

import (
	"sync"
	"time"

	"github.com/AdamBeresnev/meet-control/internal/meet"
)

// Ticker is the subset of *time.Ticker the timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type Option func(*Timer)

// WithTicker replaces the wall-clock ticker, mostly for tests.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(t *Timer) { t.newTicker = newTicker }
}

// WithTickHandler registers a callback invoked with the remaining seconds
// after every tick that did not expire the timer.
func WithTickHandler(fn func(remaining int)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// run is one armed cycle. Closing done retires the goroutine driving it.
type run struct {
	done chan struct{}
}

type Timer struct {
	mu        sync.Mutex
	duration  int
	remaining int
	cycle     uint64
	active    *run

	onExpire  func(cycle uint64)
	onTick    func(int)
	newTicker func(time.Duration) Ticker
}

// New creates a stopped timer. onExpire is called from the timer goroutine,
// without the timer lock held, exactly once per cycle that reaches zero. A
// cycle begins with every Start or Reset; Resume continues the current one.
func New(onExpire func(cycle uint64), opts ...Option) *Timer {
	t := &Timer{
		onExpire:  onExpire,
		newTicker: NewRealTicker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start arms the timer with the full duration. Starting a running timer
// re-arms it from the full duration.
func (t *Timer) Start(seconds int) error {
	if seconds <= 0 {
		return meet.ErrInvalidDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.cycle++
	t.duration = seconds
	t.remaining = seconds
	t.launch()
	return nil
}

// Resume continues a stopped timer from its remaining seconds. It is a no-op
// when the timer is running or has nothing left.
func (t *Timer) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil || t.remaining <= 0 {
		return false
	}
	t.launch()
	return true
}

// Stop halts the timer without touching the remaining time. A pending expiry
// of the halted cycle will not fire.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

// Reset halts the timer and restores the given duration.
func (t *Timer) Reset(seconds int) error {
	if seconds <= 0 {
		return meet.ErrInvalidDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	t.cycle++
	t.duration = seconds
	t.remaining = seconds
	return nil
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Cycle identifies the current armed cycle, as passed to onExpire.
func (t *Timer) Cycle() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycle
}

func (t *Timer) Duration() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// halt must be called with mu held.
func (t *Timer) halt() {
	if t.active == nil {
		return
	}
	close(t.active.done)
	t.active = nil
}

// launch must be called with mu held.
func (t *Timer) launch() {
	r := &run{done: make(chan struct{})}
	t.active = r
	ticker := t.newTicker(time.Second)
	go t.loop(r, ticker)
}

func (t *Timer) loop(r *run, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C():
			if !t.tick(r) {
				return
			}
		}
	}
}

// tick decrements the clock for cycle r and reports whether r keeps running.
func (t *Timer) tick(r *run) bool {
	t.mu.Lock()
	if t.active != r {
		t.mu.Unlock()
		return false
	}

	t.remaining--
	if t.remaining > 0 {
		remaining := t.remaining
		onTick := t.onTick
		t.mu.Unlock()
		if onTick != nil {
			onTick(remaining)
		}
		return true
	}

	t.remaining = 0
	t.active = nil
	cycle := t.cycle
	onExpire := t.onExpire
	t.mu.Unlock()

	if onExpire != nil {
		onExpire(cycle)
	}
	return false
}
