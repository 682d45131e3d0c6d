// Package debounce runs a task once a quiet window has elapsed with no new triggers.
package debounce

import (
	"sync"
	"time"
)

// Debouncer holds at most one scheduled task. Every Trigger cancels the
// pending task and schedules the new one.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	pending  func()
	gen      uint64
	duration time.Duration
}

// New creates a debouncer with the specified quiet window.
func New(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Trigger schedules fn after the quiet window. It reports whether a pending
// task was replaced.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	replaced := d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.duration, func() {
		d.fire(gen)
	})
	return replaced
}

// Cancel drops any pending task without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

// Flush runs the pending task immediately, if any, on the caller's goroutine.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.gen++
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a task is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a Trigger/Cancel/Flush raced with the timer
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

func (d *Debouncer) stopLocked() bool {
	replaced := d.pending != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	return replaced
}
