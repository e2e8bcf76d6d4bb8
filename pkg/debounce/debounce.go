// Package debounce coalesces bursts of trigger signals into a single
// callback invocation after a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer arms a cancellable timer on every Trigger, replacing any timer
// already armed, so a burst of triggers produces exactly one callback firing
// one full delay after the last trigger in the burst. It is safe for
// concurrent use.
//
// Each arming carries a generation number. timer.Stop may return false when
// the timer has already expired and its expiry goroutine is waiting for the
// lock; the generation check makes such a stale expiry a no-op instead of
// letting it clear or race a newer arming.
type Debouncer struct {
	mu         sync.Mutex
	delay      time.Duration
	callback   func()
	timer      *time.Timer
	generation uint64
}

// New returns an idle debouncer. Nothing fires until Trigger is called.
func New(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{delay: delay, callback: callback}
}

// Trigger cancels any pending invocation and schedules a new one for one
// full delay from now.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	armed := d.generation
	d.timer = time.AfterFunc(d.delay, func() { d.fire(armed) })
}

// Cancel disarms any pending invocation. Calling Cancel when nothing is
// pending is a no-op, and Trigger works normally afterward.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire runs on the timer goroutine. An expiry whose generation has been
// superseded by a later Trigger or Cancel must not touch the timer handle
// or run the callback: the handle now belongs to the newer arming. The
// callback is invoked outside the lock so it may Trigger or Cancel without
// deadlocking.
func (d *Debouncer) fire(armed uint64) {
	d.mu.Lock()
	if armed != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	callback := d.callback
	d.mu.Unlock()

	if callback != nil {
		callback()
	}
}
