// Package gesture turns press-down / press-up pairs into taps and long presses.
package gesture

import (
	"sync"
	"time"
)

// Button tracks a single physical key. At most one hold timer is
// outstanding at any time; a new Down always invalidates the previous one.
type Button struct {
	mu     sync.Mutex
	clock  Clock
	hold   time.Duration
	onHold func()

	timer   Timer
	gen     uint64
	pressed bool
	fired   bool
	closed  bool
}

// NewButton returns a Button that calls onHold once the key has been held
// for at least hold. onHold runs on the timer's goroutine without the
// button lock held.
func NewButton(clock Clock, hold time.Duration, onHold func()) *Button {
	return &Button{
		clock:  clock,
		hold:   hold,
		onHold: onHold,
	}
}

// Down arms the hold timer, cancelling any stale one first.
func (b *Button) Down() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.stopLocked()
	b.gen++
	b.pressed = true
	b.fired = false

	gen := b.gen
	b.timer = b.clock.AfterFunc(b.hold, func() { b.fire(gen) })
}

// Up releases the key and reports whether the hold threshold was reached
// during this press. Up without a matching Down reports false.
func (b *Button) Up() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pressed {
		return false
	}

	b.stopLocked()
	b.pressed = false
	return b.fired
}

// Pressed reports whether the key is currently held down.
func (b *Button) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed
}

// Close cancels any pending timer. Fires that race with Close are dropped.
func (b *Button) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	b.closed = true
	b.pressed = false
}

func (b *Button) fire(gen uint64) {
	b.mu.Lock()
	if b.closed || !b.pressed || gen != b.gen || b.fired {
		b.mu.Unlock()
		return
	}
	b.fired = true
	b.timer = nil
	cb := b.onHold
	b.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (b *Button) stopLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
