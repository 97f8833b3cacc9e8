// Package debounce delays propagation of a changing value until it has been
// stable for a fixed interval.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer holds a raw value and a lagging debounced copy of it.
//
// The debounced value starts equal to the initial value. Every Set restarts the
// wait; once the raw value has been left alone for the configured delay it is
// promoted and onChange is invoked with it.
type Debouncer[T comparable] struct {
	mu       sync.Mutex
	delay    time.Duration
	raw      T
	value    T
	timer    *time.Timer
	gen      uint64
	stopped  bool
	onChange func(T)
	stopCtx  func() bool
}

// New creates a Debouncer. When ctx ends the debouncer is stopped and any
// pending update is dropped. onChange may be nil.
func New[T comparable](ctx context.Context, initial T, delay time.Duration, onChange func(T)) *Debouncer[T] {
	d := &Debouncer[T]{
		delay:    delay,
		raw:      initial,
		value:    initial,
		onChange: onChange,
	}
	if ctx != nil {
		d.stopCtx = context.AfterFunc(ctx, d.Stop)
	}
	return d
}

// Set records v as the latest raw value and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.raw = v
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	gen := d.gen
	if d.delay <= 0 {
		d.mu.Unlock()
		d.promote(gen)
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.promote(gen) })
	d.mu.Unlock()
}

// promote publishes the raw value if gen is still the latest generation.
func (d *Debouncer[T]) promote(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.raw == d.value {
		d.mu.Unlock()
		return
	}
	d.value = d.raw
	v, fn := d.value, d.onChange
	d.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// Raw returns the most recent value passed to Set.
func (d *Debouncer[T]) Raw() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Value returns the debounced value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Pending reports whether a raw value is waiting to be promoted.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && d.raw != d.value
}

// Stop cancels the pending timer. Later calls to Set are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopCtx != nil {
		d.stopCtx()
	}
}
