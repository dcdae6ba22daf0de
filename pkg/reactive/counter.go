// Package reactive holds the two pieces of state the adapter shares with the
// host engine: a per-instance change counter and the observable view of
// component data.
//
// The host engine never sees a component's own fields change. Every wrapped
// method call, prop update and completed init ticks the instance's Counter,
// and every computed member reads it first, so the engine re-evaluates
// computed members and re-renders whenever the counter moves.
package reactive

import (
	"sync"
	"sync/atomic"
)

// Counter is a monotonic change counter used as an artificial reactive
// dependency. The zero value is ready to use. Ticks may come from any
// goroutine.
type Counter struct {
	value atomic.Uint64
	reads atomic.Uint64

	// subs are notified after each tick, in subscription order.
	subs   []subscriber
	nextID uint64
	subMu  sync.RWMutex
}

type subscriber struct {
	id uint64
	fn func(uint64)
}

// NewCounter returns a counter starting at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Read returns the current value and records a tracked read. Computed
// members call Read so the host engine registers the dependency.
func (c *Counter) Read() uint64 {
	c.reads.Add(1)
	return c.value.Load()
}

// Peek returns the current value without recording a read.
func (c *Counter) Peek() uint64 {
	return c.value.Load()
}

// Reads reports how many tracked reads happened.
func (c *Counter) Reads() uint64 {
	return c.reads.Load()
}

// Tick increments the counter and notifies subscribers with the new value.
func (c *Counter) Tick() uint64 {
	v := c.value.Add(1)
	c.notify(v)
	return v
}

// Reset sets the counter back to zero without notifying. It is called once
// when instance data is created.
func (c *Counter) Reset() {
	c.value.Store(0)
}

// Subscribe registers fn to run after every tick. The returned function
// removes the subscription.
func (c *Counter) Subscribe(fn func(uint64)) func() {
	if fn == nil {
		return func() {}
	}

	c.subMu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// notify copies the subscriber list so callbacks run without the lock held.
func (c *Counter) notify(v uint64) {
	c.subMu.RLock()
	if len(c.subs) == 0 {
		c.subMu.RUnlock()
		return
	}
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}
