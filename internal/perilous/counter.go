package perilous

import (
	"sync"

	"PerilousSimulator/internal/actor"
)

// Counter tracks how many tracked attackers currently target each actor.
// A target with no attackers has no entry; stored counts are always > 0.
type Counter struct {
	mu     sync.RWMutex
	counts map[actor.Handle]int
}

// NewCounter creates an empty target counter
func NewCounter() *Counter {
	return &Counter{counts: make(map[actor.Handle]int)}
}

// Count returns the number of attackers on target; absent means 0.
func (c *Counter) Count(target actor.Handle) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[target]
}

// Increment adds one attacker to target, inserting it at 1 if absent.
func (c *Counter) Increment(target actor.Handle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[target]++
	return c.counts[target]
}

// Decrement removes one attacker from target. The entry is deleted once it
// reaches zero; a target without an entry is left alone.
func (c *Counter) Decrement(target actor.Handle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[target]
	if !ok {
		return 0
	}
	n--
	if n <= 0 {
		delete(c.counts, target)
		return 0
	}
	c.counts[target] = n
	return n
}

// Len returns the number of targets with at least one attacker
func (c *Counter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.counts)
}

// Snapshot returns a copy of every count.
func (c *Counter) Snapshot() map[actor.Handle]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[actor.Handle]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Clear drops every count.
func (c *Counter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[actor.Handle]int)
}
