package perilous

import (
	"sync"

	"PerilousSimulator/internal/actor"
)

// Registry maps each attacker with an in-progress tracked perilous attack to
// its target. Reads take the shared lock, mutations the exclusive lock.
type Registry struct {
	mu      sync.RWMutex
	attacks map[actor.Handle]actor.Handle
}

// NewRegistry creates an empty attack registry
func NewRegistry() *Registry {
	return &Registry{attacks: make(map[actor.Handle]actor.Handle)}
}

// Lookup returns the target recorded for attacker.
func (r *Registry) Lookup(attacker actor.Handle) (actor.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.attacks[attacker]
	return target, ok
}

// Contains reports whether attacker has a record.
func (r *Registry) Contains(attacker actor.Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attacks[attacker]
	return ok
}

// Insert records attacker -> target, overwriting any previous record.
func (r *Registry) Insert(attacker, target actor.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attacks[attacker] = target
}

// Remove deletes the record for attacker. Absent keys are a no-op.
func (r *Registry) Remove(attacker actor.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attacks, attacker)
}

// Take removes and returns the record for attacker in one critical section.
func (r *Registry) Take(attacker actor.Handle) (actor.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.attacks[attacker]
	if ok {
		delete(r.attacks, attacker)
	}
	return target, ok
}

// Len returns the number of in-progress attacks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attacks)
}

// Snapshot returns a copy of every record.
func (r *Registry) Snapshot() map[actor.Handle]actor.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[actor.Handle]actor.Handle, len(r.attacks))
	for k, v := range r.attacks {
		out[k] = v
	}
	return out
}

// Clear drops every record.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attacks = make(map[actor.Handle]actor.Handle)
}
