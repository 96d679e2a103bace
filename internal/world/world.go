// Package world hosts simulated combatants in a donburi ECS world and
// exposes them through the actor capability interface.
package world

import (
	"sync"
	"sync/atomic"

	"github.com/yohamta/donburi"

	"PerilousSimulator/internal/actor"
)

// CombatData is the combat controller state of an actor. A nil Style means
// the actor has a controller without a combat style.
type CombatData struct {
	InCombat bool
	Target   actor.Handle
	Style    *CombatStyle
}

// CombatStyle carries the scoring inputs consumed by the perilous gate.
type CombatStyle struct {
	Name          string
	OffensiveMult float64
}

// StaggerData mirrors the external stun/exhaustion module.
type StaggerData struct {
	Exhausted bool
	Stunned   bool
}

// AttackSlot is the per-actor integer state slot. The pointer is allocated
// once at spawn so component moves never copy the atomic.
type AttackSlot struct {
	Type *atomic.Int32
}

// PlayerTag marks the player-controlled actor.
type PlayerTag struct{}

var (
	Combat   = donburi.NewComponentType[CombatData]()
	Stagger  = donburi.NewComponentType[StaggerData]()
	Slot     = donburi.NewComponentType[AttackSlot]()
	Position = donburi.NewComponentType[actor.Vec3]()
	Player   = donburi.NewComponentType[PlayerTag]()
)

// Spec describes an actor to spawn.
type Spec struct {
	Player   bool
	InCombat bool
	Style    *CombatStyle
	Position actor.Vec3
}

// World is a goroutine-safe wrapper around a donburi world. donburi caches
// location data on the entry during lookup, so reads are exclusive too.
type World struct {
	mu    sync.Mutex
	world donburi.World
}

func New() *World {
	return &World{world: donburi.NewWorld()}
}

// Spawn creates an actor and returns its handle.
func (w *World) Spawn(spec Spec) actor.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()

	var h actor.Handle
	if spec.Player {
		h = w.world.Create(Combat, Stagger, Slot, Position, Player)
	} else {
		h = w.world.Create(Combat, Stagger, Slot, Position)
	}
	entry := w.world.Entry(h)
	Combat.SetValue(entry, CombatData{InCombat: spec.InCombat, Target: actor.Null, Style: spec.Style})
	Slot.SetValue(entry, AttackSlot{Type: new(atomic.Int32)})
	Position.SetValue(entry, spec.Position)
	return h
}

// Despawn destroys an actor. Handles to it become stale.
func (w *World) Despawn(h actor.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.world.Valid(h) {
		w.world.Remove(h)
	}
}

// Valid reports whether h still refers to a live actor.
func (w *World) Valid(h actor.Handle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.world.Valid(h)
}

// Actor returns a view of h. The view stays usable after h is destroyed.
func (w *World) Actor(h actor.Handle) actor.Actor {
	return view{w: w, h: h}
}

// Engage puts attacker in combat against target.
func (w *World) Engage(attacker, target actor.Handle) bool {
	return w.update(attacker, func(entry *donburi.Entry) {
		c := Combat.Get(entry)
		c.InCombat = true
		c.Target = target
	})
}

// Disengage drops attacker out of combat and clears its target.
func (w *World) Disengage(h actor.Handle) bool {
	return w.update(h, func(entry *donburi.Entry) {
		c := Combat.Get(entry)
		c.InCombat = false
		c.Target = actor.Null
	})
}

// SetStagger updates the stun/exhaustion state read by StaggerAPI.
func (w *World) SetStagger(h actor.Handle, s StaggerData) bool {
	return w.update(h, func(entry *donburi.Entry) {
		Stagger.SetValue(entry, s)
	})
}

func (w *World) update(h actor.Handle, fn func(*donburi.Entry)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Valid(h) {
		return false
	}
	fn(w.world.Entry(h))
	return true
}

func (w *World) read(h actor.Handle, fn func(*donburi.Entry)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Valid(h) {
		return false
	}
	fn(w.world.Entry(h))
	return true
}

// IsExhausted implements actor.StaggerAPI.
func (w *World) IsExhausted(a actor.Actor) bool {
	var out bool
	w.read(a.Handle(), func(entry *donburi.Entry) { out = Stagger.Get(entry).Exhausted })
	return out
}

// IsStunned implements actor.StaggerAPI.
func (w *World) IsStunned(a actor.Actor) bool {
	var out bool
	w.read(a.Handle(), func(entry *donburi.Entry) { out = Stagger.Get(entry).Stunned })
	return out
}
