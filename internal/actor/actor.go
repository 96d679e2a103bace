// Package actor describes the narrow view the perilous core has of a
// combatant. Hosts implement Actor; the core never owns one.
package actor

import (
	"fmt"

	"github.com/yohamta/donburi"
)

// Handle is a weak, generation-checked reference to an actor. Two handles
// compare equal only when both the slot id and its generation match, so a
// handle to a destroyed actor never aliases its replacement.
type Handle = donburi.Entity

// Null is the handle that refers to nothing.
var Null Handle = donburi.Null

// Describe renders a handle as id@generation for log lines.
func Describe(h Handle) string {
	return fmt.Sprintf("%d@%d", h.Id(), h.Version())
}

// AttackType is the value stored in an actor's perilous state slot.
type AttackType int32

const (
	AttackNone AttackType = iota
	AttackYellow
	AttackRed
	AttackBlue
)

func (t AttackType) String() string {
	switch t {
	case AttackNone:
		return "none"
	case AttackYellow:
		return "yellow"
	case AttackRed:
		return "red"
	case AttackBlue:
		return "blue"
	}
	return fmt.Sprintf("AttackType(%d)", int32(t))
}

// Vec3 is a world-space position.
type Vec3 struct {
	X, Y, Z float32
}

// Actor is the capability surface the core reads and writes. Every method
// must be safe to call on an actor that has since been destroyed: getters
// report zero values and SetAttackType becomes a no-op.
type Actor interface {
	Handle() Handle
	IsPlayer() bool
	IsInCombat() bool
	// CombatTarget returns the current combat target, if any.
	CombatTarget() (Handle, bool)
	// OffensiveMult reports the combat style's offensive multiplier. ok is
	// false when the actor has no combat controller or no combat style.
	OffensiveMult() (mult float64, ok bool)
	AttackType() AttackType
	SetAttackType(AttackType)
	HeadPosition() (Vec3, bool)
}

// StaggerAPI is the optional stun/exhaustion predicate provided by an
// external combat module. A nil StaggerAPI behaves as NoStagger.
type StaggerAPI interface {
	IsExhausted(Actor) bool
	IsStunned(Actor) bool
}

// NoStagger reports every actor as neither exhausted nor stunned.
type NoStagger struct{}

func (NoStagger) IsExhausted(Actor) bool { return false }
func (NoStagger) IsStunned(Actor) bool   { return false }
