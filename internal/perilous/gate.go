package perilous

import (
	"PerilousSimulator/internal/actor"
	"PerilousSimulator/internal/settings"
)

// Gate decides whether an attacker may enter a tracked perilous attack.
// It reads the counter but never mutates it.
type Gate struct {
	counter *Counter
	stagger actor.StaggerAPI
	draw    func() float64
}

// Chance returns the attack probability for a: the combat style's
// offensive multiplier scaled by multiplier, or 0 without combat data.
func Chance(a actor.Actor, multiplier float64) float64 {
	mult, ok := a.OffensiveMult()
	if !ok {
		return 0
	}
	return mult * multiplier
}

// Admit runs the precondition checks and resolves the attacker's target.
func (g *Gate) Admit(a actor.Actor, s settings.Settings) (actor.Handle, bool) {
	if !s.Attack.Enable {
		return actor.Null, false
	}
	if a.IsPlayer() || !a.IsInCombat() {
		return actor.Null, false
	}
	target, ok := a.CombatTarget()
	if !ok {
		return actor.Null, false
	}
	if g.stagger.IsExhausted(a) || g.stagger.IsStunned(a) {
		return actor.Null, false
	}
	return target, true
}

// Roll draws once and succeeds when the draw is within the actor's chance.
// A zero chance never succeeds.
func (g *Gate) Roll(a actor.Actor, s settings.Settings) bool {
	chance := Chance(a, s.Attack.ChanceMultiplier)
	if chance <= 0 {
		return false
	}
	return g.draw() <= chance
}

// UnderCap reports whether target can take one more tracked attacker.
func (g *Gate) UnderCap(target actor.Handle, s settings.Settings) bool {
	return g.counter.Count(target) < s.MaxAttackers
}
