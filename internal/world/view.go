package world

import (
	"github.com/yohamta/donburi"

	"PerilousSimulator/internal/actor"
)

type view struct {
	w *World
	h actor.Handle
}

func (v view) Handle() actor.Handle { return v.h }

func (v view) IsPlayer() bool {
	var out bool
	v.w.read(v.h, func(entry *donburi.Entry) { out = entry.HasComponent(Player) })
	return out
}

func (v view) IsInCombat() bool {
	var out bool
	v.w.read(v.h, func(entry *donburi.Entry) { out = Combat.Get(entry).InCombat })
	return out
}

func (v view) CombatTarget() (actor.Handle, bool) {
	target := actor.Null
	v.w.read(v.h, func(entry *donburi.Entry) { target = Combat.Get(entry).Target })
	return target, target != actor.Null
}

func (v view) OffensiveMult() (float64, bool) {
	var (
		mult float64
		ok   bool
	)
	v.w.read(v.h, func(entry *donburi.Entry) {
		if style := Combat.Get(entry).Style; style != nil {
			mult, ok = style.OffensiveMult, true
		}
	})
	return mult, ok
}

// The slot itself is atomic; the world lock only pins the entry.
func (v view) AttackType() actor.AttackType {
	t := actor.AttackNone
	v.w.read(v.h, func(entry *donburi.Entry) { t = actor.AttackType(Slot.Get(entry).Type.Load()) })
	return t
}

func (v view) SetAttackType(t actor.AttackType) {
	v.w.read(v.h, func(entry *donburi.Entry) { Slot.Get(entry).Type.Store(int32(t)) })
}

func (v view) HeadPosition() (actor.Vec3, bool) {
	var pos actor.Vec3
	ok := v.w.read(v.h, func(entry *donburi.Entry) {
		pos = *Position.Get(entry)
		pos.Z += 1.7
	})
	return pos, ok
}
