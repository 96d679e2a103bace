package main

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PerilousSimulator/internal/actor"
	"PerilousSimulator/internal/effects"
	"PerilousSimulator/internal/perilous"
	"PerilousSimulator/internal/settings"
	"PerilousSimulator/internal/world"
)

const frameTime = time.Second / 30

type member struct {
	group  string
	handle actor.Handle
}

// Skirmish drives one session: a world full of combatants and the
// coordinator tracking their perilous attacks.
type Skirmish struct {
	roster   Roster
	world    *world.World
	coord    *perilous.Coordinator
	speed    *effects.AnimSpeed
	settings *settings.Store
	logger   *zap.Logger

	player  actor.Handle
	members []member
	clock   atomic.Int64

	stats SkirmishStats
}

type SkirmishStats struct {
	Frames     int
	Started    atomic.Int64
	Ended      atomic.Int64
	Bashes     atomic.Int64
	Deaths     int
	Swept      int
	Unverified int
	// PeakPerFrame is the highest per-target attacker count after each frame.
	PeakPerFrame []int
}

type skirmishConfig struct {
	Roster   Roster
	Settings *settings.Store
	Logger   *zap.Logger
	Sounds   *effects.SoundBank
	Options  []perilous.Option
}

func newSkirmish(cfg skirmishConfig) (*Skirmish, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sk := &Skirmish{
		roster:   cfg.Roster,
		world:    world.New(),
		settings: cfg.Settings,
		logger:   logger,
	}
	sk.speed = effects.NewAnimSpeed(sk.now)
	fx := &effects.Dispatcher{
		Visual: effects.LogSink(logger),
		Sounds: cfg.Sounds,
		Speed:  sk.speed,
		Logger: logger,
	}
	opts := append([]perilous.Option{
		perilous.WithLogger(logger),
		perilous.WithEffects(fx),
		perilous.WithStagger(sk.world),
	}, cfg.Options...)
	coord, err := perilous.New(cfg.Settings, opts...)
	if err != nil {
		return nil, err
	}
	sk.coord = coord

	sk.player = actor.Null
	if sk.roster.Player {
		sk.player = sk.world.Spawn(world.Spec{Player: true, InCombat: true})
	}
	for _, groupName := range sk.roster.GroupOrder {
		for i := 0; i < sk.roster.Groups[groupName].Count; i++ {
			sk.members = append(sk.members, member{group: groupName, handle: sk.spawn(groupName)})
		}
	}
	return sk, nil
}

func (sk *Skirmish) now() time.Time {
	return time.Unix(0, sk.clock.Load())
}

func (sk *Skirmish) spawn(groupName string) actor.Handle {
	g := sk.roster.Groups[groupName]
	var style *world.CombatStyle
	if g.Style != "" {
		style = &world.CombatStyle{Name: g.Style, OffensiveMult: g.OffensiveMult}
	}
	return sk.world.Spawn(world.Spec{
		InCombat: true,
		Style:    style,
		Position: actor.Vec3{X: rand.Float32() * 50, Y: rand.Float32() * 50},
	})
}

// enemies lists live opponents per faction for the coming frame.
func (sk *Skirmish) enemies() map[string][]actor.Handle {
	byFaction := make(map[string][]actor.Handle)
	for _, m := range sk.members {
		f := sk.roster.Groups[m.group].Faction
		byFaction[f] = append(byFaction[f], m.handle)
	}
	out := make(map[string][]actor.Handle, len(byFaction))
	for faction := range byFaction {
		var foes []actor.Handle
		if sk.player != actor.Null {
			foes = append(foes, sk.player)
		}
		for other, handles := range byFaction {
			if other != faction {
				foes = append(foes, handles...)
			}
		}
		out[faction] = foes
	}
	return out
}

// Frame advances the simulation by one tick. Every combatant updates
// concurrently; deaths, sweeping and verification run after the fan-in.
func (sk *Skirmish) Frame(ctx context.Context) error {
	sk.clock.Add(int64(frameTime))
	foes := sk.enemies()

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range sk.members {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sk.update(m, foes[sk.roster.Groups[m.group].Faction])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sk.cull()
	sk.stats.Swept += sk.coord.Sweep(sk.world)
	sk.expireCharges()
	if err := sk.coord.Verify(); err != nil {
		sk.stats.Unverified++
		sk.logger.Warn("perilous tracking out of sync", zap.Error(err))
	}
	sk.stats.PeakPerFrame = append(sk.stats.PeakPerFrame, maxValue(sk.coord.Counter().Snapshot()))
	sk.stats.Frames++
	return nil
}

func (sk *Skirmish) update(m member, foes []actor.Handle) {
	g := sk.roster.Groups[m.group]
	a := sk.world.Actor(m.handle)

	if target, ok := a.CombatTarget(); (!ok || !sk.world.Valid(target)) && len(foes) > 0 {
		sk.world.Engage(m.handle, foes[rand.Intn(len(foes))])
	}
	sk.world.SetStagger(m.handle, world.StaggerData{
		Exhausted: rollChance(g.Stagger / 2),
		Stunned:   rollChance(g.Stagger / 2),
	})

	switch {
	case rollChance(g.PowerAttack):
		if sk.coord.AttemptStart(a) {
			sk.stats.Started.Add(1)
		}
	case rollChance(g.Bash):
		if sk.coord.Bash(a) {
			sk.stats.Bashes.Add(1)
		}
	case rollChance(g.Recover):
		if sk.coord.End(a) {
			sk.stats.Ended.Add(1)
		}
	}
}

// cull despawns the fallen and fills their place with fresh combatants.
// Tracked attacks involving the fallen are left for Sweep.
func (sk *Skirmish) cull() {
	for i, m := range sk.members {
		if !rollChance(sk.roster.Groups[m.group].Death) {
			continue
		}
		sk.world.Despawn(m.handle)
		sk.members[i].handle = sk.spawn(m.group)
		sk.stats.Deaths++
	}
}

func (sk *Skirmish) expireCharges() {
	expired := sk.speed.Expire()
	if !sk.settings.Get().Bash.ClearOnChargeEnd {
		return
	}
	for _, h := range expired {
		if sk.world.Valid(h) {
			sk.coord.EndBash(sk.world.Actor(h))
		}
	}
}

// Close ends every remaining attack and drops tracking for the session.
func (sk *Skirmish) Close() {
	for _, m := range sk.members {
		sk.coord.End(sk.world.Actor(m.handle))
	}
	sk.coord.Reset()
}
