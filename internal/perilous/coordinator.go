// Package perilous coordinates the perilous attack state of non-player
// combatants.
//
// A tracked attack (flag Red) is recorded in a Registry keyed by attacker and
// counted per target in a Counter, which caps how many attackers may gang up
// on one victim. A bash (flag Blue) only sets the flag. The two maps are
// locked independently and never together, so they agree only at rest
// between operations.
package perilous

import (
	"fmt"
	"math/rand"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"PerilousSimulator/internal/actor"
	"PerilousSimulator/internal/settings"
)

// Coordinator owns the attack registry and target counter for one session.
type Coordinator struct {
	settings *settings.Store
	registry *Registry
	counter  *Counter
	gate     Gate
	effects  Effects
	logger   *zap.Logger
	meter    metric.Meter
	metrics  *metrics
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.logger = l } }

func WithEffects(fx Effects) Option { return func(c *Coordinator) { c.effects = fx } }

// WithStagger installs the optional stun/exhaustion predicate.
func WithStagger(api actor.StaggerAPI) Option { return func(c *Coordinator) { c.gate.stagger = api } }

func WithMeter(m metric.Meter) Option { return func(c *Coordinator) { c.meter = m } }

// WithDraw replaces the uniform [0,1) source used by the chance roll.
func WithDraw(draw func() float64) Option { return func(c *Coordinator) { c.gate.draw = draw } }

// WithRegistry injects the attack registry.
func WithRegistry(r *Registry) Option { return func(c *Coordinator) { c.registry = r } }

// WithCounter injects the target counter.
func WithCounter(n *Counter) Option { return func(c *Coordinator) { c.counter = n } }

// New creates a Coordinator reading its configuration from store.
func New(store *settings.Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		store = settings.NewStore(settings.Default())
	}
	c := &Coordinator{settings: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.counter == nil {
		c.counter = NewCounter()
	}
	if c.effects == nil {
		c.effects = nopEffects{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.gate.stagger == nil {
		c.gate.stagger = actor.NoStagger{}
	}
	if c.gate.draw == nil {
		c.gate.draw = rand.Float64
	}
	c.gate.counter = c.counter

	m, err := newMetrics(c.meter)
	if err != nil {
		return nil, fmt.Errorf("perilous metrics: %w", err)
	}
	c.metrics = m
	return c, nil
}

// Registry exposes the attack registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Counter exposes the target counter.
func (c *Coordinator) Counter() *Counter { return c.counter }

// AttemptStart tries to put a into a tracked perilous attack against its
// current combat target. Any previous tracked attack of a is ended first,
// whether or not the new one starts.
func (c *Coordinator) AttemptStart(a actor.Actor) bool {
	s := c.settings.Get()
	target, ok := c.gate.Admit(a, s)
	if !ok {
		return false
	}

	c.End(a)

	if !c.gate.Roll(a, s) {
		c.metrics.reject("chance")
		return false
	}
	if !c.gate.UnderCap(target, s) {
		c.metrics.reject("cap")
		c.logger.Debug("perilous attack capped",
			zap.String("attacker", actor.Describe(a.Handle())),
			zap.String("target", actor.Describe(target)),
			zap.Int("max_attackers", s.MaxAttackers))
		return false
	}
	c.start(a, target, s)
	return true
}

// Start puts a into a tracked perilous attack against target without any
// eligibility checks. A previous tracked attack of a is ended first.
func (c *Coordinator) Start(a actor.Actor, target actor.Handle) {
	c.End(a)
	c.start(a, target, c.settings.Get())
}

func (c *Coordinator) start(a actor.Actor, target actor.Handle, s settings.Settings) {
	h := a.Handle()
	c.counter.Increment(target)
	c.registry.Insert(h, target)

	a.SetAttackType(actor.AttackRed)
	c.metrics.add(c.metrics.started)
	c.logger.Debug("perilous attack started",
		zap.String("attacker", actor.Describe(h)),
		zap.String("target", actor.Describe(target)))

	playAttackArt(c.effects, a, actor.AttackRed)
	c.effects.Sound(a, SoundCue, s.Attack.SoundVolume)
	if s.Attack.ChargeTime.Enable {
		c.effects.AnimSpeed(h, s.Attack.ChargeTime.Multiplier, s.Attack.ChargeTime.Duration)
	}
}

// End retires a's tracked perilous attack, if any, and always leaves a's
// flag at AttackNone. It is safe to call at any time and reports whether a
// tracked attack was retired.
func (c *Coordinator) End(a actor.Actor) bool {
	h := a.Handle()
	prev := a.AttackType()
	a.SetAttackType(actor.AttackNone)

	target, ok := c.resolve(h, prev)
	if !ok {
		return false
	}
	// A concurrent End may have retired the record since the lookup.
	if _, removed := c.registry.Take(h); !removed {
		return false
	}
	c.counter.Decrement(target)

	c.metrics.add(c.metrics.ended)
	c.logger.Debug("perilous attack ended",
		zap.String("attacker", actor.Describe(h)),
		zap.String("target", actor.Describe(target)))
	return true
}

// Bash flags a as performing a perilous bash. Bashes are never tracked or
// capped.
func (c *Coordinator) Bash(a actor.Actor) bool {
	s := c.settings.Get()
	if !s.Bash.Enable {
		return false
	}
	if a.IsPlayer() || !a.IsInCombat() {
		return false
	}
	playAttackArt(c.effects, a, actor.AttackBlue)
	c.effects.Sound(a, SoundCue, s.Attack.SoundVolume)
	if s.Bash.ChargeTime.Enable {
		c.effects.AnimSpeed(a.Handle(), s.Bash.ChargeTime.Multiplier, s.Bash.ChargeTime.Duration)
	}
	a.SetAttackType(actor.AttackBlue)
	c.metrics.add(c.metrics.bashed)
	return true
}

// EndBash clears a bash flag. A tracked attack that the bash overwrote is
// retired with it. Reports whether a was bashing.
func (c *Coordinator) EndBash(a actor.Actor) bool {
	if a.AttackType() != actor.AttackBlue {
		return false
	}
	c.End(a)
	return true
}

// IsAttacking reports whether h has a tracked attack in the registry.
func (c *Coordinator) IsAttacking(h actor.Handle) bool {
	return c.registry.Contains(h)
}

// AttackTarget returns the target of a's tracked attack.
func (c *Coordinator) AttackTarget(a actor.Actor) (actor.Handle, bool) {
	return c.resolve(a.Handle(), a.AttackType())
}

// IsBashing reports whether a's flag is AttackBlue.
func (c *Coordinator) IsBashing(a actor.Actor) bool {
	return a.AttackType() == actor.AttackBlue
}

// resolve looks up h in the registry given its flag. A Red flag without a
// record is an anomaly; a Blue flag without one is an ordinary bash.
func (c *Coordinator) resolve(h actor.Handle, flag actor.AttackType) (actor.Handle, bool) {
	if flag == actor.AttackNone {
		return actor.Null, false
	}
	target, ok := c.registry.Lookup(h)
	if ok {
		return target, true
	}
	if flag != actor.AttackBlue {
		c.metrics.add(c.metrics.anomaly)
		c.logger.Warn("perilous flag set but attacker is not tracked",
			zap.String("attacker", actor.Describe(h)),
			zap.Stringer("flag", flag))
	}
	return actor.Null, false
}

// Resolver maps handles back to live actors.
type Resolver interface {
	Valid(h actor.Handle) bool
	Actor(h actor.Handle) actor.Actor
}

// Sweep retires every tracked attack whose attacker or target is no longer
// valid and returns how many were retired. Surviving attackers have their
// flag cleared.
func (c *Coordinator) Sweep(r Resolver) int {
	retired := 0
	for attacker, target := range c.registry.Snapshot() {
		attackerOK := r.Valid(attacker)
		if attackerOK && r.Valid(target) {
			continue
		}
		if _, ok := c.registry.Take(attacker); !ok {
			continue
		}
		c.counter.Decrement(target)
		if attackerOK {
			r.Actor(attacker).SetAttackType(actor.AttackNone)
		}
		c.metrics.add(c.metrics.ended)
		retired++
	}
	if retired > 0 {
		c.logger.Debug("swept stale perilous attacks", zap.Int("retired", retired))
	}
	return retired
}

// Reset drops all tracking. Called at session teardown.
func (c *Coordinator) Reset() {
	c.registry.Clear()
	c.counter.Clear()
}

// Verify checks that every counter entry equals the number of registry
// records naming that target. Only meaningful while no operation is in
// flight.
func (c *Coordinator) Verify() error {
	want := make(map[actor.Handle]int)
	for _, target := range c.registry.Snapshot() {
		want[target]++
	}
	got := c.counter.Snapshot()

	var err error
	for target, n := range got {
		if n <= 0 {
			err = multierr.Append(err, fmt.Errorf("target %s has stored count %d", actor.Describe(target), n))
			continue
		}
		if want[target] != n {
			err = multierr.Append(err, fmt.Errorf("target %s counted %d, registry has %d", actor.Describe(target), n, want[target]))
		}
	}
	for target, n := range want {
		if _, ok := got[target]; !ok {
			err = multierr.Append(err, fmt.Errorf("target %s missing from counter, registry has %d", actor.Describe(target), n))
		}
	}
	return err
}
