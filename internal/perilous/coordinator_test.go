package perilous

import (
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"PerilousSimulator/internal/actor"
	"PerilousSimulator/internal/settings"
	"PerilousSimulator/internal/world"
)

type recordedEffects struct {
	mu     sync.Mutex
	arts   []string
	sounds []string
	speeds []time.Duration
}

func (r *recordedEffects) HitArt(_ actor.Actor, art string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arts = append(r.arts, art)
}

func (r *recordedEffects) Sound(_ actor.Actor, sound string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, sound)
}

func (r *recordedEffects) AnimSpeed(_ actor.Handle, _ float64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speeds = append(r.speeds, d)
}

type fixture struct {
	t     *testing.T
	world *world.World
	store *settings.Store
	coord *Coordinator
	fx    *recordedEffects
}

func alwaysPass() float64 { return 0 }
func neverPass() float64  { return 0.999999 }

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		world: world.New(),
		store: settings.NewStore(settings.Default()),
		fx:    &recordedEffects{},
	}
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithEffects(f.fx),
		WithDraw(alwaysPass),
	}
	coord, err := New(f.store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.coord = coord
	return f
}

func (f *fixture) npc(mult float64) actor.Actor {
	h := f.world.Spawn(world.Spec{InCombat: true, Style: &world.CombatStyle{Name: "test", OffensiveMult: mult}})
	return f.world.Actor(h)
}

func (f *fixture) attacker(target actor.Actor) actor.Actor {
	a := f.npc(1)
	f.world.Engage(a.Handle(), target.Handle())
	return a
}

func (f *fixture) snapshot() (map[actor.Handle]actor.Handle, map[actor.Handle]int) {
	return f.coord.Registry().Snapshot(), f.coord.Counter().Snapshot()
}

func (f *fixture) verify() {
	f.t.Helper()
	if err := f.coord.Verify(); err != nil {
		f.t.Fatalf("Verify: %v", err)
	}
}

func TestLifecycleStartEnd(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	a := f.attacker(target)

	if !f.coord.AttemptStart(a) {
		t.Fatal("AttemptStart should succeed with a forced draw")
	}
	if got := f.coord.Counter().Count(target.Handle()); got != 1 {
		t.Fatalf("TargetCounter[T] = %d, want 1", got)
	}
	if got, ok := f.coord.Registry().Lookup(a.Handle()); !ok || got != target.Handle() {
		t.Fatalf("AttackRegistry[A] = %v, %v", got, ok)
	}
	if a.AttackType() != actor.AttackRed {
		t.Fatalf("flag = %v, want red", a.AttackType())
	}
	f.verify()

	if !f.coord.End(a) {
		t.Fatal("End should retire the attack")
	}
	if f.coord.Registry().Contains(a.Handle()) {
		t.Fatal("AttackRegistry[A] still present")
	}
	if _, ok := f.coord.Counter().Snapshot()[target.Handle()]; ok {
		t.Fatal("TargetCounter[T] should be removed, not zero")
	}
	if a.AttackType() != actor.AttackNone {
		t.Fatalf("flag = %v, want none", a.AttackType())
	}
}

func TestStartPlaysCues(t *testing.T) {
	f := newFixture(t)
	a := f.attacker(f.npc(0))
	f.coord.AttemptStart(a)

	if want := []string{ArtRed, ArtYellow}; !reflect.DeepEqual(f.fx.arts, want) {
		t.Errorf("arts = %v, want %v", f.fx.arts, want)
	}
	if want := []string{SoundCue}; !reflect.DeepEqual(f.fx.sounds, want) {
		t.Errorf("sounds = %v, want %v", f.fx.sounds, want)
	}
	if want := []time.Duration{settings.Default().Attack.ChargeTime.Duration}; !reflect.DeepEqual(f.fx.speeds, want) {
		t.Errorf("speeds = %v, want %v", f.fx.speeds, want)
	}
}

func TestChargeTimeToggle(t *testing.T) {
	f := newFixture(t)
	s := settings.Default()
	s.Attack.ChargeTime.Enable = false
	f.store.Set(s)

	f.coord.AttemptStart(f.attacker(f.npc(0)))
	if len(f.fx.speeds) != 0 {
		t.Fatalf("animation speed modulated with charge time disabled: %v", f.fx.speeds)
	}
}

func TestEndIdempotent(t *testing.T) {
	f := newFixture(t)
	a := f.npc(1)

	for i := 0; i < 2; i++ {
		if f.coord.End(a) {
			t.Fatalf("End #%d on idle actor reported a retirement", i+1)
		}
		reg, cnt := f.snapshot()
		if len(reg) != 0 || len(cnt) != 0 {
			t.Fatalf("End #%d mutated maps: %v %v", i+1, reg, cnt)
		}
		if a.AttackType() != actor.AttackNone {
			t.Fatalf("End #%d left flag %v", i+1, a.AttackType())
		}
	}
}

func TestAtMostOneRecordPerAttacker(t *testing.T) {
	f := newFixture(t)
	first, second := f.npc(0), f.npc(0)
	a := f.attacker(first)

	f.coord.AttemptStart(a)
	f.world.Engage(a.Handle(), second.Handle())
	f.coord.AttemptStart(a)

	reg, cnt := f.snapshot()
	if len(reg) != 1 || reg[a.Handle()] != second.Handle() {
		t.Fatalf("registry = %v, want single record on second target", reg)
	}
	if cnt[first.Handle()] != 0 || cnt[second.Handle()] != 1 {
		t.Fatalf("counter = %v", cnt)
	}

	f.coord.Start(a, first.Handle())
	f.coord.Start(a, first.Handle())
	if got := f.coord.Counter().Count(first.Handle()); got != 1 {
		t.Fatalf("repeated Start double counted: %d", got)
	}
	f.verify()
}

func TestFailedAttemptStillEndsPrevious(t *testing.T) {
	draws := []float64{0, 0.999}
	var i int
	f := newFixture(t, WithDraw(func() float64 { v := draws[i]; i++; return v }))
	target := f.npc(0)
	a := f.npc(0.5)
	f.world.Engage(a.Handle(), target.Handle())

	if !f.coord.AttemptStart(a) {
		t.Fatal("first attempt should pass")
	}
	if f.coord.AttemptStart(a) {
		t.Fatal("second attempt should fail the roll")
	}
	if f.coord.IsAttacking(a.Handle()) || a.AttackType() != actor.AttackNone {
		t.Fatal("failed attempt should have ended the previous attack")
	}
	f.verify()
}

func TestCapEnforced(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	for i := 0; i < 3; i++ {
		if !f.coord.AttemptStart(f.attacker(target)) {
			t.Fatalf("attacker %d should start", i+1)
		}
	}
	regBefore, cntBefore := f.snapshot()
	if cntBefore[target.Handle()] != 3 {
		t.Fatalf("count = %d, want 3", cntBefore[target.Handle()])
	}

	a4 := f.attacker(target)
	if f.coord.AttemptStart(a4) {
		t.Fatal("fourth attacker must be capped")
	}
	regAfter, cntAfter := f.snapshot()
	if !reflect.DeepEqual(regBefore, regAfter) || !reflect.DeepEqual(cntBefore, cntAfter) {
		t.Fatalf("capped attempt mutated maps:\n%v -> %v\n%v -> %v", regBefore, regAfter, cntBefore, cntAfter)
	}
	if a4.AttackType() != actor.AttackNone {
		t.Fatalf("capped attacker flagged %v", a4.AttackType())
	}
}

func TestCapFollowsSettings(t *testing.T) {
	f := newFixture(t)
	s := settings.Default()
	s.MaxAttackers = 1
	f.store.Set(s)

	target := f.npc(0)
	if !f.coord.AttemptStart(f.attacker(target)) {
		t.Fatal("first attacker should start")
	}
	if f.coord.AttemptStart(f.attacker(target)) {
		t.Fatal("second attacker should be capped at 1")
	}
}

func TestPreconditionsReject(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) actor.Actor
	}{
		{"disabled", func(f *fixture) actor.Actor {
			s := settings.Default()
			s.Attack.Enable = false
			f.store.Set(s)
			return f.attacker(f.npc(0))
		}},
		{"player", func(f *fixture) actor.Actor {
			h := f.world.Spawn(world.Spec{Player: true, InCombat: true, Style: &world.CombatStyle{OffensiveMult: 1}})
			f.world.Engage(h, f.npc(0).Handle())
			return f.world.Actor(h)
		}},
		{"out of combat", func(f *fixture) actor.Actor {
			a := f.attacker(f.npc(0))
			f.world.Disengage(a.Handle())
			return a
		}},
		{"no target", func(f *fixture) actor.Actor {
			return f.npc(1)
		}},
		{"stunned", func(f *fixture) actor.Actor {
			a := f.attacker(f.npc(0))
			f.world.SetStagger(a.Handle(), world.StaggerData{Stunned: true})
			return a
		}},
		{"exhausted", func(f *fixture) actor.Actor {
			a := f.attacker(f.npc(0))
			f.world.SetStagger(a.Handle(), world.StaggerData{Exhausted: true})
			return a
		}},
		{"no combat style", func(f *fixture) actor.Actor {
			h := f.world.Spawn(world.Spec{InCombat: true})
			f.world.Engage(h, f.npc(0).Handle())
			return f.world.Actor(h)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			coord, err := New(f.store, WithEffects(f.fx), WithDraw(alwaysPass), WithStagger(f.world))
			if err != nil {
				t.Fatal(err)
			}
			f.coord = coord
			a := tt.setup(f)
			if f.coord.AttemptStart(a) {
				t.Fatal("AttemptStart should be rejected")
			}
			reg, cnt := f.snapshot()
			if len(reg) != 0 || len(cnt) != 0 {
				t.Fatalf("rejection mutated maps: %v %v", reg, cnt)
			}
			if len(f.fx.arts) != 0 {
				t.Fatalf("rejection played effects: %v", f.fx.arts)
			}
		})
	}
}

func TestStaggerIgnoredWithoutAPI(t *testing.T) {
	f := newFixture(t)
	a := f.attacker(f.npc(0))
	f.world.SetStagger(a.Handle(), world.StaggerData{Stunned: true, Exhausted: true})
	if !f.coord.AttemptStart(a) {
		t.Fatal("without a stagger API stun state must be ignored")
	}
}

func TestChance(t *testing.T) {
	f := newFixture(t)
	if got := Chance(f.npc(0.5), 0.6); got != 0.3 {
		t.Errorf("Chance = %v, want 0.3", got)
	}
	bare := f.world.Actor(f.world.Spawn(world.Spec{InCombat: true}))
	if got := Chance(bare, 10); got != 0 {
		t.Errorf("Chance without style = %v, want 0", got)
	}
}

func TestRollRespectsChance(t *testing.T) {
	f := newFixture(t, WithDraw(neverPass))
	a := f.npc(0.5)
	f.world.Engage(a.Handle(), f.npc(0).Handle())
	if f.coord.AttemptStart(a) {
		t.Fatal("draw above chance should fail")
	}
	f = newFixture(t, WithDraw(func() float64 { return 1 }))
	if !f.coord.AttemptStart(f.attacker(f.npc(0))) {
		t.Fatal("draw equal to chance should pass")
	}
}

func TestBashIsolation(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	f.coord.AttemptStart(f.attacker(target))
	regBefore, cntBefore := f.snapshot()

	b := f.npc(1)
	if !f.coord.Bash(b) {
		t.Fatal("Bash should succeed")
	}
	if b.AttackType() != actor.AttackBlue || !f.coord.IsBashing(b) {
		t.Fatalf("flag = %v, want blue", b.AttackType())
	}
	regAfter, cntAfter := f.snapshot()
	if !reflect.DeepEqual(regBefore, regAfter) || !reflect.DeepEqual(cntBefore, cntAfter) {
		t.Fatal("Bash mutated attack tracking")
	}
	if f.coord.IsAttacking(b.Handle()) {
		t.Fatal("bashing actor reported as tracked attacker")
	}
	if _, ok := f.coord.AttackTarget(b); ok {
		t.Fatal("bashing actor has no attack target")
	}
}

func TestBashPreconditions(t *testing.T) {
	f := newFixture(t)
	player := f.world.Actor(f.world.Spawn(world.Spec{Player: true, InCombat: true}))
	idle := f.world.Actor(f.world.Spawn(world.Spec{}))
	if f.coord.Bash(player) || f.coord.Bash(idle) {
		t.Fatal("player and out-of-combat actors cannot bash")
	}
	s := settings.Default()
	s.Bash.Enable = false
	f.store.Set(s)
	if f.coord.Bash(f.npc(1)) {
		t.Fatal("bash disabled")
	}
}

func TestEndClearsBash(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(obs)))
	b := f.npc(1)
	f.coord.Bash(b)
	if f.coord.End(b) {
		t.Fatal("ending a bash retires no tracked attack")
	}
	if b.AttackType() != actor.AttackNone {
		t.Fatalf("flag = %v, want none", b.AttackType())
	}
	if logs.Len() != 0 {
		t.Fatalf("ending a bash is not an anomaly: %v", logs.All())
	}
}

func TestBashOverAttackThenEndBash(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	a := f.attacker(target)
	f.coord.AttemptStart(a)
	f.coord.Bash(a)

	if !f.coord.EndBash(a) {
		t.Fatal("EndBash should clear a bash")
	}
	if f.coord.IsAttacking(a.Handle()) || f.coord.Counter().Len() != 0 {
		t.Fatal("overwritten tracked attack should be retired with the bash")
	}
	if f.coord.EndBash(a) {
		t.Fatal("EndBash on an idle actor reports false")
	}
	f.verify()
}

func TestStartOverwritesBash(t *testing.T) {
	f := newFixture(t)
	a := f.attacker(f.npc(0))
	f.coord.Bash(a)
	if !f.coord.AttemptStart(a) {
		t.Fatal("AttemptStart should succeed")
	}
	if a.AttackType() != actor.AttackRed {
		t.Fatalf("flag = %v, want red", a.AttackType())
	}
}

func TestQueryConsistency(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	a := f.attacker(target)

	f.coord.AttemptStart(a)
	if !f.coord.IsAttacking(a.Handle()) {
		t.Fatal("IsAttacking false after Start")
	}
	if got, ok := f.coord.AttackTarget(a); !ok || got != target.Handle() {
		t.Fatalf("AttackTarget = %v, %v", got, ok)
	}
	f.coord.End(a)
	if f.coord.IsAttacking(a.Handle()) {
		t.Fatal("IsAttacking true after End")
	}
	if _, ok := f.coord.AttackTarget(a); ok {
		t.Fatal("AttackTarget found after End")
	}
}

func TestFlagWithoutRecordIsAnomaly(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(obs)))
	a := f.npc(1)
	a.SetAttackType(actor.AttackRed)

	if _, ok := f.coord.AttackTarget(a); ok {
		t.Fatal("AttackTarget should report not attacking")
	}
	if f.coord.End(a) {
		t.Fatal("End should return false on anomaly")
	}
	if a.AttackType() != actor.AttackNone {
		t.Fatal("End must clear the flag even on anomaly")
	}
	if got := logs.FilterMessage("perilous flag set but attacker is not tracked").Len(); got != 2 {
		t.Fatalf("anomaly logged %d times, want 2", got)
	}
}

func TestSequentialHistoryKeepsInvariant(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))
	var targets, attackers []actor.Actor
	for i := 0; i < 4; i++ {
		targets = append(targets, f.npc(0))
	}
	for i := 0; i < 12; i++ {
		attackers = append(attackers, f.npc(1))
	}

	for step := 0; step < 2000; step++ {
		a := attackers[rng.Intn(len(attackers))]
		switch rng.Intn(4) {
		case 0, 1:
			f.world.Engage(a.Handle(), targets[rng.Intn(len(targets))].Handle())
			f.coord.AttemptStart(a)
		case 2:
			f.coord.End(a)
		case 3:
			f.coord.Bash(a)
		}
		f.verify()
		for target, n := range f.coord.Counter().Snapshot() {
			if n > settings.Default().MaxAttackers {
				t.Fatalf("step %d: target %s has %d attackers", step, actor.Describe(target), n)
			}
		}
	}
}

func TestConcurrentAttemptsConverge(t *testing.T) {
	f := newFixture(t, WithDraw(rand.Float64), WithLogger(zap.NewNop()))
	var targets, attackers []actor.Actor
	for i := 0; i < 3; i++ {
		targets = append(targets, f.npc(0))
	}
	for i := 0; i < 32; i++ {
		attackers = append(attackers, f.attacker(targets[i%len(targets)]))
	}

	var wg sync.WaitGroup
	for i, a := range attackers {
		wg.Add(1)
		go func(i int, a actor.Actor) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			for j := 0; j < 200; j++ {
				switch rng.Intn(3) {
				case 0:
					f.coord.AttemptStart(a)
				case 1:
					f.coord.End(a)
				case 2:
					f.coord.Bash(a)
				}
				_ = f.coord.IsAttacking(a.Handle())
			}
		}(i, a)
	}
	wg.Wait()
	f.verify()

	for _, a := range attackers {
		f.coord.End(a)
	}
	reg, cnt := f.snapshot()
	if len(reg) != 0 || len(cnt) != 0 {
		t.Fatalf("End on every actor left %v %v", reg, cnt)
	}
}

func TestSweepRetiresStaleRecords(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	doomed := f.attacker(target)
	survivor := f.attacker(target)
	other := f.npc(0)
	orphaned := f.attacker(other)
	for _, a := range []actor.Actor{doomed, survivor, orphaned} {
		f.coord.AttemptStart(a)
	}

	f.world.Despawn(doomed.Handle())
	f.world.Despawn(other.Handle())

	if got := f.coord.Sweep(f.world); got != 2 {
		t.Fatalf("Sweep retired %d, want 2", got)
	}
	if f.coord.Counter().Count(target.Handle()) != 1 {
		t.Fatalf("counter = %v", f.coord.Counter().Snapshot())
	}
	if orphaned.AttackType() != actor.AttackNone {
		t.Fatal("attacker of a destroyed target should be unflagged")
	}
	if !f.coord.IsAttacking(survivor.Handle()) {
		t.Fatal("valid attack swept")
	}
	f.verify()

	// A stale handle behaves as not found.
	if f.coord.End(doomed) {
		t.Fatal("End on a destroyed actor reported a retirement")
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.coord.AttemptStart(f.attacker(f.npc(0)))
	f.coord.Reset()
	reg, cnt := f.snapshot()
	if len(reg) != 0 || len(cnt) != 0 {
		t.Fatal("Reset left tracking")
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	f := newFixture(t)
	target := f.npc(0)
	f.coord.Counter().Increment(target.Handle())
	if f.coord.Verify() == nil {
		t.Fatal("counter without registry record should fail Verify")
	}
	f.coord.Reset()
	f.coord.Registry().Insert(f.npc(0).Handle(), target.Handle())
	if f.coord.Verify() == nil {
		t.Fatal("registry record without counter entry should fail Verify")
	}
}
