// Package settings loads the perilous feature configuration.
package settings

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// MaxAttackersLimit bounds the configurable attacker cap.
const MaxAttackersLimit = 64

type Settings struct {
	Attack       Attack `yaml:"attack" envPrefix:"ATTACK_"`
	Bash         Bash   `yaml:"bash" envPrefix:"BASH_"`
	MaxAttackers int    `yaml:"max_attackers" env:"MAX_ATTACKERS"`
}

type Attack struct {
	Enable           bool       `yaml:"enable" env:"ENABLE"`
	ChanceMultiplier float64    `yaml:"chance_multiplier" env:"CHANCE_MULTIPLIER"`
	ChargeTime       ChargeTime `yaml:"charge_time" envPrefix:"CHARGE_TIME_"`
	SoundVolume      float64    `yaml:"sound_volume" env:"SOUND_VOLUME"`
}

type Bash struct {
	Enable     bool       `yaml:"enable" env:"ENABLE"`
	ChargeTime ChargeTime `yaml:"charge_time" envPrefix:"CHARGE_TIME_"`
	// ClearOnChargeEnd clears the bash flag when its animation-speed window
	// expires. When false only End or a later Start clear it.
	ClearOnChargeEnd bool `yaml:"clear_on_charge_end" env:"CLEAR_ON_CHARGE_END"`
}

// ChargeTime scales animation playback speed for Duration.
type ChargeTime struct {
	Enable     bool          `yaml:"enable" env:"ENABLE"`
	Multiplier float64       `yaml:"multiplier" env:"MULTIPLIER"`
	Duration   time.Duration `yaml:"duration" env:"DURATION"`
}

// Default returns the shipped configuration.
func Default() Settings {
	return Settings{
		Attack: Attack{
			Enable:           true,
			ChanceMultiplier: 1,
			ChargeTime:       ChargeTime{Enable: true, Multiplier: 0.5, Duration: 500 * time.Millisecond},
			SoundVolume:      1,
		},
		Bash: Bash{
			Enable:     true,
			ChargeTime: ChargeTime{Enable: true, Multiplier: 0.5, Duration: 300 * time.Millisecond},
		},
		MaxAttackers: 3,
	}
}

// Load reads path over the defaults, then applies PERILOUS_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(data, &s); err != nil {
			return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&s, env.Options{Prefix: "PERILOUS_"}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports every out-of-range field.
func (s Settings) Validate() error {
	var err error
	if s.Attack.ChanceMultiplier < 0 {
		err = multierr.Append(err, fmt.Errorf("attack.chance_multiplier must be >= 0, got %v", s.Attack.ChanceMultiplier))
	}
	if s.Attack.SoundVolume < 0 {
		err = multierr.Append(err, fmt.Errorf("attack.sound_volume must be >= 0, got %v", s.Attack.SoundVolume))
	}
	err = multierr.Append(err, s.Attack.ChargeTime.validate("attack.charge_time"))
	err = multierr.Append(err, s.Bash.ChargeTime.validate("bash.charge_time"))
	if s.MaxAttackers < 1 || s.MaxAttackers > MaxAttackersLimit {
		err = multierr.Append(err, fmt.Errorf("max_attackers must be in [1,%d], got %d", MaxAttackersLimit, s.MaxAttackers))
	}
	return err
}

func (c ChargeTime) validate(name string) error {
	var err error
	if c.Multiplier <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s.multiplier must be > 0, got %v", name, c.Multiplier))
	}
	if c.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("%s.duration must be >= 0, got %v", name, c.Duration))
	}
	return err
}

// Store publishes the current settings to concurrent readers.
type Store struct {
	current atomic.Pointer[Settings]
}

func NewStore(s Settings) *Store {
	st := &Store{}
	st.Set(s)
	return st
}

// Get returns the current snapshot.
func (st *Store) Get() Settings {
	return *st.current.Load()
}

// Set replaces the snapshot.
func (st *Store) Set(s Settings) {
	st.current.Store(&s)
}
