// Package effects implements the fire-and-forget audio/visual collaborators
// the perilous coordinator drives.
package effects

import (
	"time"

	"go.uber.org/zap"

	"PerilousSimulator/internal/actor"
	"PerilousSimulator/internal/perilous"
)

// HitArt is a visual effect placed at an actor's head.
type HitArt struct {
	Actor    actor.Handle
	Art      string
	Position actor.Vec3
	Duration float64
}

// VisualSink receives hit-art requests.
type VisualSink func(HitArt)

// Dispatcher routes coordinator effects to the visual sink, the sound bank
// and the animation speed manager. Any of them may be nil.
type Dispatcher struct {
	Visual VisualSink
	Sounds *SoundBank
	Speed  *AnimSpeed
	Logger *zap.Logger
}

var _ perilous.Effects = (*Dispatcher)(nil)

// DefaultCues returns the cue set the coordinator plays.
func DefaultCues() map[string]Cue {
	return map[string]Cue{
		perilous.SoundCue: {Freq: 880, Duration: 350 * time.Millisecond, Decay: 6},
	}
}

// LogSink writes hit-art requests to logger at debug level.
func LogSink(logger *zap.Logger) VisualSink {
	return func(fx HitArt) {
		logger.Debug("hit art",
			zap.String("actor", actor.Describe(fx.Actor)),
			zap.String("art", fx.Art),
			zap.Float32("x", fx.Position.X),
			zap.Float32("y", fx.Position.Y),
			zap.Float32("z", fx.Position.Z),
			zap.Float64("duration", fx.Duration))
	}
}

func (d *Dispatcher) HitArt(a actor.Actor, art string, duration float64) {
	if d.Visual == nil {
		return
	}
	pos, ok := a.HeadPosition()
	if !ok {
		return
	}
	d.Visual(HitArt{Actor: a.Handle(), Art: art, Position: pos, Duration: duration})
}

func (d *Dispatcher) Sound(a actor.Actor, sound string, volume float64) {
	if d.Sounds == nil {
		return
	}
	if !d.Sounds.Play(sound, volume) && d.Logger != nil {
		d.Logger.Debug("sound not played", zap.String("sound", sound), zap.Float64("volume", volume))
	}
}

func (d *Dispatcher) AnimSpeed(h actor.Handle, mult float64, dur time.Duration) {
	if d.Speed == nil {
		return
	}
	d.Speed.Set(h, mult, dur)
}
