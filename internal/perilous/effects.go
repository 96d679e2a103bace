package perilous

import (
	"time"

	"PerilousSimulator/internal/actor"
)

// Names of the cues played by the coordinator.
const (
	ArtYellow = "perilous_yellow"
	ArtRed    = "perilous_red"
	ArtBlue   = "perilous_blue"
	SoundCue  = "perilous"

	hitArtDuration = 1.5
)

// Effects plays audio/visual feedback. Calls are fire-and-forget and are
// always made outside the registry and counter locks.
type Effects interface {
	// HitArt triggers a named visual effect at the actor's head.
	HitArt(a actor.Actor, art string, duration float64)
	// Sound plays a named sound at the actor.
	Sound(a actor.Actor, sound string, volume float64)
	// AnimSpeed scales the actor's animation playback speed for d.
	AnimSpeed(h actor.Handle, mult float64, d time.Duration)
}

type nopEffects struct{}

func (nopEffects) HitArt(actor.Actor, string, float64)            {}
func (nopEffects) Sound(actor.Actor, string, float64)             {}
func (nopEffects) AnimSpeed(actor.Handle, float64, time.Duration) {}

func playAttackArt(fx Effects, a actor.Actor, t actor.AttackType) {
	switch t {
	case actor.AttackYellow:
		fx.HitArt(a, ArtYellow, hitArtDuration)
	case actor.AttackRed:
		fx.HitArt(a, ArtRed, hitArtDuration)
		fx.HitArt(a, ArtYellow, hitArtDuration)
	case actor.AttackBlue:
		fx.HitArt(a, ArtBlue, hitArtDuration)
	}
}
