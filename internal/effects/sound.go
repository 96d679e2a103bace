package effects

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	beepfx "github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(48000)

// Cue describes a synthesised sound.
type Cue struct {
	Freq     float64
	Duration time.Duration
	Decay    float64
}

// SoundBank synthesises named cues and mixes them. It can be pulled by a
// host audio pipeline through Stream or attached to the speaker.
type SoundBank struct {
	mu       sync.Mutex
	mixer    *beep.Mixer
	cues     map[string]Cue
	attached bool
}

// NewSoundBank creates a bank with the given cues
func NewSoundBank(cues map[string]Cue) *SoundBank {
	sb := &SoundBank{
		mixer: &beep.Mixer{},
		cues:  make(map[string]Cue, len(cues)),
	}
	for name, cue := range cues {
		sb.cues[name] = cue
	}
	return sb
}

// Attach starts speaker output of the bank's mixer.
func (sb *SoundBank) Attach() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.attached {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(beep.StreamerFunc(sb.Stream))
	sb.attached = true
	return nil
}

// Play queues cue name at volume, a linear gain where 1 is unchanged.
// Unknown cues and non-positive volumes are ignored.
func (sb *SoundBank) Play(name string, volume float64) bool {
	cue, ok := sb.cues[name]
	if !ok || volume <= 0 {
		return false
	}
	s := &beepfx.Volume{
		Streamer: beep.Take(sampleRate.N(cue.Duration), newTone(cue)),
		Base:     2,
		Volume:   math.Log2(volume),
	}
	sb.mu.Lock()
	sb.mixer.Add(s)
	sb.mu.Unlock()
	return true
}

// Playing returns the number of cues still in the mixer.
func (sb *SoundBank) Playing() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.mixer.Len()
}

// Stream implements beep.Streamer over the mixed cues.
func (sb *SoundBank) Stream(samples [][2]float64) (int, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.mixer.Stream(samples)
}

// Advance mixes d worth of samples and discards them, for headless hosts
// with no device pulling the bank.
func (sb *SoundBank) Advance(d time.Duration) {
	buf := make([][2]float64, 512)
	for n := sampleRate.N(d); n > 0; {
		chunk := buf
		if n < len(chunk) {
			chunk = chunk[:n]
		}
		got, ok := sb.Stream(chunk)
		if !ok || got == 0 {
			return
		}
		n -= got
	}
}

// Close drops every queued cue.
func (sb *SoundBank) Close() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.mixer.Clear()
}

// tone is a sine with exponential decay
type tone struct {
	cue Cue
	pos int
}

func newTone(cue Cue) *tone {
	return &tone{cue: cue}
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		sec := float64(t.pos) / float64(sampleRate)
		v := math.Sin(2*math.Pi*t.cue.Freq*sec) * math.Exp(-t.cue.Decay*sec) * 0.3
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }
