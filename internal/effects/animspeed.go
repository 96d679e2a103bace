package effects

import (
	"sync"
	"time"

	"PerilousSimulator/internal/actor"
)

type speedWindow struct {
	mult  float64
	until time.Time
}

// AnimSpeed keeps temporary animation playback multipliers per actor. A new
// window for an actor replaces the old one.
type AnimSpeed struct {
	mu      sync.Mutex
	windows map[actor.Handle]speedWindow
	now     func() time.Time
}

func NewAnimSpeed(now func() time.Time) *AnimSpeed {
	if now == nil {
		now = time.Now
	}
	return &AnimSpeed{windows: make(map[actor.Handle]speedWindow), now: now}
}

// Set scales h's animation speed by mult for d.
func (m *AnimSpeed) Set(h actor.Handle, mult float64, d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[h] = speedWindow{mult: mult, until: m.now().Add(d)}
}

// Multiplier returns h's current speed multiplier, 1 when unmodified.
func (m *AnimSpeed) Multiplier(h actor.Handle) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[h]
	if !ok || !m.now().Before(w.until) {
		return 1
	}
	return w.mult
}

// Expire removes every elapsed window and returns the affected actors.
func (m *AnimSpeed) Expire() []actor.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var expired []actor.Handle
	for h, w := range m.windows {
		if !now.Before(w.until) {
			delete(m.windows, h)
			expired = append(expired, h)
		}
	}
	return expired
}

// Len returns the number of open windows
func (m *AnimSpeed) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
