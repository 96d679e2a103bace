package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

const _rosterLibraryFilepath = "./library/"

type Roster struct {
	Source     string
	Name       string                  `yaml:"name"`
	Player     bool                    `yaml:"player"`
	Groups     map[string]GroupDetails `yaml:"groups"`
	GroupOrder []string
}

// GroupDetails rates are per-frame probabilities.
type GroupDetails struct {
	Count         int     `yaml:"count"`
	Priority      int     `yaml:"priority"`
	Faction       string  `yaml:"faction"`
	Style         string  `yaml:"style,omitempty"`
	OffensiveMult float64 `yaml:"offensive_mult"`
	PowerAttack   float64 `yaml:"power_attack_rate"`
	Bash          float64 `yaml:"bash_rate"`
	Recover       float64 `yaml:"recover_rate"`
	Stagger       float64 `yaml:"stagger_rate"`
	Death         float64 `yaml:"death_rate"`
}

func loadRoster(name string) (Roster, error) {
	data, err := os.ReadFile(_rosterLibraryFilepath + name)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	roster := Roster{}
	if err = yaml.UnmarshalStrict(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("decode roster %s: %w", name, err)
	}
	if len(roster.Groups) == 0 {
		return Roster{}, fmt.Errorf("roster %s has no groups", name)
	}
	for groupName, g := range roster.Groups {
		if g.Count < 0 {
			return Roster{}, fmt.Errorf("roster %s: group %s has negative count", name, groupName)
		}
		if g.Faction == "" {
			return Roster{}, fmt.Errorf("roster %s: group %s has no faction", name, groupName)
		}
	}

	// spawn order follows priority, then name for stable output
	keys := make([]string, 0, len(roster.Groups))
	for k := range roster.Groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := roster.Groups[keys[i]].Priority, roster.Groups[keys[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	roster.GroupOrder = keys
	roster.Source = name
	return roster, nil
}

// Size returns the number of non-player combatants.
func (r *Roster) Size() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Count
	}
	return n
}

func (r *Roster) PrintInfo() {
	fmt.Printf("Roster: %s (%s) | combatants: %d | player: %v\n", r.Name, r.Source, r.Size(), r.Player)
	for _, groupName := range r.GroupOrder {
		g := r.Groups[groupName]
		fmt.Printf("Group: %s | Faction: %s | Count: %d | Style: %s x%.2f\n", groupName, g.Faction, g.Count, g.Style, g.OffensiveMult)
	}
}
