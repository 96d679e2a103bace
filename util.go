package main

import (
	"math/rand"
	"sort"
)

func rollChance(p float64) bool {
	if p <= 0 {
		return false
	}
	return rand.Float64() < p
}

// percentile returns the value below which a fraction p of values fall.
func percentile(values []int, p float64) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	index := int(p * float64(len(sorted)))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func maxValue[K comparable](m map[K]int) int {
	best := 0
	for _, v := range m {
		if v > best {
			best = v
		}
	}
	return best
}
