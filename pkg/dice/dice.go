// Package dice wraps a random source with the draws the game rules are
// written in: inclusive integer ranges, uniform floats, chances and samples.
package dice

import (
	"math/rand/v2"
)

// Source is the subset of *rand.Rand the game needs.
type Source interface {
	IntN(n int) int
	Float64() float64
}

type globalSource struct{}

func (globalSource) IntN(n int) int    { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

type Dice struct {
	src Source
}

// New returns dice backed by the runtime's global generator, which is safe
// for concurrent use.
func New() *Dice {
	return &Dice{src: globalSource{}}
}

// Seeded returns dice with a reproducible PCG stream. Not safe for
// concurrent use.
func Seeded(seed uint64) *Dice {
	return &Dice{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func WithSource(src Source) *Dice {
	return &Dice{src: src}
}

// IntRange returns an int in [lo, hi].
func (d *Dice) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + d.src.IntN(hi-lo+1)
}

// Int64Range returns an int64 in [lo, hi].
func (d *Dice) Int64Range(lo, hi int64) int64 {
	return int64(d.IntRange(int(lo), int(hi)))
}

// Uniform returns a float in [lo, hi).
func (d *Dice) Uniform(lo, hi float64) float64 {
	return lo + d.src.Float64()*(hi-lo)
}

func (d *Dice) Float64() float64 {
	return d.src.Float64()
}

// Chance reports true with probability p.
func (d *Dice) Chance(p float64) bool {
	return d.src.Float64() < p
}

// Pick returns an index in [0, n).
func (d *Dice) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return d.src.IntN(n)
}

// Sample returns k distinct indices drawn uniformly from [0, n).
func (d *Dice) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + d.src.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
