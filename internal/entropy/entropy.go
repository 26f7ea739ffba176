// Package entropy provides the random source used for scoring, fallback data
// and cosmetic analysis blocks. Tests seed it for reproducible output.
package entropy

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the narrow random contract the pipeline depends on.
type Source interface {
	// IntN returns a value in [0, n). n <= 0 yields 0.
	IntN(n int) int
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// Locked is a goroutine-safe Source backed by a PCG generator.
type Locked struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Locked source. A zero seed selects a time-based seed.
func New(seed uint64) *Locked {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Locked{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *Locked) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.IntN(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// Pick returns a random element of items. items must be non-empty.
func Pick[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}
