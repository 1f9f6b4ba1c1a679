// Package rng provides the seeded random source shared by the tests of a run.
package rng

import (
	"math/rand"

	"github.com/iamshnoo/soc-bias/ports"
)

// Seeded is a RandomState over a single *rand.Rand. It is not safe for
// concurrent use; each run owns its own.
type Seeded struct {
	r *rand.Rand
}

var _ ports.RandomState = (*Seeded)(nil)

// NewSeeded creates a random state seeded once for a whole run
func NewSeeded(seed int64) *Seeded {
	return &Seeded{r: rand.New(rand.NewSource(seed))}
}

func (s *Seeded) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}
