// Package seed produces the hash seed shared by parallel test workers.
//
// pytest-xdist workers collect tests independently; with hash randomization
// left to each interpreter they can disagree on collection order, so one
// seed is drawn up front and exported before any worker starts.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
)

// EnvVar is the variable the Python interpreter reads its hash seed from.
const EnvVar = "PYTHONHASHSEED"

const (
	// Min and Max bound every generated seed, inclusive.
	Min Seed = 1
	Max Seed = math.MaxUint32
)

// Seed is a hash seed in [Min, Max].
type Seed uint32

// String renders the seed in decimal.
func (s Seed) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Environ returns the seed as a KEY=VALUE pair.
func (s Seed) Environ() string {
	return EnvVar + "=" + s.String()
}

// Export sets the seed in the current process environment so every child
// process inherits it.
func (s Seed) Export() error {
	if err := os.Setenv(EnvVar, s.String()); err != nil {
		return fmt.Errorf("failed to export %s: %w", EnvVar, err)
	}
	return nil
}

// Source is the randomness a Generator draws from. *rand.Rand satisfies it.
type Source interface {
	Uint32N(n uint32) uint32
}

// Generator draws seeds uniformly from [Min, Max].
type Generator struct {
	src Source
}

// New returns a Generator over src. A nil src uses the global generator.
func New(src Source) *Generator {
	return &Generator{src: src}
}

// Next returns the next seed.
func (g *Generator) Next() Seed {
	// Uint32N(n) yields [0, n); shifting by one gives [1, MaxUint32].
	if g.src == nil {
		return Min + Seed(rand.Uint32N(uint32(Max)))
	}
	return Min + Seed(g.src.Uint32N(uint32(Max)))
}

// Parse reads a decimal seed and checks it is in range.
func Parse(s string) (Seed, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", EnvVar, s, err)
	}
	if Seed(n) < Min {
		return 0, fmt.Errorf("invalid %s %q: must be between %d and %d", EnvVar, s, Min, Max)
	}
	return Seed(n), nil
}

// Resolve returns the seed for a run. When reuse is set and current holds a
// valid seed it is kept, so a previous run can be reproduced; otherwise a
// fresh seed is drawn from g.
func (g *Generator) Resolve(current string, reuse bool) (Seed, bool) {
	if reuse && current != "" {
		if s, err := Parse(current); err == nil {
			return s, true
		}
	}
	return g.Next(), false
}
