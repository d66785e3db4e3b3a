// Package schedule holds the time and randomness seams of the command center:
// an injectable clock, an injectable random source and cancelable periodic tasks.
package schedule

import (
	"math/rand/v2"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Rand yields floats in [0,1).
type Rand interface {
	Float64() float64
}

// Task is a scheduled callback that can be canceled. Stop is idempotent and
// guarantees the callback will not run after it returns.
type Task interface {
	Stop()
}

type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
	After(delay time.Duration, fn func()) Task
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NewRand returns a PCG source. A zero seed picks one from the wall clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
