// Package frecency scores a user's order history by frequency and recency.
//
// Every counted order contributes Scale * DecayPerDay^age, where age is the
// number of days between the order and the moment of scoring. Only the
// NumOrders most recent orders count, so the score of a regular customer is
// bounded by NumOrders * Scale.
package frecency

import (
	"math"
	"sort"
	"time"
)

const day = 24 * time.Hour

// Scorer computes frecency scores.
type Scorer struct {
	NumOrders   int
	Scale       float64
	DecayPerDay float64
}

// Default returns the scorer used in production.
func Default() Scorer {
	return Scorer{NumOrders: 10, Scale: 10_000_000, DecayPerDay: 0.0025915}
}

// New returns a scorer, falling back to Default for non-positive settings.
func New(numOrders int, scale, decayPerDay float64) Scorer {
	s := Default()
	if numOrders > 0 {
		s.NumOrders = numOrders
	}
	if scale > 0 {
		s.Scale = scale
	}
	if decayPerDay > 0 {
		s.DecayPerDay = decayPerDay
	}
	return s
}

// Compute returns the score of orders placed at times, as of asOf.
// The order of times does not matter. Orders dated after asOf count as new.
func (s Scorer) Compute(times []time.Time, asOf time.Time) int64 {
	if len(times) == 0 {
		return 0
	}
	recent := make([]time.Time, len(times))
	copy(recent, times)
	sort.Slice(recent, func(i, j int) bool { return recent[i].After(recent[j]) })
	if s.NumOrders > 0 && len(recent) > s.NumOrders {
		recent = recent[:s.NumOrders]
	}

	var sum float64
	for _, t := range recent {
		sum += s.weight(asOf.Sub(t))
	}
	return int64(math.Round(s.Scale * sum))
}

func (s Scorer) weight(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return math.Pow(s.DecayPerDay, age.Hours()/day.Hours())
}
