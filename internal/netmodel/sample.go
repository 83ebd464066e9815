package netmodel

import (
	"math"
	"math/rand"
)

// Sample draws a delivery delay in milliseconds from the configured
// distribution:
//
//   - uniform: a uniform integer in [min,max].
//   - normal: mean=(min+max)/2, std=(max-min)/6, clamped to [min,max].
//   - exponential: rate chosen so mean=min+(max-min)/4, clamped to [min,max].
func (c LatencyConfig) Sample(r *rand.Rand) int64 {
	if c.MaxMs <= c.MinMs {
		return c.MinMs
	}
	switch c.Distribution {
	case DistNormal:
		mean := float64(c.MinMs+c.MaxMs) / 2
		std := float64(c.MaxMs-c.MinMs) / 6
		v := r.NormFloat64()*std + mean
		return clampInt64(int64(math.Round(v)), c.MinMs, c.MaxMs)
	case DistExponential:
		mean := float64(c.MinMs) + float64(c.MaxMs-c.MinMs)/4
		if mean <= 0 {
			return c.MinMs
		}
		rate := 1 / mean
		v := r.ExpFloat64() / rate
		return clampInt64(int64(math.Round(v)), c.MinMs, c.MaxMs)
	default: // uniform, including the zero value
		span := c.MaxMs - c.MinMs + 1
		return c.MinMs + r.Int63n(span)
	}
}
