package netmodel

import (
	"math/rand"
	"testing"
)

func TestSampleStaysWithinBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	cases := []LatencyConfig{
		{MinMs: 10, MaxMs: 50, Distribution: DistUniform},
		{MinMs: 10, MaxMs: 50, Distribution: DistNormal},
		{MinMs: 10, MaxMs: 50, Distribution: DistExponential},
	}
	for _, c := range cases {
		for i := 0; i < 200; i++ {
			v := c.Sample(r)
			if v < c.MinMs || v > c.MaxMs {
				t.Fatalf("%s sample %d out of bounds [%d,%d]", c.Distribution, v, c.MinMs, c.MaxMs)
			}
		}
	}
}

func TestSampleDegenerateRange(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	c := LatencyConfig{MinMs: 25, MaxMs: 25, Distribution: DistUniform}
	if got := c.Sample(r); got != 25 {
		t.Fatalf("expected fixed 25ms for a zero-width range, got %d", got)
	}
}

func TestValidateConfigs(t *testing.T) {
	if err := (LatencyConfig{MinMs: 5, MaxMs: 1}).Validate(); err == nil {
		t.Fatal("expected error when min > max")
	}
	if err := (LatencyConfig{MinMs: -1, MaxMs: 5}).Validate(); err == nil {
		t.Fatal("expected error for negative min")
	}
	if err := (LatencyConfig{MinMs: 1, MaxMs: 5, Distribution: "bogus"}).Validate(); err == nil {
		t.Fatal("expected error for unknown distribution")
	}
	if err := (PacketLossConfig{Probability: 0.5}).Validate(); err != nil {
		t.Fatalf("valid loss config rejected: %v", err)
	}
	if err := (BandwidthConfig{}).Validate(); err != nil {
		t.Fatalf("zero-value bandwidth config (unlimited) should be valid: %v", err)
	}
}
