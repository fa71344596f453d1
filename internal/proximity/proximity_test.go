package proximity

import (
	"math"
	"testing"
)

func TestEstimateInvalidReadingsAreUnknown(t *testing.T) {
	for _, rssi := range []int16{0, 1, 20, 127, math.MaxInt16} {
		if d := Estimate(rssi); d.IsKnown() {
			t.Fatalf("Estimate(%d) = %v, expected unknown", rssi, d)
		}
		if got := Estimate(rssi).Sentinel(); got != -1 {
			t.Fatalf("Estimate(%d).Sentinel() = %v, expected -1", rssi, got)
		}
	}
}

func TestEstimateValidReadingsAreNonNegative(t *testing.T) {
	for rssi := int16(math.MinInt16); rssi < 0; rssi++ {
		d := Estimate(rssi)
		v, ok := d.Value()
		if !ok {
			t.Fatalf("Estimate(%d) unexpectedly unknown", rssi)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Estimate(%d) = %v, expected finite non-negative", rssi, v)
		}
	}
}

func TestEstimateCurve(t *testing.T) {
	tests := []struct {
		rssi int16
		want float64
	}{
		{-59, 0.89976 + 0.111},
		{-40, math.Pow(40.0/59.0, 10)},
		{-90, 0.89976*math.Pow(90.0/59.0, 7.7095) + 0.111},
	}
	for _, tc := range tests {
		got, _ := Estimate(tc.rssi).Value()
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Estimate(%d) = %v, want %v", tc.rssi, got, tc.want)
		}
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	for _, rssi := range []int16{-30, -59, -75, -100} {
		a, _ := Estimate(rssi).Value()
		b, _ := Estimate(rssi).Value()
		if a != b {
			t.Fatalf("Estimate(%d) not deterministic: %v vs %v", rssi, a, b)
		}
	}
}

func TestEstimateGrowsWithWeakerSignal(t *testing.T) {
	prev := -1.0
	for rssi := int16(-20); rssi >= -100; rssi -= 5 {
		v, _ := Estimate(rssi).Value()
		if v <= prev {
			t.Fatalf("distance did not grow at %d dBm: %v <= %v", rssi, v, prev)
		}
		prev = v
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name string
		d    Distance
		want int
	}{
		{"zero", Known(0), 100},
		{"at max", Known(10), 0},
		{"beyond max", Known(25), 0},
		{"half", Known(5), 50},
		{"rounded", Known(1.26), 87},
		{"unknown", Unknown, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percentage(tc.d, 10); got != tc.want {
				t.Fatalf("Percentage(%v) = %d, want %d", tc.d, got, tc.want)
			}
		})
	}
}

func TestPercentageAlwaysClamped(t *testing.T) {
	for v := 0.0; v < 50; v += 0.37 {
		p := Percentage(Known(v), 10)
		if p < 0 || p > 100 {
			t.Fatalf("Percentage(%v) = %d out of range", v, p)
		}
	}
}

func TestKnownRejectsNegative(t *testing.T) {
	if Known(-1).IsKnown() {
		t.Fatal("negative distance should be unknown")
	}
	if Unknown.String() != "unknown" {
		t.Fatalf("unexpected Unknown string %q", Unknown.String())
	}
}

func TestNewSmootherValidatesAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.1, 1.01} {
		if _, err := NewSmoother[string](alpha); err == nil {
			t.Fatalf("expected error for alpha %v", alpha)
		}
	}
	if _, err := NewSmoother[string](1); err != nil {
		t.Fatalf("alpha 1 rejected: %v", err)
	}
}

func TestSmootherColdStartReturnsRaw(t *testing.T) {
	s, _ := NewSmoother[string](0.3)
	for _, x := range []float64{0, 0.42, 3.5, 120} {
		key := "dev"
		s.Clear(key)
		got, _ := s.Smooth(key, Known(x)).Value()
		if got != x {
			t.Fatalf("cold start Smooth(%v) = %v", x, got)
		}
	}
}

func TestSmootherBlend(t *testing.T) {
	s, _ := NewSmoother[string](0.3)
	s.Smooth("a", Known(10))
	got, _ := s.Smooth("a", Known(0)).Value()
	if math.Abs(got-7) > 1e-9 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestSmootherConvergesMonotonically(t *testing.T) {
	for _, alpha := range []float64{0.1, 0.3, 0.7, 1} {
		s, _ := NewSmoother[string](alpha)
		start, target := 10.0, 1.0
		s.Smooth("a", Known(start))

		steps := int(math.Ceil(5 / alpha))
		prevGap := start - target
		for i := 0; i < steps; i++ {
			v, _ := s.Smooth("a", Known(target)).Value()
			gap := v - target
			if gap < 0 || gap > prevGap {
				t.Fatalf("alpha %v step %d: gap %v after %v", alpha, i, gap, prevGap)
			}
			prevGap = gap
		}
		if prevGap > 0.01*(start-target) {
			t.Fatalf("alpha %v did not converge in %d steps: gap %v", alpha, steps, prevGap)
		}
	}
}

func TestSmootherKeysAreIndependent(t *testing.T) {
	s, _ := NewSmoother[string](0.5)
	s.Smooth("a", Known(4))
	s.Smooth("b", Known(100))
	s.Smooth("b", Known(0))
	s.Clear("b")
	s.Smooth("b", Known(7))

	if v, _ := s.Value("a").Value(); v != 4 {
		t.Fatalf("key a disturbed: %v", v)
	}
	if v, _ := s.Smooth("a", Known(2)).Value(); v != 3 {
		t.Fatalf("expected 3 for key a, got %v", v)
	}
}

func TestSmootherUnknownReadingKeepsState(t *testing.T) {
	s, _ := NewSmoother[string](0.5)
	if d := s.Smooth("a", Unknown); d.IsKnown() {
		t.Fatalf("expected unknown before any reading, got %v", d)
	}
	if s.Len() != 0 {
		t.Fatalf("unknown reading stored state")
	}
	s.Smooth("a", Known(2))
	if v, _ := s.Smooth("a", Unknown).Value(); v != 2 {
		t.Fatalf("unknown reading changed state to %v", v)
	}
}

func TestSmootherClearAll(t *testing.T) {
	s, _ := NewSmoother[int](0.5)
	s.Smooth(1, Known(1))
	s.Smooth(2, Known(2))
	s.ClearAll()
	if s.Len() != 0 {
		t.Fatalf("expected empty smoother, got %d keys", s.Len())
	}
	if v, _ := s.Smooth(1, Known(9)).Value(); v != 9 {
		t.Fatalf("expected cold start after ClearAll, got %v", v)
	}
}
