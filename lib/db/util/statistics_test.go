package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 {
		t.Errorf("Mean = %v, want 5", s.Mean)
	}
	if s.StdDeviation != 2 {
		t.Errorf("StdDeviation = %v, want 2", s.StdDeviation)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Min/Max = %v/%v, want 2/9", s.Min, s.Max)
	}
	if (NewStats(nil) != Stats{}) {
		t.Error("empty input should give zero stats")
	}
}

func TestDistributionQuality(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10, 10})
	if math.Abs(even.DistributionQuality-1.0) > 1e-9 {
		t.Errorf("even spread quality = %v, want 1.0", even.DistributionQuality)
	}
	skewed := NewDistributionStats([]float64{40, 0, 0, 0})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Error("skewed spread should rate lower than even spread")
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.MedianEstimate() != 0 {
		t.Error("empty histogram median should be 0")
	}
	for i := 0; i < 10; i++ {
		h.AddSample(20)
	}
	h.AddSample(100000)

	if h.Count() != 11 {
		t.Errorf("Count = %d, want 11", h.Count())
	}
	// 20 falls in the (16,32] bucket
	if got := h.MedianEstimate(); got != 24 {
		t.Errorf("MedianEstimate = %d, want 24", got)
	}
	if got := h.PercentileEstimate(100); got != 65536*2 {
		t.Errorf("PercentileEstimate(100) = %d, want %d", got, 65536*2)
	}
}
