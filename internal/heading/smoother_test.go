package heading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

func TestSmootherSeedsOnFirstSample(t *testing.T) {
	s := NewSmoother()
	require.False(t, s.Seeded())

	got := s.Feed(123.4)

	assert.Equal(t, 123.4, got)
	assert.True(t, s.Seeded())
	assert.Equal(t, State{PreviousSmoothed: 123.4, SampleCount: 1}, s.State())
}

func TestSmootherAppliesFactorAfterSeed(t *testing.T) {
	s := NewSmoother()
	s.Feed(100)

	got := s.Feed(110)

	assert.InDelta(t, 101.0, got, 1e-9)
}

func TestSmootherWrapsAroundNorth(t *testing.T) {
	s := NewSmoother()
	s.Feed(350)

	// 350 -> 10 is +20 the short way, so the filter moves by +2.
	got := s.Feed(10)
	assert.InDelta(t, 352.0, got, 1e-9)

	s.Reset()
	s.Feed(5)
	got = s.Feed(345)
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestSmootherConvergesToConstantInput(t *testing.T) {
	s := NewSmoother()
	s.Feed(10)

	var got float64
	for i := 0; i < 300; i++ {
		got = s.Feed(200)
	}

	assert.InDelta(t, 200.0, got, 1e-6)
}

func TestSmootherDampsNoiseAroundNorth(t *testing.T) {
	s := NewSmoother()

	// raw heading alternates 350/10 around a mean of 0
	var outputs []float64
	for i := 0; i < 400; i++ {
		raw := 10.0
		if i%2 == 0 {
			raw = 350.0
		}
		out := s.Feed(raw)
		if i >= 200 {
			outputs = append(outputs, out)
		}
	}

	rawVariance := 100.0 // each raw sample sits 10° from the mean
	var sumSq float64
	for _, out := range outputs {
		d := geo.ShortestAngleDiff(out, 0)
		assert.InDelta(t, 0, d, 1.5)
		sumSq += d * d
	}
	variance := sumSq / float64(len(outputs))
	assert.Less(t, variance, rawVariance/10)
}

func TestSmootherCalibrationThreshold(t *testing.T) {
	s := NewSmoother()

	for i := 1; i <= CalibrationThreshold; i++ {
		s.Feed(float64(i))
		assert.False(t, s.IsCalibrated(), "sample %d", i)
	}

	s.Feed(0)
	assert.True(t, s.IsCalibrated())

	s.Feed(0)
	assert.True(t, s.IsCalibrated())
}

func TestSmootherReset(t *testing.T) {
	s := NewSmoother()
	for i := 0; i < 30; i++ {
		s.Feed(45)
	}
	require.True(t, s.IsCalibrated())

	s.Reset()

	assert.False(t, s.IsCalibrated())
	assert.False(t, s.Seeded())
	assert.Equal(t, State{}, s.State())

	// reseeds instead of easing in from the old value
	assert.Equal(t, 270.0, s.Feed(270))
}

func TestSmootherOutputAlwaysNormalized(t *testing.T) {
	s := NewSmoother()
	for i := 0; i < 1000; i++ {
		raw := math.Mod(float64(i)*37.3, 360)
		out := s.Feed(raw)
		assert.GreaterOrEqual(t, out, 0.0)
		assert.Less(t, out, 360.0)
	}
}
