package detector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func normalSample(n int, mean, stddev float64, seed int64) []float64 {
	gen := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = gen.NormFloat64()*stddev + mean
	}
	return out
}

func TestFitBelowMinDataPointsIsNoop(t *testing.T) {
	f := New(1, 10)
	f.Fit([]float64{1, 2, 3})
	require.False(t, f.fitted)
}

func TestScoreBeforeFitReturnsZeroes(t *testing.T) {
	f := New(1, 10)
	scores := f.Score([]float64{1, 2, 3})
	require.Len(t, scores, 3)
	for _, s := range scores {
		require.Equal(t, 0.0, s)
	}
}

func TestFitAtOrAboveMinDataPointsTrains(t *testing.T) {
	sample := normalSample(64, 100, 20, 7)
	f := New(7, 10)
	f.Fit(sample)
	require.True(t, f.fitted)
	require.Len(t, f.trees, defaultTrees)
}

func TestAnomalousValueScoresLowerThanNormal(t *testing.T) {
	sample := normalSample(200, 100, 20, 42)
	f := New(42, 10)
	f.Fit(sample)

	scores := f.Score([]float64{100, 500})
	require.Less(t, scores[1], scores[0], "an outlier (500) should score lower (more anomalous) than a typical value (100)")
}

func TestConstantSampleScoresAllZero(t *testing.T) {
	sample := make([]float64, 64)
	for i := range sample {
		sample[i] = 42.0
	}
	f := New(1, 10)
	f.Fit(sample)
	require.True(t, f.fitted)
	require.True(t, f.constant)

	scores := f.Score([]float64{42.0, 1000.0})
	for _, s := range scores {
		require.Equal(t, 0.0, s, "a zero-variance fit must never read as anomalous")
	}
	require.Empty(t, AnomalyMask(scores, -0.05))
}

func TestAnomalyMask(t *testing.T) {
	mask := AnomalyMask([]float64{-0.1, 0.2, -0.3, 0.0}, -0.05)
	require.Equal(t, []int{0, 2}, mask)
}

func TestCFactorMonotonicForLargerSamples(t *testing.T) {
	require.Greater(t, cFactor(1000), cFactor(10))
	require.Equal(t, 0.0, cFactor(1))
	require.Equal(t, 0.0, cFactor(0))
}
