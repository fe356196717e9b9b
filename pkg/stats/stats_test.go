package stats_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/stats"
)

// grid lays `values` out as a single row of valid cells
func grid(t *testing.T, values ...float64) *dem.Grid {
	t.Helper()
	g, err := dem.NewGridFromValues(len(values), 1, values, math.NaN(), dem.NorthUp(0, 1, 1, 1))
	require.NoError(t, err)
	return g
}

func TestCompute_Basic(t *testing.T) {
	s, err := stats.Compute(grid(t, 1, 2, 3, 4), []float64{0.5})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 4, s.Total)
	assert.InDelta(t, 100.0, s.PercentValid, 1e-12)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Std, 1e-12)
	assert.InDelta(t, math.Sqrt(30.0/4.0), s.RMSE, 1e-12)
	assert.InDelta(t, stats.NMADScale, s.NMAD, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 10.0, s.Sum)
	assert.Equal(t, 30.0, s.SumSquares)
	require.Len(t, s.CDF, 1)
	assert.Equal(t, 2.0, s.CDF[0].Value)
	require.Len(t, s.Percentiles, len(stats.DefaultPercentiles))
	assert.InDelta(t, 2.5, s.Percentiles[3].Value, 1e-12)
}

func TestCompute_ZeroIsNeverNodata(t *testing.T) {
	vals := make([]float64, 50)
	vals[7] = 3
	g := grid(t, vals...)
	g.Invalidate(7, 0)

	s, err := stats.Compute(g, stats.DefaultCDFThresholds)
	require.NoError(t, err)
	assert.Equal(t, 49, s.Count)
	assert.Equal(t, 0.0, s.Mean)
	assert.Equal(t, 0.0, s.Max)
	for _, q := range s.CDF {
		assert.Equal(t, 0.0, q.Value)
	}
}

func TestCompute_CDFSmallestValueReachingFraction(t *testing.T) {
	s, err := stats.Compute(grid(t, -1, 2, -3, 4, 5, -6, 7, 8, -9, 10), []float64{0.1, 0.5, 0.68, 0.95})
	require.NoError(t, err)
	want := []float64{1, 5, 7, 10}
	for i, q := range s.CDF {
		assert.Equal(t, want[i], q.Value, "p=%g", q.P)
	}
}

func TestCompute_CDFExactFractions(t *testing.T) {
	// p*n lands a hair above an integer for all of these
	for _, tc := range []struct {
		p    float64
		n    int
		want float64
	}{
		{0.68, 300, 204},
		{0.68, 600, 408},
		{0.14, 100, 14},
		{0.07, 100, 7},
		{0.57, 100, 57},
		{0.99, 100, 99},
	} {
		vals := make([]float64, tc.n)
		for i := range vals {
			vals[i] = float64(i + 1)
		}
		s, err := stats.Compute(grid(t, vals...), []float64{tc.p})
		require.NoError(t, err)
		assert.Equal(t, tc.want, s.CDF[0].Value, "p=%g n=%d", tc.p, tc.n)
	}
}

func TestCompute_CDFMonotone(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	vals := make([]float64, 2000)
	for i := range vals {
		vals[i] = r.NormFloat64() * 3
	}
	thresholds := []float64{0.01, 0.1, 0.25, 0.5, 0.68, 0.9, 0.95, 0.99, 0.999}
	s, err := stats.Compute(grid(t, vals...), thresholds)
	require.NoError(t, err)
	require.Len(t, s.CDF, len(thresholds))
	for i := 1; i < len(s.CDF); i++ {
		assert.LessOrEqual(t, s.CDF[i-1].Value, s.CDF[i].Value)
	}
	for i := 1; i < len(s.CDFCurve); i++ {
		assert.LessOrEqual(t, s.CDFCurve[i-1].Fraction, s.CDFCurve[i].Fraction)
		assert.Less(t, s.CDFCurve[i-1].Value, s.CDFCurve[i].Value)
	}
	assert.Equal(t, 1.0, s.CDFCurve[len(s.CDFCurve)-1].Fraction)
	// A normal sample's NMAD tracks its std
	assert.InDelta(t, s.Std, s.NMAD, 0.3)
}

func TestCompute_AllMasked(t *testing.T) {
	g := dem.NewGrid(3, 3, dem.NorthUp(0, 3, 1, 1))
	_, err := stats.Compute(g, stats.DefaultCDFThresholds)
	require.ErrorIs(t, err, dem.ErrInsufficientValidData)
}

func TestCompute_BadThresholds(t *testing.T) {
	g := grid(t, 1, 2, 3)
	for _, th := range [][]float64{{0}, {1}, {0.5, 0.5}, {0.9, 0.5}, {-0.1}} {
		_, err := stats.Compute(g, th)
		require.ErrorIs(t, err, dem.ErrInvalidConfig, "%v", th)
	}
}

func TestMedianNMAD(t *testing.T) {
	assert.Equal(t, 2.0, stats.Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, stats.Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(stats.Median(nil)))
	assert.Equal(t, 0.0, stats.NMAD([]float64{5, 5, 5}))
}
