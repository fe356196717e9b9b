package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/stats"
)

func TestRemoveOutliers_KeepsZeros(t *testing.T) {
	vals := make([]float64, 100)
	vals = append(vals, 5, -5)
	g := grid(t, vals...)

	out, removed, err := stats.RemoveOutliers(g, stats.DefaultOutlierPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 100, out.CountValid())
	for x := 0; x < 100; x++ {
		assert.True(t, out.IsValid(x, 0), "zero-valued cell %d was dropped", x)
	}
	// Input untouched
	assert.Equal(t, 102, g.CountValid())
}

func TestRemoveOutliers_BoundaryIsInclusive(t *testing.T) {
	g := grid(t, -1, -1, 1, 1)

	out, removed, err := stats.RemoveOutliers(g, stats.OutlierPolicy{Threshold: 1, Spread: stats.SpreadStd})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 4, out.CountValid())

	out, removed, err = stats.RemoveOutliers(g, stats.OutlierPolicy{Threshold: 0.5, Spread: stats.SpreadStd})
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	assert.Equal(t, 0, out.CountValid())
}

func TestRemoveOutliers_OnlyConsidersValidCells(t *testing.T) {
	g := grid(t, 0, 0.1, -0.1, 0.05, 1000)
	g.Invalidate(4, 0)
	out, removed, err := stats.RemoveOutliers(g, stats.OutlierPolicy{Threshold: 3, Spread: stats.SpreadNMAD})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 4, out.CountValid())
}

func TestRemoveOutliers_Disabled(t *testing.T) {
	g := grid(t, 0, 0, 0, 100)
	out, removed, err := stats.RemoveOutliers(g, stats.OutlierPolicy{Threshold: 0, Spread: stats.SpreadNMAD})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 4, out.CountValid())
}

func TestRemoveOutliers_Errors(t *testing.T) {
	_, _, err := stats.RemoveOutliers(grid(t, 1, 2), stats.OutlierPolicy{Threshold: 3, Spread: "iqr"})
	require.ErrorIs(t, err, dem.ErrInvalidConfig)

	_, _, err = stats.RemoveOutliers(dem.NewGrid(2, 2, dem.NorthUp(0, 2, 1, 1)), stats.DefaultOutlierPolicy())
	require.ErrorIs(t, err, dem.ErrInsufficientValidData)
}
