package dem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abworrall/demcompare/pkg/dem"
)

func TestApplyGeoid_HalfCoverageIsMasked(t *testing.T) {
	g := fill(10, 6, func(x, y int) float64 { return 100 })
	geoid := dem.NewGrid(5, 6, dem.NorthUp(0, 6, 1, 1))
	for y := 0; y < 6; y++ {
		for x := 0; x < 5; x++ {
			geoid.SetValue(x, y, 10)
		}
	}

	out, err := dem.ApplyGeoid(g, geoid)
	require.NoError(t, err)
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				require.True(t, out.IsValid(x, y))
				require.InDelta(t, 110.0, out.Get(x, y), 1e-12)
			} else {
				require.False(t, out.IsValid(x, y), "cell %d,%d should be uncovered", x, y)
			}
		}
	}
	// The input is left alone
	require.Equal(t, 60, g.CountValid())
}

func TestApplyGeoid_CoarserGeoidIsInterpolated(t *testing.T) {
	g := fill(4, 4, func(x, y int) float64 { return 0 })
	// 2m geoid cells spanning the same 4x4m area, plus a margin
	geoid := dem.NewGrid(4, 4, dem.NorthUp(-2, 6, 2, 2))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			geoid.SetValue(x, y, float64(x))
		}
	}

	out, err := dem.ApplyGeoid(g, geoid)
	require.NoError(t, err)
	require.Equal(t, 16, out.CountValid())
	// Cell (0,y) centre is at x=0.5; geoid centres are at -1,1,3,5
	require.InDelta(t, 0.75, out.Get(0, 1), 1e-12)
	require.InDelta(t, 1.25, out.Get(1, 1), 1e-12)
}

func TestApplyGeoid_CoarserGeoidSameExtent(t *testing.T) {
	g := fill(4, 4, func(x, y int) float64 { return 0 })
	// 2m geoid cells covering exactly the 4x4m area; centres at 1 and 3
	geoid := dem.NewGrid(2, 2, dem.NorthUp(0, 4, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			geoid.SetValue(x, y, float64(10*x+y))
		}
	}

	out, err := dem.ApplyGeoid(g, geoid)
	require.NoError(t, err)
	require.Equal(t, 16, out.CountValid())

	// Outer cells hold the nearest geoid edge values
	require.InDelta(t, 0.0, out.Get(0, 0), 1e-12)
	require.InDelta(t, 11.0, out.Get(3, 3), 1e-12)
	// Inner cells interpolate; x=1.5 is a quarter of the way from 1 to 3
	require.InDelta(t, 2.5, out.Get(1, 0), 1e-12)
	require.InDelta(t, 2.5+0.25, out.Get(1, 1), 1e-12)
}

func TestApplyGeoid_NoOverlap(t *testing.T) {
	g := fill(4, 4, func(x, y int) float64 { return 0 })
	geoid := dem.NewGrid(4, 4, dem.NorthUp(1000, 1000, 1, 1))
	for i := range geoid.Valid {
		geoid.Valid[i] = true
	}
	_, err := dem.ApplyGeoid(g, geoid)
	require.ErrorIs(t, err, dem.ErrGeoidCoverage)
}
