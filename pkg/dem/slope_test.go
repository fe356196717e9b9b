package dem_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/emath"
)

func TestSlopeAspect_PlaneRisingEast(t *testing.T) {
	g := fill(6, 5, func(x, y int) float64 { return 0.1 * float64(x) })
	sa, err := dem.SlopeAspect(g, 3)
	require.NoError(t, err)

	want := math.Atan(0.1) * 180 / math.Pi
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			border := x == 0 || y == 0 || x == 5 || y == 4
			require.Equal(t, !border, sa.Slope.IsValid(x, y), "cell %d,%d", x, y)
			if border {
				continue
			}
			require.InDelta(t, want, sa.Slope.Get(x, y), 1e-9)
			// Downhill is to the west
			require.InDelta(t, 270.0, sa.Aspect.Get(x, y), 1e-9)
		}
	}
}

func TestSlopeAspect_PlaneRisingNorthWithLargePixels(t *testing.T) {
	// Row 0 is the northern edge; 4m pixels, 1m rise per row northwards
	g := dem.NewGrid(5, 5, dem.NorthUp(0, 20, 4, 4))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			g.SetValue(x, y, float64(5-y))
		}
	}
	sa, err := dem.SlopeAspect(g, 1)
	require.NoError(t, err)
	require.InDelta(t, math.Atan(0.25)*180/math.Pi, sa.Slope.Get(2, 2), 1e-9)
	require.InDelta(t, 180.0, sa.Aspect.Get(2, 2), 1e-9)
}

func TestSlopeAspect_RotatedGrid(t *testing.T) {
	// Pixel axes turned 30 degrees away from east/north
	m := emath.Identity().Translate(100, 100).Rotate(30).Mult(emath.Aff3{1, 0, 0, 0, -1, 0})
	geo := dem.GeoTransformFromMatrix(m)
	require.NoError(t, geo.Validate())
	require.Equal(t, m, geo.Matrix())

	g := dem.NewGrid(6, 6, geo)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			gx, _ := g.CellCenter(x, y)
			g.SetValue(x, y, 0.2*gx)
		}
	}

	sa, err := dem.SlopeAspect(g, 2)
	require.NoError(t, err)
	for y := 1; y < 5; y++ {
		for x := 1; x < 5; x++ {
			require.InDelta(t, math.Atan(0.2)*180/math.Pi, sa.Slope.Get(x, y), 1e-9)
			require.InDelta(t, 270.0, sa.Aspect.Get(x, y), 1e-9)
		}
	}
}

func TestSlopeAspect_FlatAndMasked(t *testing.T) {
	g := fill(7, 7, func(x, y int) float64 { return 0 })
	g.Invalidate(3, 3)

	sa, err := dem.SlopeAspect(g, 2)
	require.NoError(t, err)
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			require.False(t, sa.Slope.IsValid(x, y))
			require.False(t, sa.Aspect.IsValid(x, y))
		}
	}
	require.True(t, sa.Slope.IsValid(1, 1))
	require.Equal(t, 0.0, sa.Slope.Get(1, 1))
	require.Equal(t, 0.0, sa.Aspect.Get(1, 1))
}

func TestSlopeAspect_AspectRange(t *testing.T) {
	// A cone: every aspect direction is represented
	g := fill(21, 21, func(x, y int) float64 {
		dx, dy := float64(x-10), float64(y-10)
		return 50 - math.Hypot(dx, dy)
	})
	sa, err := dem.SlopeAspect(g, 4)
	require.NoError(t, err)
	for i := 0; i < sa.Aspect.Len(); i++ {
		if !sa.Aspect.Valid[i] {
			continue
		}
		require.GreaterOrEqual(t, sa.Aspect.At(i), 0.0)
		require.Less(t, sa.Aspect.At(i), 360.0)
		require.GreaterOrEqual(t, sa.Slope.At(i), 0.0)
		require.LessOrEqual(t, sa.Slope.At(i), 90.0)
	}
	// East of the summit the ground falls away to the east
	require.InDelta(t, 90.0, sa.Aspect.Get(15, 10), 1e-9)
	// North of the summit (smaller row) it faces north
	require.InDelta(t, 0.0, sa.Aspect.Get(10, 5), 1e-9)
}

func TestSlopeAspect_InsufficientExtent(t *testing.T) {
	_, err := dem.SlopeAspect(fill(2, 10, func(x, y int) float64 { return 1 }), 1)
	require.ErrorIs(t, err, dem.ErrInsufficientExtent)
}
