package dem

import(
	"fmt"
	"math"

	"github.com/abworrall/demcompare/pkg/emath"
)

// A SlopeAspectField holds per-cell terrain slope (degrees from
// horizontal, [0,90]) and aspect (degrees clockwise from north that the
// slope faces, [0,360)). Both grids share the mask of the source grid,
// minus the border and any cell next to an invalid one.
type SlopeAspectField struct {
	Slope  *Grid
	Aspect *Grid
}

// SlopeAspect runs Horn's 3x3 kernel over `g`. Gradients are taken
// along the pixel axes and then mapped onto east/north through the
// geotransform, so rotated or non-square pixels come out right. Rows
// are farmed out to `nWorkers` goroutines; each cell is written once.
func SlopeAspect(g *Grid, nWorkers int) (SlopeAspectField, error) {
	if err := g.Validate(); err != nil {
		return SlopeAspectField{}, err
	}
	if g.Dx() < 3 || g.Dy() < 3 {
		return SlopeAspectField{}, fmt.Errorf("%w: %dx%d, need at least 3x3", ErrInsufficientExtent, g.Dx(), g.Dy())
	}

	inv, err := g.Geo.Matrix().Invert()
	if err != nil {
		return SlopeAspectField{}, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}

	sa := SlopeAspectField{Slope: g.NewFromThis(), Aspect: g.NewFromThis()}
	width, height := g.Dx(), g.Dy()

	emath.ParallelRange(height-2, nWorkers, func(lo, hi int) {
		for y:=lo+1; y<hi+1; y++ {
			for x:=1; x<width-1; x++ {
				gu, gv, ok := hornGradient(g, x, y)
				if !ok {
					continue
				}
				// grad_ground = inverse(J)^T grad_pixel
				east  := inv[0]*gu + inv[3]*gv
				north := inv[1]*gu + inv[4]*gv

				slope := emath.Rad2Deg(math.Atan(math.Hypot(east, north)))
				aspect := 0.0
				if east != 0 || north != 0 {
					// The slope faces downhill, i.e. against the gradient
					aspect = emath.WrapDegrees(emath.Rad2Deg(math.Atan2(-east, -north)))
				}
				sa.Slope.SetValue(x, y, slope)
				sa.Aspect.SetValue(x, y, aspect)
			}
		}
	})

	return sa, nil
}

// hornGradient returns dz/dcol and dz/drow at (x,y), or false if any
// of the 3x3 neighbourhood is invalid.
//
//   a b c
//   d e f
//   g h i
func hornGradient(g *Grid, x, y int) (float64, float64, bool) {
	var n [9]float64
	k := 0
	for dy:=-1; dy<=1; dy++ {
		for dx:=-1; dx<=1; dx++ {
			i := g.Index(x+dx, y+dy)
			if !g.Valid[i] {
				return 0, 0, false
			}
			n[k] = g.At(i)
			k++
		}
	}
	a, b, c := n[0], n[1], n[2]
	d, f    := n[3], n[5]
	gg, h, i := n[6], n[7], n[8]

	gu := ((c + 2*f + i) - (a + 2*d + gg)) / 8.0
	gv := ((gg + 2*h + i) - (a + 2*b + c)) / 8.0
	return gu, gv, true
}
