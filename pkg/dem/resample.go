package dem

import(
	"fmt"
)

// Shift returns a new grid in which the surface of `g` has been moved by
// (east, north) ground units and raised by `vertical`:
//
//   out(p) = g(p - (east,north)) + vertical
//
// Values are bilinearly interpolated; a cell whose source position
// needs an invalid or out-of-range cell is masked. `g` is not modified.
func Shift(g *Grid, east, north, vertical float64) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	inv, err := g.Geo.Matrix().Invert()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}

	// The pixel displacement of the source position is the same everywhere
	du, dv := inv.ApplyLinear(-1*east, -1*north)

	out := g.NewFromThis()
	for y:=0; y<g.Dy(); y++ {
		for x:=0; x<g.Dx(); x++ {
			if v, ok := g.Sample(float64(x)+du, float64(y)+dv); ok {
				out.SetValue(x, y, v + vertical)
			}
		}
	}
	return out, nil
}
