package dem

import(
	"fmt"
)

// ApplyGeoid adds the geoid height found at each valid cell centre of
// `g`. The geoid is bilinearly resampled, so it may have any resolution
// or extent; inside the half cell band around its outer cell centres
// the nearest edge values are used. Cells outside its extent (or where
// its own data is invalid) come out masked, never silently uncorrected.
// If no valid cell is covered at all, ErrGeoidCoverage is returned.
func ApplyGeoid(g, geoid *Grid) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := geoid.Validate(); err != nil {
		return nil, fmt.Errorf("geoid: %w", err)
	}

	out := g.NewFromThis()
	nValid, nCovered := 0, 0

	for y:=0; y<g.Dy(); y++ {
		for x:=0; x<g.Dx(); x++ {
			if !g.IsValid(x, y) {
				continue
			}
			nValid++

			gx, gy := g.CellCenter(x, y)
			u, v, err := geoid.GroundToCell(gx, gy)
			if err != nil {
				return nil, err
			}
			if !inExtent(geoid, u, v) {
				continue
			}
			// Between the outermost geoid cell centres and the edge of its
			// extent, hold the edge value
			u, v = clamp(u, 0, float64(geoid.Dx()-1)), clamp(v, 0, float64(geoid.Dy()-1))
			if n, ok := geoid.Sample(u, v); ok {
				out.SetValue(x, y, g.Get(x, y) + n)
				nCovered++
			}
		}
	}

	if nValid > 0 && nCovered == 0 {
		return nil, fmt.Errorf("%w: none of %d valid cells covered", ErrGeoidCoverage, nValid)
	}
	return out, nil
}

// inExtent says if fractional cell coords (centres on integers) fall
// within the pixel footprint of `g`
func inExtent(g *Grid, u, v float64) bool {
	return u >= -0.5 && v >= -0.5 && u <= float64(g.Dx())-0.5 && v <= float64(g.Dy())-0.5
}

func clamp(x, lo, hi float64) float64 {
	if x < lo { return lo }
	if x > hi { return hi }
	return x
}
