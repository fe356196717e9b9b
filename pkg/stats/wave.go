package stats

import(
	"gonum.org/v1/gonum/floats"

	"github.com/abworrall/demcompare/pkg/dem"
)

// WaveDetection looks for oscillations along the grid axes, as left by
// push-broom sensors. The grids are named for the axis the mean is taken
// over: rowWise is each valid value minus the mean of its column (the
// mean across rows), colWise is each valid value minus the mean of its
// row. Rows or columns with no valid cell stay masked.
func WaveDetection(g *dem.Grid) (rowWise, colWise *dem.Grid, err error) {
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	rowWise = g.NewFromThis()
	colWise = g.NewFromThis()

	for y:=0; y<g.Dy(); y++ {
		row := []float64{}
		for x:=0; x<g.Dx(); x++ {
			if g.IsValid(x, y) { row = append(row, g.Get(x, y)) }
		}
		if len(row) == 0 { continue }
		mean := floats.Sum(row) / float64(len(row))
		for x:=0; x<g.Dx(); x++ {
			if g.IsValid(x, y) { colWise.SetValue(x, y, g.Get(x, y) - mean) }
		}
	}

	for x:=0; x<g.Dx(); x++ {
		col := []float64{}
		for y:=0; y<g.Dy(); y++ {
			if g.IsValid(x, y) { col = append(col, g.Get(x, y)) }
		}
		if len(col) == 0 { continue }
		mean := floats.Sum(col) / float64(len(col))
		for y:=0; y<g.Dy(); y++ {
			if g.IsValid(x, y) { rowWise.SetValue(x, y, g.Get(x, y) - mean) }
		}
	}

	return rowWise, colWise, nil
}
