package coreg

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/emath"
	"github.com/abworrall/demcompare/pkg/stats"
)

// A Fit is what one pass of Nuth & Kaab learns from a difference grid:
// the parameters of dh/tan(slope) = a*cos(b - aspect) + c, and the
// surface displacement they imply. C is kept for diagnostics only; the
// vertical shift is the median of the residual differences, not C.
type Fit struct {
	A               float64    `yaml:"a"`             // magnitude of horizontal misregistration
	B               float64    `yaml:"b"`             // its direction, degrees clockwise from north
	C               float64    `yaml:"c"`             // residual term of the cosine model
	Bins            int        `yaml:"bins"`          // aspect bins used in the fit
	Cells           int        `yaml:"cells"`         // cells valid after outlier removal, with a slope
	SlopedCells     int        `yaml:"sloped_cells"`  // of those, the ones inside the slope window
	OutliersRemoved int        `yaml:"outliers_removed"`
	Horizontal      bool       `yaml:"horizontal"`    // false when the terrain is too flat to see a shift

	// Displacement of the secondary surface relative to the reference
	// (east, north, vertical); the correction is its negation.
	Shift           emath.Vec3 `yaml:"shift,flow"`
}

func (f Fit)String() string {
	return fmt.Sprintf("Fit[a=%.4f b=%6.2fdeg c=% .4f, %d bins, %d/%d cells, shift %s]",
		f.A, f.B, f.C, f.Bins, f.SlopedCells, f.Cells, f.Shift)
}

// aspectBin accumulates the samples whose aspect falls in one bin
type aspectBin struct {
	aspects []float64
	values  []float64 // dh / tan(slope)

	aspect  float64 // mean aspect of the samples, degrees
	value   float64 // median of values
}

// fitOffset estimates the surface displacement behind the difference
// grid `dh`, given the reference slope/aspect. Outliers are removed
// first; `cleaned` is the grid the fit actually used.
func fitOffset(cfg Config, dh *dem.Grid, sa dem.SlopeAspectField) (fit Fit, cleaned *dem.Grid, err error) {
	cleaned, removed, err := stats.RemoveOutliers(dh, cfg.OutlierPolicy())
	if err != nil {
		return Fit{}, nil, err
	}
	fit.OutliersRemoved = removed

	nBins := int(math.Ceil(360.0 / cfg.AspectBinWidthDegrees))
	bins := make([]aspectBin, nBins)

	usable := []int{}
	for i:=0; i<cleaned.Len(); i++ {
		if !cleaned.Valid[i] || !sa.Slope.Valid[i] {
			continue
		}
		usable = append(usable, i)

		slope := sa.Slope.At(i)
		if slope < cfg.MinSlopeDegrees || slope > cfg.MaxSlopeDegrees {
			continue
		}
		fit.SlopedCells++

		aspect := sa.Aspect.At(i)
		k := int(aspect / cfg.AspectBinWidthDegrees)
		if k >= nBins { k = nBins-1 }
		bins[k].aspects = append(bins[k].aspects, aspect)
		bins[k].values = append(bins[k].values, cleaned.At(i) / math.Tan(emath.Deg2Rad(slope)))
	}
	fit.Cells = len(usable)

	if fit.Cells < cfg.MinValidCells {
		return fit, cleaned, fmt.Errorf("%w: %d usable cells after outlier removal, need %d",
			dem.ErrInsufficientValidData, fit.Cells, cfg.MinValidCells)
	}

	// Bins are independent, so their medians can be worked out in parallel
	emath.ParallelRange(nBins, cfg.Workers, func(lo, hi int) {
		for k:=lo; k<hi; k++ {
			b := &bins[k]
			if len(b.values) < cfg.MinBinSamples {
				continue
			}
			sum := 0.0
			for _, a := range b.aspects { sum += a }
			b.aspect = sum / float64(len(b.aspects))
			b.value = stats.Median(b.values)
		}
	})

	used := []*aspectBin{}
	for k := range bins {
		if len(bins[k].values) >= cfg.MinBinSamples {
			used = append(used, &bins[k])
		}
	}
	fit.Bins = len(used)

	east, north := 0.0, 0.0
	if fit.SlopedCells > 0 {
		if len(used) < 3 {
			return fit, cleaned, fmt.Errorf("%w: only %d aspect bins with %d+ samples, need 3",
				dem.ErrInsufficientValidData, len(used), cfg.MinBinSamples)
		}
		p, err := solveCosine(used)
		if err != nil {
			return fit, cleaned, err
		}
		// a*cos(b - psi) = (a cos b) cos psi + (a sin b) sin psi
		north, east, fit.C = p[0], p[1], p[2]
		fit.A = math.Hypot(east, north)
		fit.B = emath.WrapDegrees(emath.Rad2Deg(math.Atan2(east, north)))
		fit.Horizontal = true
	}

	// What the horizontal shift doesn't explain is the vertical offset
	resid := make([]float64, 0, len(usable))
	for _, i := range usable {
		tanS := math.Tan(emath.Deg2Rad(sa.Slope.At(i)))
		psi := emath.Deg2Rad(sa.Aspect.At(i))
		resid = append(resid, cleaned.At(i) - tanS*(east*math.Sin(psi) + north*math.Cos(psi)))
	}

	fit.Shift = emath.Vec3{east, north, stats.Median(resid)}
	return fit, cleaned, nil
}

// solveCosine does the linear least squares fit of
//   value = p0*cos(aspect) + p1*sin(aspect) + p2
// over the bins.
func solveCosine(bins []*aspectBin) ([3]float64, error) {
	n := len(bins)
	a := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i, b := range bins {
		psi := emath.Deg2Rad(b.aspect)
		a.Set(i, 0, math.Cos(psi))
		a.Set(i, 1, math.Sin(psi))
		a.Set(i, 2, 1)
		y.SetVec(i, b.value)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, y); err != nil {
		return [3]float64{}, fmt.Errorf("%w: cosine fit over %d aspect bins: %v", dem.ErrInsufficientValidData, n, err)
	}
	return [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, nil
}
