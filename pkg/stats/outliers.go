package stats

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/demcompare/pkg/dem"
)

// Spread names the dispersion measure an OutlierPolicy scales
type Spread string

const(
	SpreadNMAD Spread = "nmad"
	SpreadStd  Spread = "std"
)

// An OutlierPolicy rejects cells further than Threshold spreads from
// the median. A Threshold <= 0 keeps everything.
type OutlierPolicy struct {
	Threshold float64 `yaml:"threshold"`
	Spread    Spread  `yaml:"spread"`
}

func DefaultOutlierPolicy() OutlierPolicy {
	return OutlierPolicy{Threshold: 3, Spread: SpreadNMAD}
}

func (p OutlierPolicy)Validate() error {
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) {
		return fmt.Errorf("%w: outlier threshold %g", dem.ErrInvalidConfig, p.Threshold)
	}
	switch p.Spread {
	case SpreadNMAD, SpreadStd:
		return nil
	default:
		return fmt.Errorf("%w: no outlier spread named '%s'", dem.ErrInvalidConfig, p.Spread)
	}
}

// RemoveOutliers returns a copy of `g` with outliers masked, and how many
// were masked. The centre and spread are computed over the cells that
// are valid on entry; a cell is kept when |v - median| <= k*spread, so
// the boundary is inclusive. Validity comes only from the mask, so
// zero-valued differences are kept like any other value.
func RemoveOutliers(g *dem.Grid, policy OutlierPolicy) (*dem.Grid, int, error) {
	if err := g.Validate(); err != nil {
		return nil, 0, err
	}
	if err := policy.Validate(); err != nil {
		return nil, 0, err
	}

	values := g.ValidValues()
	if len(values) == 0 {
		return nil, 0, fmt.Errorf("%w: no valid samples to reject outliers from", dem.ErrInsufficientValidData)
	}

	out := g.Clone()
	if policy.Threshold <= 0 {
		return out, 0, nil
	}

	med := Median(values)
	spread := NMAD(values)
	if policy.Spread == SpreadStd {
		_, spread = stat.PopMeanStdDev(values, nil)
	}
	limit := policy.Threshold * spread

	removed := 0
	for i:=0; i<out.Len(); i++ {
		if out.Valid[i] && math.Abs(out.At(i) - med) > limit {
			out.Valid[i] = false
			removed++
		}
	}
	return out, removed, nil
}
