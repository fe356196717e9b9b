package stats

import(
	"errors"
	"fmt"
	"math"

	"github.com/abworrall/demcompare/pkg/dem"
)

// DefaultSlopeClasses are the lower edges, in percent, of the slope
// classes errors are broken down by.
var DefaultSlopeClasses = []float64{0, 10, 25, 50, 90}

// ClassStats are the stats of the cells whose slope falls in one class.
type ClassStats struct {
	Label   string      `yaml:"set_name"`
	Lower   float64     `yaml:"lower"`
	Upper   float64     `yaml:"upper"`   // +Inf for the last class
	Percent float64     `yaml:"percent"` // of all cells in the grid
	Stats   RobustStats `yaml:"stats"`
}

// ByClass partitions the valid cells of `g` by the slope (in degrees)
// found in `slope`, using class edges given as percent slope
// (100*tan). Class i holds edges[i] <= s < edges[i+1]; the last class
// is open ended. Cells with no slope are left out. Outliers are found
// over the whole of `g` with `policy` and left out of each class's
// stats, except P90, which is worked out with them in. Empty classes
// are returned with a zero Count.
func ByClass(g, slope *dem.Grid, edges []float64, policy OutlierPolicy) ([]ClassStats, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := slope.Validate(); err != nil {
		return nil, fmt.Errorf("slope: %w", err)
	}
	if !g.SameShape(slope) {
		return nil, fmt.Errorf("%w: slope grid shape differs", dem.ErrInvalidGrid)
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: no slope class edges", dem.ErrInvalidConfig)
	}
	for i:=1; i<len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("%w: slope class edges must increase", dem.ErrInvalidConfig)
		}
	}

	cleaned, _, err := RemoveOutliers(g, policy)
	if err != nil {
		return nil, err
	}

	out := []ClassStats{}
	for i, lo := range edges {
		hi := math.Inf(1)
		label := fmt.Sprintf("[%g; inf[", lo)
		if i < len(edges)-1 {
			hi = edges[i+1]
			label = fmt.Sprintf("[%g; %g]", lo, hi)
		}

		class := cleaned.Clone()
		withOutliers := []float64{}
		for j:=0; j<class.Len(); j++ {
			if !g.Valid[j] || !slope.Valid[j] {
				class.Valid[j] = false
				continue
			}
			pct := 100.0 * math.Tan(slope.At(j) * math.Pi / 180.0)
			in := pct >= lo && pct < hi
			if in {
				withOutliers = append(withOutliers, g.At(j))
			}
			class.Valid[j] = class.Valid[j] && in
		}

		cs := ClassStats{Label: label, Lower: lo, Upper: hi}
		s, err := Compute(class, nil)
		if errors.Is(err, dem.ErrInsufficientValidData) {
			s = RobustStats{Total: class.Len()}
		} else if err != nil {
			return nil, err
		}
		if len(withOutliers) > 0 {
			s.P90 = P90(withOutliers)
		}
		cs.Stats = s
		cs.Percent = 100.0 * float64(s.Count) / float64(class.Len())
		out = append(out, cs)
	}
	return out, nil
}
