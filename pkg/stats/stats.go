// Package stats computes robust error statistics over elevation
// difference grids: outlier rejection, descriptive stats, percentiles
// and the cumulative distribution of absolute errors.
package stats

import(
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/demcompare/pkg/dem"
)

// NMADScale makes the median absolute deviation a consistent estimator
// of the standard deviation for normally distributed errors.
const NMADScale = 1.4826

// cdfCurveSamples is how many (value, fraction) points we put in RobustStats.CDFCurve
const cdfCurveSamples = 100

var(
	DefaultCDFThresholds = []float64{0.5, 0.68, 0.95, 0.99}
	DefaultPercentiles   = []float64{0.01, 0.05, 0.25, 0.50, 0.75, 0.95, 0.99}
)

// A Quantile pairs a probability with the value found at it
type Quantile struct {
	P     float64 `yaml:"p"`
	Value float64 `yaml:"value"`
}

// A CDFPoint says that Fraction of the samples have |error| <= Value
type CDFPoint struct {
	Value    float64 `yaml:"value"`
	Fraction float64 `yaml:"fraction"`
}

// RobustStats summarises the valid cells of a difference grid.
type RobustStats struct {
	Count        int        `yaml:"nbpts"`
	Total        int        `yaml:"total"`
	PercentValid float64    `yaml:"percent_valid"`

	Min          float64    `yaml:"min"`
	Max          float64    `yaml:"max"`
	Mean         float64    `yaml:"mean"`
	Median       float64    `yaml:"median"`
	Std          float64    `yaml:"std"`
	RMSE         float64    `yaml:"rmse"`
	NMAD         float64    `yaml:"nmad"`
	Sum          float64    `yaml:"sum_err"`
	SumSquares   float64    `yaml:"sum_err_err"`
	P90          float64    `yaml:"p90"` // 90th percentile of |v - mean|

	Percentiles  []Quantile `yaml:"percentiles"`       // signed values
	CDF          []Quantile `yaml:"cdf"`               // smallest |v| reaching each probability
	CDFCurve     []CDFPoint `yaml:"cdf_curve,flow"`
}

func (s RobustStats)String() string {
	return fmt.Sprintf("Stats[n=%d (%.1f%%), mean=% .4f, median=% .4f, std=%.4f, nmad=%.4f, rmse=%.4f]",
		s.Count, s.PercentValid, s.Mean, s.Median, s.Std, s.NMAD, s.RMSE)
}

// {{{ Compute

// Compute returns stats over the valid cells of `g`. `thresholds` are
// the CDF probabilities wanted; they must be strictly increasing and
// inside (0,1), and may be empty.
func Compute(g *dem.Grid, thresholds []float64) (RobustStats, error) {
	if err := g.Validate(); err != nil {
		return RobustStats{}, err
	}
	if err := CheckThresholds(thresholds); err != nil {
		return RobustStats{}, err
	}

	values := g.ValidValues()
	if len(values) == 0 {
		return RobustStats{}, fmt.Errorf("%w: no valid samples in %dx%d grid", dem.ErrInsufficientValidData, g.Dx(), g.Dy())
	}

	s := describe(values)
	s.Total = g.Len()
	s.PercentValid = 100.0 * float64(s.Count) / float64(s.Total)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for _, p := range DefaultPercentiles {
		s.Percentiles = append(s.Percentiles, Quantile{P: p, Value: percentile(sorted, p)})
	}

	abs := make([]float64, len(values))
	for i, v := range values {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)
	for _, p := range thresholds {
		s.CDF = append(s.CDF, Quantile{P: p, Value: cdfValue(abs, p)})
	}
	s.CDFCurve = cdfCurve(abs)

	return s, nil
}

// describe does the moments and order stats of an (unsorted) sample
func describe(values []float64) RobustStats {
	s := RobustStats{Count: len(values)}

	s.Mean, s.Std = stat.PopMeanStdDev(values, nil)
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Sum = floats.Sum(values)
	s.SumSquares = floats.Dot(values, values)
	s.RMSE = math.Sqrt(s.SumSquares / float64(len(values)))
	s.Median = Median(values)
	s.NMAD = NMAD(values)

	s.P90 = P90(values)

	return s
}

// }}}
// {{{ helpers

// CheckThresholds validates a list of CDF probabilities
func CheckThresholds(thresholds []float64) error {
	for i, p := range thresholds {
		if !(p > 0 && p < 1) {
			return fmt.Errorf("%w: cdf threshold %g not in (0,1)", dem.ErrInvalidConfig, p)
		}
		if i > 0 && p <= thresholds[i-1] {
			return fmt.Errorf("%w: cdf thresholds must increase, got %g after %g", dem.ErrInvalidConfig, p, thresholds[i-1])
		}
	}
	return nil
}

// Median of an unsorted sample; the mean of the two middle values when
// the count is even. NaN for an empty sample.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// NMAD is the normalized median absolute deviation
func NMAD(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	med := Median(values)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	return NMADScale * Median(dev)
}

// P90 is the 90th percentile of |v - mean|. Reports work it out with
// the outliers still in, unlike the rest of the stats.
func P90(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(values, nil)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - mean)
	}
	sort.Float64s(dev)
	return percentile(dev, 0.90)
}

// cdfValue is the smallest sorted value that at least a fraction p of
// the samples are <= to. p*n picks up float noise (0.68*300 lands just
// above 204), so the rank is rounded up with a little slack.
func cdfValue(sorted []float64, p float64) float64 {
	n := len(sorted)
	k := int(math.Ceil(p*float64(n) - 1e-9))
	if k < 1 { k = 1 }
	if k > n { k = n }
	return sorted[k-1]
}

// percentile interpolates linearly between closest ranks, on a sorted sample
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// cdfCurve samples the empirical CDF of sorted absolute errors at
// evenly spaced values from 0 to the largest error.
func cdfCurve(abs []float64) []CDFPoint {
	n := len(abs)
	top := abs[n-1]
	if top == 0 {
		return []CDFPoint{{Value: 0, Fraction: 1}}
	}

	out := make([]CDFPoint, 0, cdfCurveSamples)
	for i:=0; i<cdfCurveSamples; i++ {
		v := top * float64(i) / float64(cdfCurveSamples-1)
		// number of samples <= v
		k := sort.Search(n, func(j int) bool { return abs[j] > v })
		out = append(out, CDFPoint{Value: v, Fraction: float64(k) / float64(n)})
	}
	out[len(out)-1].Fraction = 1
	return out
}

// }}}
