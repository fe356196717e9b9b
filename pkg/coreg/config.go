package coreg

import(
	"fmt"
	"io/ioutil"
	"log"
	"math"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/stats"
)

/* Example config file ...

max_iterations: 10
outlier_threshold: 3
outlier_spread: nmad
convergence_tolerance: 0.01
aspect_bin_width_degrees: 1
cdf_thresholds: [0.5, 0.68, 0.95, 0.99]
initial_offset:
  east: 2.5
  north: -1
geoid_target: secondary

*/

// Which of the inputs the geoid grid is added to
const(
	GeoidOnSecondary = "secondary"
	GeoidOnReference = "reference"
	GeoidOnBoth      = "both"
)

// Offset2D is a horizontal offset in ground units
type Offset2D struct {
	East  float64 `yaml:"east"`
	North float64 `yaml:"north"`
}

// Config controls a coregistration run. It is passed by value, and
// never read from globals, so independent runs can't interfere.
type Config struct {
	MaxIterations         int          `yaml:"max_iterations"`
	OutlierThreshold      float64      `yaml:"outlier_threshold"` // multiple of OutlierSpread; <= 0 disables
	OutlierSpread         stats.Spread `yaml:"outlier_spread"`
	ConvergenceTolerance  float64      `yaml:"convergence_tolerance"` // ground units
	AspectBinWidthDegrees float64      `yaml:"aspect_bin_width_degrees"`

	MinValidCells         int          `yaml:"min_valid_cells"`
	MinBinSamples         int          `yaml:"min_bin_samples"`
	MinSlopeDegrees       float64      `yaml:"min_slope_degrees"`
	MaxSlopeDegrees       float64      `yaml:"max_slope_degrees"`

	CDFThresholds         []float64    `yaml:"cdf_thresholds,flow"`
	InitialOffset         Offset2D     `yaml:"initial_offset"`
	GeoidTarget           string       `yaml:"geoid_target"`

	Workers               int          `yaml:"workers"`
	Verbosity             int          `yaml:"verbosity"`

	// Supplied by the caller, not the config file
	Geoid                 *dem.Grid    `yaml:"-"`
}

func NewConfig() Config {
	return Config{
		MaxIterations:         10,
		OutlierThreshold:      3,
		OutlierSpread:         stats.SpreadNMAD,
		ConvergenceTolerance:  0.01,
		AspectBinWidthDegrees: 1,
		MinValidCells:         100,
		MinBinSamples:         3,
		MinSlopeDegrees:       0.5,
		MaxSlopeDegrees:       85,
		CDFThresholds:         append([]float64(nil), stats.DefaultCDFThresholds...),
		GeoidTarget:           GeoidOnSecondary,
		Workers:               4,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, c.Finalize()
}

// LoadConfig reads a YAML config file; keys it doesn't mention keep
// their defaults.
func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("read '%s': %v", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("parse '%s': %w", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)OutlierPolicy() stats.OutlierPolicy {
	return stats.OutlierPolicy{Threshold: c.OutlierThreshold, Spread: c.OutlierSpread}
}

// Finalize fills in derivable defaults and does sanity checks
func (c *Config)Finalize() error {
	bad := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", dem.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.GeoidTarget == "" { c.GeoidTarget = GeoidOnSecondary }
	if c.OutlierSpread == "" { c.OutlierSpread = stats.SpreadNMAD }
	if c.Workers < 1 { c.Workers = 1 }

	if c.MaxIterations < 1 {
		return bad("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if err := c.OutlierPolicy().Validate(); err != nil {
		return err
	}
	if !(c.ConvergenceTolerance > 0) || math.IsInf(c.ConvergenceTolerance, 0) {
		return bad("convergence_tolerance must be positive, got %g", c.ConvergenceTolerance)
	}
	// We need at least three bins to fit three unknowns
	if !(c.AspectBinWidthDegrees > 0 && c.AspectBinWidthDegrees <= 120) {
		return bad("aspect_bin_width_degrees must be in (0,120], got %g", c.AspectBinWidthDegrees)
	}
	if c.MinValidCells < 3 {
		return bad("min_valid_cells must be at least 3, got %d", c.MinValidCells)
	}
	if c.MinBinSamples < 1 {
		return bad("min_bin_samples must be positive, got %d", c.MinBinSamples)
	}
	if !(c.MinSlopeDegrees >= 0 && c.MinSlopeDegrees < c.MaxSlopeDegrees && c.MaxSlopeDegrees < 90) {
		return bad("slope window [%g,%g] must lie in [0,90)", c.MinSlopeDegrees, c.MaxSlopeDegrees)
	}
	if err := stats.CheckThresholds(c.CDFThresholds); err != nil {
		return err
	}
	if math.IsNaN(c.InitialOffset.East) || math.IsNaN(c.InitialOffset.North) ||
		math.IsInf(c.InitialOffset.East, 0) || math.IsInf(c.InitialOffset.North, 0) {
		return bad("initial_offset must be finite")
	}

	switch c.GeoidTarget {
	case GeoidOnSecondary, GeoidOnReference, GeoidOnBoth:
	default:
		return bad("no geoid_target named '%s'", c.GeoidTarget)
	}

	return nil
}
