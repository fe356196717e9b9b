package coreg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/stats"
)

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Finalize())

	assert.Equal(t, 10, c.MaxIterations)
	assert.Equal(t, 3.0, c.OutlierThreshold)
	assert.Equal(t, stats.SpreadNMAD, c.OutlierSpread)
	assert.Equal(t, 0.01, c.ConvergenceTolerance)
	assert.Equal(t, []float64{0.5, 0.68, 0.95, 0.99}, c.CDFThresholds)
	assert.Equal(t, GeoidOnSecondary, c.GeoidTarget)

	// The defaults must not alias the package-level slice
	c.CDFThresholds[0] = 0.1
	assert.Equal(t, 0.5, stats.DefaultCDFThresholds[0])
}

func TestConfig_YamlRoundTrip(t *testing.T) {
	c := NewConfig()
	c.MaxIterations = 7
	c.OutlierSpread = stats.SpreadStd
	c.InitialOffset = Offset2D{East: 2.5, North: -1}
	c.GeoidTarget = GeoidOnBoth

	filename := filepath.Join(t.TempDir(), "coreg.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(c.AsYaml()), 0644))

	c2, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	c, err := newConfigFromYaml([]byte("max_iterations: 3\noutlier_threshold: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxIterations)
	assert.Equal(t, 0.0, c.OutlierThreshold)
	assert.Equal(t, NewConfig().ConvergenceTolerance, c.ConvergenceTolerance)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	for _, bad := range []string{
		"max_iterations: 0",
		"convergence_tolerance: -1",
		"outlier_spread: iqr",
		"geoid_target: moon",
		"cdf_thresholds: [0.9, 0.5]",
		"aspect_bin_width_degrees: 0",
		"min_slope_degrees: 50\nmax_slope_degrees: 40",
	} {
		_, err := newConfigFromYaml([]byte(bad))
		require.ErrorIs(t, err, dem.ErrInvalidConfig, bad)
	}

	_, err = newConfigFromYaml([]byte("max_iterations: [1"))
	require.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Converged", Converged.String())
	assert.Equal(t, "MaxIterationsReached", MaxIterationsReached.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.True(t, Failed.Terminal())
	assert.False(t, Iterating.Terminal())
}
