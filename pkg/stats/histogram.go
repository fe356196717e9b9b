package stats

import(
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"

	"github.com/abworrall/demcompare/pkg/dem"
)

// A HistogramBar counts the errors with From <= |v| <= To
type HistogramBar struct {
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
	Count int64   `yaml:"count"`
}

// histogramSigFigs is the precision the HDR histogram keeps per bucket
const histogramSigFigs = 3

// ErrorHistogram bins the absolute errors of the valid cells of `g`,
// quantized to `resolution` ground units, into an HDR histogram and
// returns its non-empty bars. Bars are narrow near zero and widen with
// magnitude, which suits error distributions with long tails.
func ErrorHistogram(g *dem.Grid, resolution float64) ([]HistogramBar, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("%w: histogram resolution %g", dem.ErrInvalidConfig, resolution)
	}

	values := g.ValidValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no valid samples to histogram", dem.ErrInsufficientValidData)
	}

	top := int64(2)
	quantized := make([]int64, len(values))
	for i, v := range values {
		quantized[i] = int64(math.Round(math.Abs(v) / resolution))
		if quantized[i] >= top {
			top = quantized[i] + 1
		}
	}

	h := hdrhistogram.New(1, top, histogramSigFigs)
	for _, q := range quantized {
		if err := h.RecordValue(q); err != nil {
			return nil, fmt.Errorf("histogram record %d: %v", q, err)
		}
	}

	bars := []HistogramBar{}
	for _, b := range h.Distribution() {
		if b.Count == 0 {
			continue
		}
		bars = append(bars, HistogramBar{
			From:  float64(b.From) * resolution,
			To:    float64(b.To) * resolution,
			Count: b.Count,
		})
	}
	return bars, nil
}
