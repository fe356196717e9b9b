// Package report assembles the summary of a comparison run, saves it
// as YAML, and checks one summary against another.
package report

import(
	"fmt"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/demcompare/pkg/coreg"
	"github.com/abworrall/demcompare/pkg/stats"
)

// A Report is everything worth keeping from a run, minus the grids
type Report struct {
	Reference    string                  `yaml:"reference,omitempty"`
	Secondary    string                  `yaml:"secondary,omitempty"`

	State        string                  `yaml:"state"`
	Error        string                  `yaml:"error,omitempty"`
	Offset       coreg.OffsetEstimate    `yaml:"offset"`

	InitialStats stats.RobustStats       `yaml:"initial_stats"`
	FinalStats   stats.RobustStats       `yaml:"final_stats"`
	SlopeClasses []stats.ClassStats      `yaml:"slope_classes,omitempty"`
	Histogram    []stats.HistogramBar    `yaml:"histogram,omitempty"`

	Config       coreg.Config            `yaml:"config"`
}

// New builds a report from a coregistration result. The slope classes
// and histogram are worked out from the final difference grid; if that
// isn't possible (e.g. after a failure) they are left empty.
func New(res coreg.Result, cfg coreg.Config, classEdges []float64, histResolution float64) Report {
	r := Report{
		State:        res.State.String(),
		Offset:       res.Estimate,
		InitialStats: res.InitialStats,
		FinalStats:   res.Stats,
		Config:       cfg,
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}

	if res.Final == nil || res.SlopeAspect.Slope == nil {
		return r
	}

	if classes, err := stats.ByClass(res.Final, res.SlopeAspect.Slope, classEdges, cfg.OutlierPolicy()); err != nil {
		log.Printf("report: no slope classes: %v\n", err)
	} else {
		r.SlopeClasses = classes
	}

	if histResolution > 0 {
		if bars, err := stats.ErrorHistogram(res.Final, histResolution); err != nil {
			log.Printf("report: no histogram: %v\n", err)
		} else {
			r.Histogram = bars
		}
	}

	return r
}

func (r Report)AsYaml() string {
	b, err := yaml.Marshal(r)
	if err != nil {
		log.Fatalf("Can't marshal report yaml: %v\n", err)
	}
	return string(b)
}

func (r Report)Save(filename string) error {
	if err := ioutil.WriteFile(filename, []byte(r.AsYaml()), 0644); err != nil {
		return fmt.Errorf("report write '%s': %v", filename, err)
	}
	return nil
}

func Load(filename string) (Report, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Report{}, fmt.Errorf("report read '%s': %v", filename, err)
	}

	r := Report{}
	if err := yaml.Unmarshal(contents, &r); err != nil {
		return r, fmt.Errorf("report parse '%s': %v", filename, err)
	}
	return r, nil
}
