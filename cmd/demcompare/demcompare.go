package main

import(
	"flag"
	"log"

	"github.com/abworrall/demcompare/pkg/coreg"
	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/demio"
	"github.com/abworrall/demcompare/pkg/report"
	"github.com/abworrall/demcompare/pkg/stats"
)

var(
	fConfigFilename string
	fReferenceFilename string
	fSecondaryFilename string
	fGeoidFilename string
	fGeoidTarget string
	fSummaryFilename string
	fDiffFilename string
	fCoregFilename string
	fWavePrefix string
	fMaxIterations int
	fTolerance float64
	fHistogramResolution float64
	fWorkers int
	fVerbosity int
)

func init() {
	flag.StringVar(&fConfigFilename, "config", "", "YAML config file (optional)")
	flag.StringVar(&fReferenceFilename, "ref", "", "reference DEM (.tif, with .yaml sidecar)")
	flag.StringVar(&fSecondaryFilename, "sec", "", "secondary DEM, the one that gets moved")
	flag.StringVar(&fGeoidFilename, "geoid", "", "geoid grid to add to the inputs (optional)")
	flag.StringVar(&fGeoidTarget, "geoidtarget", "", "which input the geoid applies to: secondary, reference, both")
	flag.StringVar(&fSummaryFilename, "o", "summary.yaml", "name of output summary file")
	flag.StringVar(&fDiffFilename, "dh", "", "write the final difference grid to this .tif")
	flag.StringVar(&fCoregFilename, "coreg", "", "write the coregistered secondary to this .tif")
	flag.StringVar(&fWavePrefix, "wave", "", "write row/col wave detection grids to <prefix>_row.tif and <prefix>_col.tif")
	flag.IntVar(&fMaxIterations, "maxiter", 0, "max Nuth & Kaab iterations (overrides config)")
	flag.Float64Var(&fTolerance, "tol", 0, "convergence tolerance in ground units (overrides config)")
	flag.Float64Var(&fHistogramResolution, "histres", 0.01, "resolution of the error histogram, in elevation units")
	flag.IntVar(&fWorkers, "workers", 0, "number of worker goroutines (overrides config)")
	flag.IntVar(&fVerbosity, "v", 0, "verbosity")
	flag.Parse()

	log.Printf("Starting\n")
}

func main() {
	if fReferenceFilename == "" || fSecondaryFilename == "" {
		log.Fatal("need both -ref and -sec")
	}

	cfg := coreg.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = coreg.LoadConfig(fConfigFilename); err != nil {
			log.Fatal(err)
		}
	}

	// Override the config file with command line args, if relevant
	if fMaxIterations > 0 { cfg.MaxIterations = fMaxIterations }
	if fTolerance > 0 { cfg.ConvergenceTolerance = fTolerance }
	if fWorkers > 0 { cfg.Workers = fWorkers }
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }
	if fGeoidTarget != "" { cfg.GeoidTarget = fGeoidTarget }

	ref, err := demio.Load(fReferenceFilename)
	if err != nil {
		log.Fatal(err)
	}
	sec, err := demio.Load(fSecondaryFilename)
	if err != nil {
		log.Fatal(err)
	}
	if fGeoidFilename != "" {
		if cfg.Geoid, err = demio.Load(fGeoidFilename); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("Loaded reference %s, secondary %s\n", ref, sec)
	if cfg.Verbosity > 1 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	res, err := coreg.Coregister(ref, sec, cfg)
	if err != nil {
		log.Printf("Coregistration failed: %v\n", err)
	} else {
		log.Printf("%s: %s\n", res.State, res.Estimate)
		log.Printf("before: %s\n", res.InitialStats)
		log.Printf(" after: %s\n", res.Stats)
	}

	r := report.New(res, cfg, stats.DefaultSlopeClasses, fHistogramResolution)
	r.Reference, r.Secondary = fReferenceFilename, fSecondaryFilename
	if err := r.Save(fSummaryFilename); err != nil {
		log.Fatal(err)
	}
	log.Printf("Summary written '%s'\n", fSummaryFilename)

	if fDiffFilename != "" && res.Final != nil {
		if _, err := demio.Save(res.Final, fDiffFilename); err != nil {
			log.Fatal(err)
		}
		log.Printf("Difference grid written '%s'\n", fDiffFilename)
	}
	if fCoregFilename != "" && res.Coregistered != nil {
		if _, err := demio.Save(res.Coregistered, fCoregFilename); err != nil {
			log.Fatal(err)
		}
		log.Printf("Coregistered DEM written '%s'\n", fCoregFilename)
	}

	if fWavePrefix != "" && res.Final != nil {
		rowWise, colWise, err := stats.WaveDetection(res.Final)
		if err != nil {
			log.Fatal(err)
		}
		for suffix, g := range map[string]*dem.Grid{"_row.tif": rowWise, "_col.tif": colWise} {
			if _, err := demio.Save(g, fWavePrefix + suffix); err != nil {
				log.Fatal(err)
			}
		}
		log.Printf("Wave detection grids written '%s_{row,col}.tif'\n", fWavePrefix)
	}

	if res.State == coreg.Failed {
		log.Fatalf("Finished with state %s\n", res.State)
	}
}
