package main

import(
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abworrall/demcompare/pkg/report"
)

var(
	fBaselineFilename string
	fCurrentFilename string
	fEpsilon float64
)

func init() {
	flag.StringVar(&fBaselineFilename, "baseline", "baseline/summary.yaml", "summary file of the baseline run")
	flag.StringVar(&fCurrentFilename, "current", "summary.yaml", "summary file of the run to check")
	flag.Float64Var(&fEpsilon, "epsilon", 1e-15, "largest difference that still counts as equal")
	flag.Parse()
}

func main() {
	base, err := report.Load(fBaselineFilename)
	if err != nil {
		log.Fatal(err)
	}
	cur, err := report.Load(fCurrentFilename)
	if err != nil {
		log.Fatal(err)
	}

	diffs, err := report.CompareWithBaseline(base, cur, fEpsilon)
	if err != nil {
		log.Fatal(err)
	}

	if len(diffs) == 0 {
		fmt.Printf("No difference between '%s' and '%s'\n", fBaselineFilename, fCurrentFilename)
		return
	}

	fmt.Printf("%d differences between '%s' and '%s':\n", len(diffs), fBaselineFilename, fCurrentFilename)
	for _, d := range diffs {
		fmt.Printf("  %s\n", d)
	}
	os.Exit(1)
}
