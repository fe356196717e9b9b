package report

import(
	"errors"
	"fmt"
	"math"

	"github.com/abworrall/demcompare/pkg/stats"
)

// ErrIncomparable means two reports don't describe the same things
// (different slope classes, say), so their numbers can't be lined up.
var ErrIncomparable = errors.New("reports are not comparable")

// A Difference is one number that moved by more than epsilon
type Difference struct {
	Set      string  `yaml:"set"`   // which group of numbers, e.g. a slope class label
	Name     string  `yaml:"name"`
	Baseline float64 `yaml:"baseline"`
	Current  float64 `yaml:"current"`
	Detail   string  `yaml:"detail,omitempty"` // for differences that aren't numbers
}

func (d Difference)String() string {
	if d.Detail != "" {
		return fmt.Sprintf("%s/%s: %s", d.Set, d.Name, d.Detail)
	}
	return fmt.Sprintf("%s/%s: baseline %g, current %g", d.Set, d.Name, d.Baseline, d.Current)
}

type namedValue struct {
	name string
	val  float64
}

func statValues(s stats.RobustStats) []namedValue {
	return []namedValue{
		{"nbpts", float64(s.Count)},
		{"min", s.Min},
		{"max", s.Max},
		{"mean", s.Mean},
		{"median", s.Median},
		{"std", s.Std},
		{"rmse", s.RMSE},
		{"nmad", s.NMAD},
		{"sum_err", s.Sum},
		{"sum_err_err", s.SumSquares},
		{"p90", s.P90},
	}
}

// CompareWithBaseline lists every number in `cur` that differs from the
// one in `base` by more than epsilon. An empty list means they agree.
// Reports whose slope classes differ can't be compared at all.
func CompareWithBaseline(base, cur Report, epsilon float64) ([]Difference, error) {
	if !(epsilon >= 0) {
		return nil, fmt.Errorf("epsilon must be non-negative, got %g", epsilon)
	}
	if len(base.SlopeClasses) != len(cur.SlopeClasses) {
		return nil, fmt.Errorf("%w: %d slope classes in baseline, %d in current",
			ErrIncomparable, len(base.SlopeClasses), len(cur.SlopeClasses))
	}

	diffs := []Difference{}
	check := func(set string, b, c []namedValue) {
		for i := range b {
			if !within(b[i].val, c[i].val, epsilon) {
				diffs = append(diffs, Difference{Set: set, Name: b[i].name, Baseline: b[i].val, Current: c[i].val})
			}
		}
	}

	if base.State != cur.State {
		diffs = append(diffs, Difference{Set: "offset", Name: "state",
			Detail: fmt.Sprintf("baseline %s, current %s", base.State, cur.State)})
	}
	check("offset",
		[]namedValue{{"east", base.Offset.East}, {"north", base.Offset.North}, {"vertical", base.Offset.Vertical},
			{"iterations", float64(base.Offset.Iterations)}},
		[]namedValue{{"east", cur.Offset.East}, {"north", cur.Offset.North}, {"vertical", cur.Offset.Vertical},
			{"iterations", float64(cur.Offset.Iterations)}})

	check("initial", statValues(base.InitialStats), statValues(cur.InitialStats))
	check("final", statValues(base.FinalStats), statValues(cur.FinalStats))

	for i := range base.SlopeClasses {
		bc, cc := base.SlopeClasses[i], cur.SlopeClasses[i]
		if bc.Label != cc.Label {
			return nil, fmt.Errorf("%w: slope class %d is '%s' in baseline, '%s' in current",
				ErrIncomparable, i, bc.Label, cc.Label)
		}
		check(bc.Label,
			append(statValues(bc.Stats), namedValue{"percent", bc.Percent}),
			append(statValues(cc.Stats), namedValue{"percent", cc.Percent}))
	}

	return diffs, nil
}

// within treats two NaNs as equal, as both reports failed to get a number
func within(a, b, epsilon float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= epsilon
}
