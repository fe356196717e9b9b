package coreg

import "fmt"

// State of a coregistration run
type State int

const(
	Initializing State = iota
	Iterating
	Converged
	MaxIterationsReached
	Failed
)

func (s State)String() string {
	switch s {
	case Initializing:         return "Initializing"
	case Iterating:            return "Iterating"
	case Converged:            return "Converged"
	case MaxIterationsReached: return "MaxIterationsReached"
	case Failed:               return "Failed"
	default:                   return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal states end the run
func (s State)Terminal() bool {
	return s == Converged || s == MaxIterationsReached || s == Failed
}
