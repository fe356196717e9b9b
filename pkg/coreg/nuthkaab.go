// Package coreg estimates the 3D offset between two DEMs with the Nuth &
// Kaab (2011) method: the elevation difference between two misaligned
// surfaces, divided by the tangent of the slope, is a cosine of the
// aspect whose amplitude and phase give the horizontal shift. Fitting
// it, shifting the secondary DEM, and refitting converges on the offset.
package coreg

import(
	"fmt"
	"log"

	"github.com/abworrall/demcompare/pkg/dem"
	"github.com/abworrall/demcompare/pkg/emath"
	"github.com/abworrall/demcompare/pkg/stats"
)

// An IterationRecord is kept for every pass, for diagnostics and reports
type IterationRecord struct {
	Iteration int        `yaml:"iteration"`
	Applied   emath.Vec3 `yaml:"applied,flow"`  // correction increment applied in this iteration
	Total     emath.Vec3 `yaml:"total,flow"`    // cumulative correction after it
	Residual  float64    `yaml:"residual"`      // size of the increment the refit asks for next
	Fit       Fit        `yaml:"fit"`
	Median    float64    `yaml:"median"`        // of the outlier-free difference grid
	NMAD      float64    `yaml:"nmad"`
}

func (r IterationRecord)String() string {
	return fmt.Sprintf("iter %2d: applied %s total %s residual %.5f nmad %.4f",
		r.Iteration, r.Applied, r.Total, r.Residual, r.NMAD)
}

// An OffsetEstimate is the correction to apply to the secondary DEM to
// register it onto the reference:
//
//   coregistered(p) = secondary(p - (East,North)) + Vertical
//
// so a secondary lying 2m above the reference gives Vertical = -2.
type OffsetEstimate struct {
	East       float64           `yaml:"east"`
	North      float64           `yaml:"north"`
	Vertical   float64           `yaml:"vertical"`
	Iterations int               `yaml:"iterations"`
	History    []IterationRecord `yaml:"history"`
	Residual   float64           `yaml:"residual"`
	Converged  bool              `yaml:"converged"`
}

func (oe OffsetEstimate)String() string {
	return fmt.Sprintf("Offset[e=% .4f n=% .4f z=% .4f, %d iters, residual %.5f, converged=%v]",
		oe.East, oe.North, oe.Vertical, oe.Iterations, oe.Residual, oe.Converged)
}

// Result is everything a run produces. When State is Failed, Err says
// why and Estimate holds the last good estimate.
type Result struct {
	Estimate      OffsetEstimate
	State         State
	Err           error

	InitialStats  stats.RobustStats // of the difference grid before any correction
	Stats         stats.RobustStats // of the final, outlier-free, difference grid (P90 includes outliers)

	SlopeAspect   dem.SlopeAspectField
	Final         *dem.Grid // final difference grid, before outlier removal
	Coregistered  *dem.Grid // the secondary after applying Estimate
}

// engine carries the state machine for one run
type engine struct {
	cfg        Config
	ref, sec   *dem.Grid

	state      State
	err        error
	iteration  int

	sa         dem.SlopeAspectField
	total      emath.Vec3 // cumulative correction
	pending    emath.Vec3 // correction increment from the latest fit
	lastFit    Fit
	moved      *dem.Grid
	dh         *dem.Grid
	cleaned    *dem.Grid
	history    []IterationRecord
	initStats  stats.RobustStats
}

// Coregister estimates the offset that registers `sec` onto `ref`. The
// grids must share shape and georeferencing; neither is modified.
// Running out of iterations is not an error: the result comes back in
// the MaxIterationsReached state with Converged=false. Failures return
// the error, and a Result in the Failed state.
func Coregister(ref, sec *dem.Grid, cfg Config) (Result, error) {
	e := &engine{cfg: cfg, ref: ref, sec: sec, state: Initializing}

	for !e.state.Terminal() {
		e.state = e.step()
	}

	res := e.result()
	if res.State == Failed {
		return res, res.Err
	}
	return res, nil
}

// step is the transition function
func (e *engine)step() State {
	switch e.state {
	case Initializing:
		if err := e.initialize(); err != nil {
			return e.fail(err)
		}
		if e.pending.Norm() < e.cfg.ConvergenceTolerance {
			return Converged
		}
		return Iterating

	case Iterating:
		if err := e.iterate(); err != nil {
			return e.fail(err)
		}
		if e.pending.Norm() < e.cfg.ConvergenceTolerance {
			return Converged
		}
		if e.iteration >= e.cfg.MaxIterations {
			return MaxIterationsReached
		}
		return Iterating
	}
	return e.state
}

func (e *engine)fail(err error) State {
	e.err = err
	if e.cfg.Verbosity > 0 {
		log.Printf("coreg: failed at iteration %d: %v\n", e.iteration, err)
	}
	return Failed
}

func (e *engine)initialize() error {
	if err := e.cfg.Finalize(); err != nil {
		return err
	}
	if err := e.ref.Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := e.sec.Validate(); err != nil {
		return fmt.Errorf("secondary: %w", err)
	}
	if !e.ref.SameShape(e.sec) {
		return fmt.Errorf("%w: reference is %dx%d, secondary is %dx%d",
			dem.ErrInvalidGrid, e.ref.Dx(), e.ref.Dy(), e.sec.Dx(), e.sec.Dy())
	}

	if e.cfg.Geoid != nil {
		var err error
		if e.cfg.GeoidTarget == GeoidOnReference || e.cfg.GeoidTarget == GeoidOnBoth {
			if e.ref, err = dem.ApplyGeoid(e.ref, e.cfg.Geoid); err != nil {
				return fmt.Errorf("reference geoid: %w", err)
			}
		}
		if e.cfg.GeoidTarget == GeoidOnSecondary || e.cfg.GeoidTarget == GeoidOnBoth {
			if e.sec, err = dem.ApplyGeoid(e.sec, e.cfg.Geoid); err != nil {
				return fmt.Errorf("secondary geoid: %w", err)
			}
		}
	}

	// Only the secondary moves, so the reference slope/aspect is computed just once
	sa, err := dem.SlopeAspect(e.ref, e.cfg.Workers)
	if err != nil {
		return fmt.Errorf("reference slope/aspect: %w", err)
	}
	e.sa = sa

	e.total = emath.Vec3{e.cfg.InitialOffset.East, e.cfg.InitialOffset.North, 0}
	if err := e.resample(); err != nil {
		return err
	}

	if e.initStats, err = stats.Compute(e.dh, e.cfg.CDFThresholds); err != nil {
		return fmt.Errorf("initial difference: %w", err)
	}

	if err := e.refit(); err != nil {
		return err
	}

	if e.cfg.Verbosity > 0 {
		log.Printf("coreg: initial %s\n", e.initStats)
		log.Printf("coreg: initial %s\n", e.lastFit)
	}
	return nil
}

func (e *engine)iterate() error {
	e.iteration++
	applied := e.pending
	e.total = e.total.Add(applied)

	if err := e.resample(); err != nil {
		return err
	}
	if err := e.refit(); err != nil {
		return fmt.Errorf("iteration %d: %w", e.iteration, err)
	}

	vals := e.cleaned.ValidValues()
	rec := IterationRecord{
		Iteration: e.iteration,
		Applied:   applied,
		Total:     e.total,
		Residual:  e.pending.Norm(),
		Fit:       e.lastFit,
		Median:    stats.Median(vals),
		NMAD:      stats.NMAD(vals),
	}
	e.history = append(e.history, rec)

	if e.cfg.Verbosity > 0 {
		log.Printf("coreg: %s\n", rec)
	}
	return nil
}

// resample shifts the original secondary by the cumulative correction
// and recomputes the difference grid. Always starting from the
// original avoids compounding interpolation blur over iterations.
func (e *engine)resample() error {
	moved, err := dem.Shift(e.sec, e.total[0], e.total[1], e.total[2])
	if err != nil {
		return err
	}
	dh, err := dem.Difference(e.ref, moved)
	if err != nil {
		return err
	}
	e.moved, e.dh = moved, dh
	return nil
}

// refit fits the current difference grid and sets the pending increment
func (e *engine)refit() error {
	fit, cleaned, err := fitOffset(e.cfg, e.dh, e.sa)
	if err != nil {
		return err
	}
	e.lastFit = fit
	e.cleaned = cleaned
	e.pending = fit.Shift.Scale(-1)
	return nil
}

func (e *engine)result() Result {
	res := Result{
		Estimate: OffsetEstimate{
			East:       e.total[0],
			North:      e.total[1],
			Vertical:   e.total[2],
			Iterations: e.iteration,
			History:    e.history,
			Residual:   e.pending.Norm(),
			Converged:  e.state == Converged,
		},
		State:        e.state,
		Err:          e.err,
		InitialStats: e.initStats,
		SlopeAspect:  e.sa,
		Final:        e.dh,
		Coregistered: e.moved,
	}

	if e.state != Failed && e.cleaned != nil {
		s, err := stats.Compute(e.cleaned, e.cfg.CDFThresholds)
		if err != nil {
			// Can't happen in practice: the fit needed MinValidCells of these
			res.State, res.Err = Failed, err
			return res
		}
		// P90 is the one stat that keeps the outliers in
		s.P90 = stats.P90(e.dh.ValidValues())
		res.Stats = s
	}

	if e.cfg.Verbosity > 0 {
		log.Printf("coreg: %s: %s\n", res.State, res.Estimate)
	}
	return res
}
