package recycle

import (
	"errors"
	"fmt"
)

// ErrRecycleNotConverged indicates a recycle group exhausted its passes.
var ErrRecycleNotConverged = errors.New("recycle: recycle not converged")

// Residual is the worst disagreement between a pass's input and output
// tear streams.
type Residual struct {
	Flow        float64 // largest relative component flow error
	FlowStream  string
	Component   string
	Temperature float64 // largest absolute temperature error [K]
	TempStream  string
}

// within reports whether r satisfies both tolerances.
func (r Residual) within(rel, temp float64) bool {
	return r.Flow <= rel && r.Temperature <= temp
}

func (r Residual) String() string {
	return fmt.Sprintf("flow %.3g (stream %s, component %s), temperature %.3g K (stream %s)",
		r.Flow, r.FlowStream, r.Component, r.Temperature, r.TempStream)
}

// ConvergenceError names the group that failed and its last residual.
type ConvergenceError struct {
	Group    string
	Passes   int
	Residual Residual
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%v: group %s after %d passes: %s", ErrRecycleNotConverged, e.Group, e.Passes, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return ErrRecycleNotConverged }

// UnitError wraps a failed unit simulation.
type UnitError struct {
	Unit string
	Pass int
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("recycle: unit %s (pass %d): %v", e.Unit, e.Pass, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
