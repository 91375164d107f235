package evolve

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/popsynth/internal/units"
)

// Domain errors for evolution runs.
var (
	// ErrTimeStep indicates a time step that is not a positive duration.
	ErrTimeStep = errors.New("evolve: time step must be a positive duration")

	// ErrEndTime indicates an end time that is not a duration.
	ErrEndTime = errors.New("evolve: end time must be a duration")

	// ErrNotIdle indicates a driver that has already run.
	ErrNotIdle = errors.New("evolve: driver is not idle")

	// ErrNoEngine indicates a driver built without an engine factory.
	ErrNoEngine = errors.New("evolve: no engine factory")
)

// State is the lifecycle phase of a Driver.
type State int

const (
	Idle State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Progress describes one completed engine advance.
type Progress struct {
	Step  int // 1-based
	Total int
	Time  units.Quantity
	End   units.Quantity
	Wall  time.Duration // spent inside the engine for this step
}

// Observer is notified after every engine advance.
type Observer interface {
	OnStep(p Progress)
}

// StateObserver is optionally implemented by observers that track the
// driver's lifecycle.
type StateObserver interface {
	OnState(from, to State)
}

// Result summarises a finished run. The evolved state itself lives in the
// caller's stores.
type Result struct {
	Steps     int
	ModelTime units.Quantity
	Wall      time.Duration
}

// StepError wraps an engine failure with the step it happened at.
type StepError struct {
	Step    int
	Time    units.Quantity
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%s): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
