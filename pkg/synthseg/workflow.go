package synthseg

import (
	"context"
	"os"
	"time"
)

// State identifies where a segmentation run currently is in its lifecycle.
// A run proceeds strictly Idle -> Validating -> Invoking -> Importing -> Done;
// Failed is reachable from any state and is terminal for that run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateInvoking
	StateImporting
	StateDone
	StateFailed
)

// String returns a short identifier for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateInvoking:
		return "invoking"
	case StateImporting:
		return "importing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ImportSummary describes what a successful import produced.
type ImportSummary struct {
	// StructureCount is the number of distinct anatomical structures found.
	StructureCount int

	// TotalVolumeMM3 is the summed volume of all structures in cubic millimeters.
	TotalVolumeMM3 float64
}

// Importer loads the tool's two output files and attaches the resulting
// nodes to whatever the caller treats as its scene. Keeping this behind an
// interface keeps the workflow independent of any particular host.
type Importer interface {
	Import(segPath, volPath string) (ImportSummary, error)
}

// RunReport is the outcome of a single workflow run.
type RunReport struct {
	// State is the terminal state of the run: StateDone or StateFailed.
	State State

	// ExitCode is the child's exit code, or -1 when no process completed.
	ExitCode int

	// Log is the combined output captured from the child process.
	Log string

	// Summary describes the imported results; zero-valued unless State is Done.
	Summary ImportSummary

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Workflow drives one segmentation run end to end:
// validate the environment, build the argument list, run the child process,
// and import the results. Control flow is strictly linear with no retries;
// the import step never begins before the child's exit code is known.
//
// A Workflow assumes single-run-at-a-time usage. Overlapping runs against the
// same output paths would race on the output files; nothing here locks
// against that.
type Workflow struct {
	// Env is the configured installation to run against.
	Env Environment

	// Runner launches the child process. Defaults to ProcessRunner.
	Runner Runner

	// Importer loads the output files after a successful run. Required.
	Importer Importer

	// Sink, when set, receives child process output line by line.
	Sink LineSink

	// OnState, when set, observes every state transition.
	OnState func(State)

	// Timeout bounds the child process's run time. Zero disables the guard,
	// in which case a hung child must be cancelled through ctx.
	Timeout time.Duration

	state State
}

// NewWorkflow returns a workflow for the given environment and importer,
// using the real process runner.
func NewWorkflow(env Environment, importer Importer) *Workflow {
	return &Workflow{
		Env:      env,
		Runner:   ProcessRunner{},
		Importer: importer,
	}
}

// State returns the workflow's current state.
func (w *Workflow) State() State {
	return w.state
}

func (w *Workflow) transition(s State) {
	w.state = s
	if w.OnState != nil {
		w.OnState(s)
	}
}

// fail marks the run as terminally failed and returns the report and error.
// Every failure path leaves the caller able to start a fresh run.
func (w *Workflow) fail(report *RunReport, start time.Time, err error) (*RunReport, error) {
	w.transition(StateFailed)
	report.State = StateFailed
	report.Elapsed = time.Since(start)
	return report, err
}

// Run executes the full Validate -> Build -> Run -> Import sequence for one
// request. The returned error, when non-nil, is one of *ConfigurationError,
// *InvocationError, *SilentFailureError or *ImportError.
func (w *Workflow) Run(ctx context.Context, req Request) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{ExitCode: -1}
	w.transition(StateIdle)

	// Step 1: validate the configured environment before touching anything.
	w.transition(StateValidating)
	if result := w.Env.Validate(); !result.Valid() {
		return w.fail(report, start, &ConfigurationError{Result: result})
	}

	// Step 2: build the argument list. Pure; never fails.
	args := BuildArgs(w.Env, req)

	// Step 3: launch the child and wait for it.
	w.transition(StateInvoking)
	runCtx := ctx
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	runner := w.Runner
	if runner == nil {
		runner = ProcessRunner{}
	}
	result, err := runner.Run(runCtx, w.Env, args, w.Sink)
	if result != nil {
		report.ExitCode = result.ExitCode
		report.Log = result.Log
	}
	if err != nil {
		invErr := &InvocationError{ExitCode: -1, Err: err}
		if result != nil {
			invErr.ExitCode = result.ExitCode
			invErr.Log = result.Log
		}
		return w.fail(report, start, invErr)
	}
	if result.ExitCode != 0 {
		return w.fail(report, start, &InvocationError{ExitCode: result.ExitCode, Log: result.Log})
	}

	// The tool is known to exit 0 without producing output when its package
	// environment is broken. Check for the files before claiming success.
	var missing []string
	for _, path := range []string{req.SegPath, req.VolPath} {
		if _, statErr := os.Stat(path); statErr != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return w.fail(report, start, &SilentFailureError{Missing: missing})
	}

	// Step 4: import the results.
	w.transition(StateImporting)
	summary, err := w.Importer.Import(req.SegPath, req.VolPath)
	if err != nil {
		return w.fail(report, start, &ImportError{Err: err})
	}

	w.transition(StateDone)
	report.State = StateDone
	report.Summary = summary
	report.Elapsed = time.Since(start)
	return report, nil
}
