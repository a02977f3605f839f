package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Executor runs one step over a working directory. Implementations must never
// panic outward: any internal error is converted into a failed StepResult so
// the best-effort policy of the orchestrator can proceed.
type Executor func(ctx context.Context, workingDir string) StepResult

// ErrNoInputDir is returned by Run when the input directory does not exist.
var ErrNoInputDir = errors.New("input directory does not exist")

// Orchestrator executes a user-selected subset of the canonical steps over a
// single evolving working directory.
//
// Failure policy: no step failure aborts the run. A failed step is counted,
// its result recorded, and the next selected step runs against the same
// directory the failed step received. Partial results from a long batch run
// are worth more than an all-or-nothing abort; do not change this into an
// early-exit loop.
type Orchestrator struct {
	executors map[StepID]Executor
	log       *zap.SugaredLogger
}

// New creates an orchestrator from a step-executor registry.
func New(executors map[StepID]Executor, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{executors: executors, log: log}
}

// Run executes every selected step in canonical order over inputDir and
// reports aggregate plus per-step outcomes.
//
// Selected ids outside the canonical step set are skipped with a log line and
// do not count toward the totals. A canonical step selected but missing from
// the executor registry counts as failed without being invoked. Steps are
// strictly sequential; one finishes its whole directory before the next
// starts. Cancellation is only observed between steps, never inside one:
// remaining selected steps are recorded as failed with the context error so
// the completed+failed==total invariant holds.
func (o *Orchestrator) Run(ctx context.Context, inputDir string, selected []StepID) (Result, error) {
	start := time.Now()

	if !dirExists(inputDir) {
		return Result{}, errors.Wrap(ErrNoInputDir, inputDir)
	}

	if len(selected) == 0 {
		selected = Order
	}

	plan := o.plan(selected)

	runID := uuid.NewString()
	o.log.Infow("starting pipeline run",
		"run_id", runID,
		"input_dir", inputDir,
		"steps", stepNamesOf(plan),
	)

	state := newState(inputDir)
	state.Stats.TotalSteps = len(plan)

	currentDir := inputDir
	canceled := false

	for _, step := range plan {
		if !canceled && ctx.Err() != nil {
			canceled = true
		}
		if canceled {
			state.record(Failure(step, ctx.Err()))
			continue
		}

		exec, ok := o.executors[step]
		if !ok {
			o.log.Errorw("no executor registered for step", "step", step)
			state.record(StepResult{
				Step:    step,
				Success: false,
				Message: "no executor registered for step " + step.String(),
			})
			continue
		}

		o.log.Infow("executing step", "step", step, "working_dir", currentDir)
		res := exec(ctx, currentDir)
		res.Step = step
		state.record(res)

		if !res.Success {
			// Working directory stays put; the next step sees what this one saw.
			o.log.Errorw("step failed", "step", step, "message", res.Message)
			continue
		}

		o.log.Infow("step completed", "step", step, "message", res.Message)

		next := NextWorkingDir(step, res, currentDir)
		if next != currentDir {
			o.log.Infow("working directory updated", "from", currentDir, "to", next)
			currentDir = next
		}
	}

	state.CurrentInputDir = currentDir

	result := Result{
		RunID:           runID,
		Success:         state.Stats.FailedSteps == 0,
		Message:         summaryMessage(state.Stats),
		State:           *state,
		FinalWorkingDir: currentDir,
		Elapsed:         time.Since(start),
	}

	o.log.Infow("pipeline run finished",
		"run_id", runID,
		"message", result.Message,
		"final_working_dir", currentDir,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

// plan intersects the selection with the canonical order: steps run in Order,
// duplicates collapse, ids outside the step set are dropped.
func (o *Orchestrator) plan(selected []StepID) []StepID {
	want := make(map[StepID]bool, len(selected))
	for _, id := range selected {
		if !id.Known() {
			o.log.Warnw("ignoring unknown step id", "step", int(id))
			continue
		}
		want[id] = true
	}

	var plan []StepID
	for _, step := range Order {
		if want[step] {
			plan = append(plan, step)
		}
	}
	return plan
}

func stepNamesOf(steps []StepID) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.String()
	}
	return names
}
