package pipeline

import (
	"fmt"
	"time"
)

// StepResult is the structured outcome of one step execution. The orchestrator
// reads Success for its stats, the resolver reads OutputDir, TrainingDir, and
// FilterApplied for directory redirection; the remaining fields are
// step-specific metrics carried through to the final report.
type StepResult struct {
	Step    StepID `json:"step"`
	Success bool   `json:"success"`
	Message string `json:"message"`

	// OutputDir, when set, is the directory the step wrote results into. It
	// must exist on disk by the time the result is returned.
	OutputDir string `json:"output_directory,omitempty"`

	// Face detection
	FilterApplied    bool        `json:"filter_applied,omitempty"`
	TrainingDir      string      `json:"training_directory,omitempty"`
	ExcludedDir      string      `json:"excluded_directory,omitempty"`
	TrainingCount    int         `json:"training_count,omitempty"`
	ExcludedCount    int         `json:"excluded_count,omitempty"`
	FaceDistribution map[int]int `json:"face_distribution,omitempty"`

	// Validation
	ValidCount   int `json:"valid_count,omitempty"`
	InvalidCount int `json:"invalid_count,omitempty"`

	// Clustering
	Survivors  int `json:"survivors,omitempty"`
	Duplicates int `json:"duplicates,omitempty"`

	// Cropping
	SuccessfulCrops int            `json:"successful_crops,omitempty"`
	FailedCrops     int            `json:"failed_crops,omitempty"`
	CropCategories  map[string]int `json:"crop_categories,omitempty"`

	// Tagging
	SuccessfulTags int `json:"successful_tags,omitempty"`
	FailedTags     int `json:"failed_tags,omitempty"`
	TotalTags      int `json:"total_tags_generated,omitempty"`

	// Upscaling
	SuccessfulUpscales int `json:"successful_upscales,omitempty"`
	FailedUpscales     int `json:"failed_upscales,omitempty"`
	SkippedFiles       int `json:"skipped_files,omitempty"`
}

// Failure builds a failed StepResult from an error.
func Failure(step StepID, err error) StepResult {
	return StepResult{
		Step:    step,
		Success: false,
		Message: fmt.Sprintf("%s failed: %v", step, err),
	}
}

// Stats aggregates per-run counters.
type Stats struct {
	TotalSteps     int                   `json:"total_steps"`
	CompletedSteps int                   `json:"completed_steps"`
	FailedSteps    int                   `json:"failed_steps"`
	StepDetails    map[StepID]StepResult `json:"step_details"`
}

// State is the mutable accumulator owned by a single Run call. It is created
// fresh per run and returned inside the Result; it is never shared between
// concurrent runs.
type State struct {
	CurrentInputDir string       `json:"current_input_dir"`
	StepOutputs     []StepResult `json:"step_outputs"` // insertion order == execution order
	Stats           Stats        `json:"processing_stats"`
}

func newState(inputDir string) *State {
	return &State{
		CurrentInputDir: inputDir,
		Stats: Stats{
			StepDetails: make(map[StepID]StepResult),
		},
	}
}

func (s *State) record(res StepResult) {
	s.StepOutputs = append(s.StepOutputs, res)
	s.Stats.StepDetails[res.Step] = res
	if res.Success {
		s.Stats.CompletedSteps++
	} else {
		s.Stats.FailedSteps++
	}
}

// Result is the external-facing summary of one pipeline run.
type Result struct {
	RunID           string        `json:"run_id"`
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	State           State         `json:"pipeline_state"`
	FinalWorkingDir string        `json:"final_working_dir"`
	Elapsed         time.Duration `json:"elapsed"`
}

// CompletedAny reports whether at least one step finished successfully. The
// CLI uses this for its exit code.
func (r Result) CompletedAny() bool {
	return r.State.Stats.CompletedSteps > 0
}

func summaryMessage(stats Stats) string {
	rate := 0.0
	if stats.TotalSteps > 0 {
		rate = float64(stats.CompletedSteps) / float64(stats.TotalSteps) * 100
	}
	return fmt.Sprintf("pipeline finished. completed %d/%d steps (%.1f%%)",
		stats.CompletedSteps, stats.TotalSteps, rate)
}
