package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/dataset-prep/pkg/pipeline"
)

func TestNextWorkingDirFaceDetectRedirects(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	training := filepath.Join(current, "training_faces")
	require.NoError(t, os.Mkdir(training, 0755))

	res := pipeline.StepResult{
		Success:       true,
		FilterApplied: true,
		TrainingDir:   training,
	}
	assert.Equal(t, training, pipeline.NextWorkingDir(pipeline.StepFaceDetect, res, current))
}

func TestNextWorkingDirFaceDetectNoFilter(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	training := filepath.Join(current, "training_faces")
	require.NoError(t, os.Mkdir(training, 0755))

	// classify_all reports the directory but applies no filter
	res := pipeline.StepResult{
		Success:       true,
		FilterApplied: false,
		TrainingDir:   training,
	}
	assert.Equal(t, current, pipeline.NextWorkingDir(pipeline.StepFaceDetect, res, current))
}

func TestNextWorkingDirFaceDetectMissingDir(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	res := pipeline.StepResult{
		Success:       true,
		FilterApplied: true,
		TrainingDir:   filepath.Join(current, "does_not_exist"),
	}
	assert.Equal(t, current, pipeline.NextWorkingDir(pipeline.StepFaceDetect, res, current))
}

func TestNextWorkingDirOutputSteps(t *testing.T) {
	t.Parallel()

	for _, step := range []pipeline.StepID{pipeline.StepCluster, pipeline.StepCrop, pipeline.StepUpscale} {
		current := t.TempDir()
		output := filepath.Join(current, "out")
		require.NoError(t, os.Mkdir(output, 0755))

		res := pipeline.StepResult{Success: true, OutputDir: output}
		assert.Equal(t, output, pipeline.NextWorkingDir(step, res, current), step.String())

		// Same output dir means no redirect
		res = pipeline.StepResult{Success: true, OutputDir: current}
		assert.Equal(t, current, pipeline.NextWorkingDir(step, res, current), step.String())

		// Missing output dir means no redirect
		res = pipeline.StepResult{Success: true, OutputDir: filepath.Join(current, "gone")}
		assert.Equal(t, current, pipeline.NextWorkingDir(step, res, current), step.String())
	}
}

func TestNextWorkingDirInPlaceSteps(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	other := t.TempDir()

	for _, step := range []pipeline.StepID{pipeline.StepValidate, pipeline.StepTag} {
		res := pipeline.StepResult{Success: true, OutputDir: other}
		assert.Equal(t, current, pipeline.NextWorkingDir(step, res, current), step.String())
	}
}

func TestNextWorkingDirUnknownStep(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	res := pipeline.StepResult{Success: true, OutputDir: t.TempDir()}
	assert.Equal(t, current, pipeline.NextWorkingDir(pipeline.StepID(99), res, current))
}

// The resolver is a pure function: same inputs, same answer, every time.
func TestNextWorkingDirIdempotent(t *testing.T) {
	t.Parallel()

	current := t.TempDir()
	output := filepath.Join(current, "cropped_images")
	require.NoError(t, os.Mkdir(output, 0755))

	res := pipeline.StepResult{Success: true, OutputDir: output}

	first := pipeline.NextWorkingDir(pipeline.StepCrop, res, current)
	second := pipeline.NextWorkingDir(pipeline.StepCrop, res, current)
	assert.Equal(t, first, second)
	assert.Equal(t, output, first)
}
