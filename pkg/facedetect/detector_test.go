package facedetect

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/pkg/types"
)

// fakeVision answers AnalyzeImage calls from a queue, in call order. Files are
// scanned in lexical order, so test files are named to line up with the queue.
type fakeVision struct {
	responses []*types.AnalysisResult
	calls     int
}

func (f *fakeVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "", nil
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	if f.calls >= len(f.responses) {
		return &types.AnalysisResult{}, nil
	}
	res := f.responses[f.calls]
	f.calls++
	return res, nil
}

func withFaces(n int) *types.AnalysisResult {
	res := &types.AnalysisResult{}
	for i := 0; i < n; i++ {
		res.Faces = append(res.Faces, types.Face{
			Box:        types.Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.2},
			Confidence: 0.9,
		})
	}
	return res
}

func writeTestImages(t *testing.T, dir string, count int) {
	t.Helper()
	img := imaging.New(64, 64, color.NRGBA{200, 180, 160, 255})
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("img_%02d.png", i))
		require.NoError(t, imaging.Save(img, path))
	}
}

func testDetector(cfg config.FaceDetectConfig, fake *fakeVision) *Detector {
	vision := config.Default().Vision
	return New(cfg, vision, true, fake, zap.NewNop().Sugar())
}

func TestFilterKeepTarget(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 10)

	// 6 images with exactly one face, 4 with two
	fake := &fakeVision{}
	for i := 0; i < 10; i++ {
		if i < 6 {
			fake.responses = append(fake.responses, withFaces(1))
		} else {
			fake.responses = append(fake.responses, withFaces(2))
		}
	}

	cfg := config.Default().FaceDetect
	det := testDetector(cfg, fake)

	res, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, res.FilterApplied)
	assert.Equal(t, 6, res.TrainingCount)
	assert.Equal(t, 4, res.ExcludedCount)
	assert.Equal(t, filepath.Join(dir, "training_faces"), res.TrainingDir)
	assert.Equal(t, map[int]int{1: 6, 2: 4}, res.FaceDistribution)

	training, err := os.ReadDir(res.TrainingDir)
	require.NoError(t, err)
	assert.Len(t, training, 6)

	excluded, err := os.ReadDir(res.ExcludedDir)
	require.NoError(t, err)
	assert.Len(t, excluded, 4)
}

func TestFilterExcludeTarget(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 4)

	fake := &fakeVision{responses: []*types.AnalysisResult{
		withFaces(1), withFaces(1), withFaces(2), withFaces(0),
	}}

	cfg := config.Default().FaceDetect
	cfg.FilterMode = "exclude_target"
	det := testDetector(cfg, fake)

	res, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	// target=1 excluded: single-face images go to excluded, the rest train
	assert.Equal(t, 2, res.TrainingCount)
	assert.Equal(t, 2, res.ExcludedCount)
}

func TestFilterClassifyAll(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 3)

	fake := &fakeVision{responses: []*types.AnalysisResult{
		withFaces(0), withFaces(1), withFaces(1),
	}}

	cfg := config.Default().FaceDetect
	cfg.FilterMode = "classify_all"
	det := testDetector(cfg, fake)

	res, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	assert.False(t, res.FilterApplied)
	assert.Empty(t, res.TrainingDir)
	assert.Zero(t, res.ExcludedCount)

	zero, err := os.ReadDir(filepath.Join(dir, "faces_0"))
	require.NoError(t, err)
	assert.Len(t, zero, 1)

	one, err := os.ReadDir(filepath.Join(dir, "faces_1"))
	require.NoError(t, err)
	assert.Len(t, one, 2)
}

func TestFilterUnlimitedKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 3)

	fake := &fakeVision{responses: []*types.AnalysisResult{
		withFaces(0), withFaces(3), withFaces(7),
	}}

	cfg := config.Default().FaceDetect
	cfg.TargetFaceCount = TargetUnlimited
	det := testDetector(cfg, fake)

	res, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TrainingCount)
	assert.Zero(t, res.ExcludedCount)
}

func TestFilterIgnoresLowConfidenceFaces(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 1)

	res := &types.AnalysisResult{Faces: []types.Face{
		{Box: types.Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, Confidence: 0.9},
		{Box: types.Box{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}, Confidence: 0.05},
	}}
	fake := &fakeVision{responses: []*types.AnalysisResult{res}}

	cfg := config.Default().FaceDetect // target 1, min confidence 0.3
	det := testDetector(cfg, fake)

	out, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	// The low-confidence face does not count, so the image trains
	assert.Equal(t, 1, out.TrainingCount)
	assert.Equal(t, map[int]int{1: 1}, out.FaceDistribution)
}

func TestFilterEmptyDirectory(t *testing.T) {
	det := testDetector(config.Default().FaceDetect, &fakeVision{})
	_, err := det.FilterForTraining(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestFilterSkipsOwnOutputDirs(t *testing.T) {
	dir := t.TempDir()
	writeTestImages(t, dir, 2)

	// Pre-existing training dir content must not be rescanned
	training := filepath.Join(dir, "training_faces")
	require.NoError(t, os.Mkdir(training, 0755))
	img := imaging.New(32, 32, color.NRGBA{0, 0, 0, 255})
	require.NoError(t, imaging.Save(img, filepath.Join(training, "old.png")))

	fake := &fakeVision{responses: []*types.AnalysisResult{withFaces(1), withFaces(1)}}
	det := testDetector(config.Default().FaceDetect, fake)

	res, err := det.FilterForTraining(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.TrainingCount)
}
