package validate

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
)

func writeGoodImage(t *testing.T, path string) {
	t.Helper()
	img := imaging.New(32, 32, color.NRGBA{120, 130, 140, 255})
	require.NoError(t, imaging.Save(img, path))
}

func writeBadImage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("definitely not image data"), 0644))
}

func TestValidateQuarantinesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	writeGoodImage(t, filepath.Join(dir, "good1.png"))
	writeGoodImage(t, filepath.Join(dir, "good2.jpg"))
	writeBadImage(t, filepath.Join(dir, "broken.png"))

	v := New(config.Default().Validation, true, zap.NewNop().Sugar())
	report, err := v.ValidateDirectory(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	assert.Len(t, report.ValidPaths, 2)

	assert.NoFileExists(t, filepath.Join(dir, "broken.png"))
	assert.FileExists(t, filepath.Join(dir, "quarantined", "broken.png"))
	assert.FileExists(t, filepath.Join(dir, "good1.png"))
}

func TestValidateWithoutQuarantine(t *testing.T) {
	dir := t.TempDir()
	writeGoodImage(t, filepath.Join(dir, "good.png"))
	writeBadImage(t, filepath.Join(dir, "broken.png"))

	cfg := config.Default().Validation
	cfg.QuarantineInvalid = false
	v := New(cfg, true, zap.NewNop().Sugar())

	report, err := v.ValidateDirectory(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Invalid)
	// The broken file stays where it was
	assert.FileExists(t, filepath.Join(dir, "broken.png"))
}

func TestValidateSkipsQuarantineDir(t *testing.T) {
	dir := t.TempDir()
	writeGoodImage(t, filepath.Join(dir, "good.png"))

	qdir := filepath.Join(dir, "quarantined")
	require.NoError(t, os.Mkdir(qdir, 0755))
	writeBadImage(t, filepath.Join(qdir, "old.png"))

	v := New(config.Default().Validation, true, zap.NewNop().Sugar())
	report, err := v.ValidateDirectory(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Zero(t, report.Invalid)
}

func TestValidateMissingDirectory(t *testing.T) {
	v := New(config.Default().Validation, true, zap.NewNop().Sugar())
	_, err := v.ValidateDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestValidateEmptyDirectory(t *testing.T) {
	v := New(config.Default().Validation, true, zap.NewNop().Sugar())
	_, err := v.ValidateDirectory(t.TempDir())
	assert.Error(t, err)
}

func TestReportSummary(t *testing.T) {
	r := Report{Total: 10, Valid: 8, Invalid: 2}
	assert.Equal(t, "validated 8/10 images, 2 quarantined or invalid", r.Summary())
}
