package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/pkg/pipeline"
)

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("2048x1024")
	require.NoError(t, err)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1024, h)

	w, h, err = parseSize("512X512")
	require.NoError(t, err)
	assert.Equal(t, 512, w)
	assert.Equal(t, 512, h)

	for _, bad := range []string{"", "2048", "0x512", "-1x100", "axb"} {
		_, _, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSelectedSteps(t *testing.T) {
	appLog = zap.NewNop().Sugar()

	assert.Nil(t, parseSelectedSteps(""))

	got := parseSelectedSteps("tag, validate, bogus")
	assert.Equal(t, []pipeline.StepID{pipeline.StepTag, pipeline.StepValidate}, got)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("target-face-count", "3"))
	require.NoError(t, runCmd.Flags().Set("face-filter-mode", "classify_all"))
	require.NoError(t, runCmd.Flags().Set("backend", "llamacpp"))
	require.NoError(t, runCmd.Flags().Set("upscale-size", "1024x768"))

	cfg, err := loadConfig(runCmd)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.FaceDetect.TargetFaceCount)
	assert.Equal(t, "classify_all", cfg.FaceDetect.FilterMode)
	assert.Equal(t, "llamacpp", cfg.Vision.Backend)
	assert.Equal(t, 1024, cfg.Upscale.TargetWidth)
	assert.Equal(t, 768, cfg.Upscale.TargetHeight)
}

func TestLoadConfigRejectsBadOverride(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("face-filter-mode", "keep_everything"))
	defer runCmd.Flags().Set("face-filter-mode", "keep_target")

	_, err := loadConfig(runCmd)
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	logFile = filepath.Join(t.TempDir(), "logs", "run.log")
	logFormat = "json"
	defer func() { logFile = ""; logFormat = "human" }()

	require.NoError(t, newLogger())
	require.NotNil(t, appLog)
	appLog.Infow("logger smoke test")
	appLog.Sync()

	assert.FileExists(t, logFile)
}
