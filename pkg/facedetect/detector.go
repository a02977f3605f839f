// Package facedetect implements the face detection and filtering step. Faces
// are located by a vision model; images are then partitioned by face count
// into a training set and an excluded set, or grouped into per-count folders,
// depending on the filter mode.
package facedetect

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/client"
	"github.com/menta2k/dataset-prep/pkg/processing"
)

// FilterMode governs how face-count filtering partitions images
type FilterMode string

const (
	// KeepTarget keeps only images whose face count equals the target
	KeepTarget FilterMode = "keep_target"
	// ExcludeTarget excludes images whose face count equals the target
	ExcludeTarget FilterMode = "exclude_target"
	// ClassifyAll groups images by face count without excluding any
	ClassifyAll FilterMode = "classify_all"
)

// TargetUnlimited disables face-count filtering: every image matches.
const TargetUnlimited = -1

// facePrompt asks the model for every visible face as a normalized box.
const facePrompt = `You are a face locator for anime-style and photographic images.

Return JSON only:
{
  "faces": [
    {"box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}, "confidence": 0.0}
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- Include one entry per clearly visible face, drawn or photographic.
- confidence is your certainty in [0,1] that the box contains a face.
- If no face is visible, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector scans a directory and filters images by face count
type Detector struct {
	cfg       config.FaceDetectConfig
	vision    config.VisionConfig
	recursive bool
	client    client.VisionClient
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// FilterResult summarizes one filtering pass over a directory
type FilterResult struct {
	FilterApplied    bool
	TrainingDir      string
	ExcludedDir      string
	Total            int
	Processed        int
	TrainingCount    int
	ExcludedCount    int
	ErrorCount       int
	FaceDistribution map[int]int
}

// New creates a detector
func New(cfg config.FaceDetectConfig, vision config.VisionConfig, recursive bool, vc client.VisionClient, log *zap.SugaredLogger) *Detector {
	return &Detector{
		cfg:       cfg,
		vision:    vision,
		recursive: recursive,
		client:    vc,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// FilterForTraining detects faces in every image under dir and moves each file
// according to the configured filter mode. keep_target and exclude_target
// split into the training and excluded directories; classify_all groups into
// faces_<n>/ folders in place and never excludes anything.
func (d *Detector) FilterForTraining(ctx context.Context, dir string) (FilterResult, error) {
	if !utils.DirExists(dir) {
		return FilterResult{}, fmt.Errorf("directory does not exist: %s", dir)
	}

	mode := FilterMode(d.cfg.FilterMode)

	files, err := utils.ListImageFiles(dir, d.recursive, d.cfg.TrainingDir, d.cfg.ExcludedDir)
	if err != nil {
		return FilterResult{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return FilterResult{}, fmt.Errorf("no image files found in %s", dir)
	}

	res := FilterResult{
		Total:            len(files),
		FaceDistribution: make(map[int]int),
		FilterApplied:    mode != ClassifyAll,
	}

	if res.FilterApplied {
		res.TrainingDir = filepath.Join(dir, d.cfg.TrainingDir)
		res.ExcludedDir = filepath.Join(dir, d.cfg.ExcludedDir)
		if err := utils.EnsureDir(res.TrainingDir); err != nil {
			return FilterResult{}, fmt.Errorf("failed to create training directory: %w", err)
		}
		if err := utils.EnsureDir(res.ExcludedDir); err != nil {
			return FilterResult{}, fmt.Errorf("failed to create excluded directory: %w", err)
		}
	}

	for i, path := range files {
		d.log.Infow("detecting faces", "file", filepath.Base(path), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))

		count, err := d.countFaces(ctx, path)
		if err != nil {
			res.ErrorCount++
			d.log.Errorw("face detection failed", "file", path, "error", err)
			continue
		}

		res.FaceDistribution[count]++
		res.Processed++

		if mode == ClassifyAll {
			dst := filepath.Join(dir, fmt.Sprintf("faces_%d", count), filepath.Base(path))
			if _, err := utils.MoveFile(path, dst); err != nil {
				res.ErrorCount++
				d.log.Errorw("failed to classify image", "file", path, "error", err)
			}
			continue
		}

		if d.suitableForTraining(count, mode) {
			if _, err := utils.MoveFile(path, filepath.Join(res.TrainingDir, filepath.Base(path))); err != nil {
				res.ErrorCount++
				d.log.Errorw("failed to move training image", "file", path, "error", err)
				continue
			}
			res.TrainingCount++
			d.log.Debugw("training image", "file", filepath.Base(path), "faces", count)
		} else {
			if _, err := utils.MoveFile(path, filepath.Join(res.ExcludedDir, filepath.Base(path))); err != nil {
				res.ErrorCount++
				d.log.Errorw("failed to move excluded image", "file", path, "error", err)
				continue
			}
			res.ExcludedCount++
			d.log.Debugw("excluded image", "file", filepath.Base(path), "faces", count)
		}
	}

	return res, nil
}

// suitableForTraining applies the filter mode to a face count
func (d *Detector) suitableForTraining(count int, mode FilterMode) bool {
	if d.cfg.TargetFaceCount == TargetUnlimited {
		return true
	}
	switch mode {
	case KeepTarget:
		return count == d.cfg.TargetFaceCount
	case ExcludeTarget:
		return count != d.cfg.TargetFaceCount
	default:
		return true
	}
}

func (d *Detector) countFaces(ctx context.Context, path string) (int, error) {
	img, err := d.proc.LoadImage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load image: %w", err)
	}

	b64, err := d.proc.PrepareImageForModel(img, d.vision.SendFormat, d.vision.SendSize, d.vision.SendQ)
	if err != nil {
		return 0, fmt.Errorf("failed to encode image for model: %w", err)
	}

	result, err := d.client.AnalyzeImage(ctx, d.vision.Model, facePrompt, b64)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, face := range result.Faces {
		if face.Confidence >= d.cfg.MinConfidence && !face.Box.Empty() {
			count++
		}
	}
	if reported := result.FaceCount(); reported != count {
		d.log.Debugw("dropped low-confidence or degenerate faces",
			"file", filepath.Base(path), "reported", reported, "kept", count)
	}
	return count, nil
}

// Summary renders the filter result the way the final pipeline message expects it
func (r FilterResult) Summary() string {
	rate := 0.0
	if r.Total > 0 {
		rate = float64(r.TrainingCount) / float64(r.Total) * 100
	}
	return fmt.Sprintf("face filtering finished. processed %d/%d, training %d, excluded %d, errors %d (%.1f%% usable)",
		r.Processed, r.Total, r.TrainingCount, r.ExcludedCount, r.ErrorCount, rate)
}
