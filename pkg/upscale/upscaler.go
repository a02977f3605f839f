// Package upscale implements the enlargement step: images below the size
// threshold are resampled up to the target size and written into the upscale
// output directory; already-large files are skipped and counted.
package upscale

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/processing"
)

// Upscaler enlarges images with a named resample filter
type Upscaler struct {
	cfg       config.UpscaleConfig
	recursive bool
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// Report summarizes one batch upscaling pass
type Report struct {
	OutputDir          string
	Total              int
	SuccessfulUpscales int
	FailedUpscales     int
	SkippedFiles       int
}

// New creates an upscaler
func New(cfg config.UpscaleConfig, recursive bool, log *zap.SugaredLogger) *Upscaler {
	return &Upscaler{
		cfg:       cfg,
		recursive: recursive,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// UpscaleBatch enlarges every eligible image under inputDir into outputDir.
// Files whose long side already meets the minimum size threshold are skipped.
// The input tree is never mutated.
func (u *Upscaler) UpscaleBatch(ctx context.Context, inputDir, outputDir string) (Report, error) {
	if !utils.DirExists(inputDir) {
		return Report{}, fmt.Errorf("directory does not exist: %s", inputDir)
	}

	files, err := utils.ListImageFiles(inputDir, u.recursive)
	if err != nil {
		return Report{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no image files found in %s", inputDir)
	}

	report := Report{Total: len(files)}
	filter := resampleFilter(u.cfg.Filter)

	for i, path := range files {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		u.log.Infow("upscaling", "file", filepath.Base(path), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))

		img, err := u.proc.LoadImage(path)
		if err != nil {
			report.FailedUpscales++
			u.log.Errorw("failed to load image", "file", path, "error", err)
			continue
		}

		if u.skippable(img) {
			report.SkippedFiles++
			u.log.Debugw("already large enough, skipping", "file", filepath.Base(path))
			continue
		}

		enlarged := u.resize(img, filter)

		dst := filepath.Join(outputDir, filepath.Base(path))
		if err := utils.EnsureDir(outputDir); err != nil {
			return report, fmt.Errorf("failed to create output directory: %w", err)
		}
		ext := utils.GetFileExtension(path)
		if err := u.proc.SaveImage(enlarged, dst, ext, u.cfg.Quality, false); err != nil {
			report.FailedUpscales++
			u.log.Errorw("failed to save upscaled image", "file", dst, "error", err)
			continue
		}

		report.SuccessfulUpscales++
	}

	if report.SuccessfulUpscales > 0 {
		report.OutputDir = outputDir
	}

	return report, nil
}

// skippable reports whether the image already meets the size threshold
func (u *Upscaler) skippable(img image.Image) bool {
	if u.cfg.MinSizeThreshold <= 0 {
		return false
	}
	b := img.Bounds()
	return b.Dx() >= u.cfg.MinSizeThreshold && b.Dy() >= u.cfg.MinSizeThreshold
}

// resize enlarges to the target size, preserving aspect ratio when configured
// and optionally center-cropping to the exact target afterwards.
func (u *Upscaler) resize(img image.Image, filter imaging.ResampleFilter) image.Image {
	w, h := u.cfg.TargetWidth, u.cfg.TargetHeight

	if !u.cfg.PreserveAspectRatio {
		return imaging.Resize(img, w, h, filter)
	}

	if u.cfg.CenterCrop {
		// Fill covers the target then trims the overflow around the center.
		return imaging.Fill(img, w, h, imaging.Center, filter)
	}

	// Fit-style enlargement. imaging.Fit never scales up, so resize along the
	// axis that bounds the result and let the other follow the aspect ratio.
	b := img.Bounds()
	if b.Dx()*h >= b.Dy()*w {
		return imaging.Resize(img, w, 0, filter)
	}
	return imaging.Resize(img, 0, h, filter)
}

// resampleFilter maps the configured filter name to an imaging kernel.
// Unknown names fall back to Lanczos.
func resampleFilter(name string) imaging.ResampleFilter {
	switch name {
	case "catmullrom":
		return imaging.CatmullRom
	case "linear":
		return imaging.Linear
	default:
		return imaging.Lanczos
	}
}

// Summary renders the report the way the final pipeline message expects it
func (r Report) Summary() string {
	return fmt.Sprintf("upscaling finished. %d/%d images enlarged, %d skipped, %d failures",
		r.SuccessfulUpscales, r.Total, r.SkippedFiles, r.FailedUpscales)
}
