// Package datasetprep prepares anime-style training datasets: a directory of
// raw images flows through validation, face detection and filtering,
// perceptual deduplication, region cropping, auto-tagging, and upscaling.
//
// The steps run strictly sequentially in a fixed order; each step finishes the
// whole directory before the next begins, and the working directory follows
// the step outputs (face filtering hands the training subset forward, cropping
// hands its crop tree forward, and so on).
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		datasetprep "github.com/menta2k/dataset-prep"
//		"github.com/menta2k/dataset-prep/pkg/pipeline"
//	)
//
//	func main() {
//		prep, err := datasetprep.New(datasetprep.DefaultConfig(), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := prep.Run(context.Background(), "input_images", []pipeline.StepID{
//			pipeline.StepValidate,
//			pipeline.StepFaceDetect,
//			pipeline.StepTag,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Printf("%s, inspect %s", result.Message, result.FinalWorkingDir)
//	}
package datasetprep

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/logger"
	"github.com/menta2k/dataset-prep/pkg/client"
	"github.com/menta2k/dataset-prep/pkg/cropper"
	"github.com/menta2k/dataset-prep/pkg/dedup"
	"github.com/menta2k/dataset-prep/pkg/facedetect"
	"github.com/menta2k/dataset-prep/pkg/llamacpp"
	"github.com/menta2k/dataset-prep/pkg/ollama"
	"github.com/menta2k/dataset-prep/pkg/pipeline"
	"github.com/menta2k/dataset-prep/pkg/tagger"
	"github.com/menta2k/dataset-prep/pkg/upscale"
	"github.com/menta2k/dataset-prep/pkg/validate"
)

// Version of the dataset-prep library
const Version = "1.0.0"

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() config.Config {
	return config.Default()
}

// Prep owns a configured pipeline ready to process directories. Each Run call
// gets its own pipeline state; a single Prep must not be shared by concurrent
// runs over the same directory, but independent Prep values are fully
// isolated from one another.
type Prep struct {
	cfg          config.Config
	orchestrator *pipeline.Orchestrator
	log          *zap.SugaredLogger
}

// New creates a Prep with the given configuration. A nil logger disables
// logging. The vision client for the model-backed steps is built from
// cfg.Vision.
func New(cfg config.Config, log *zap.SugaredLogger) (*Prep, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	vc, err := newVisionClient(cfg.Vision)
	if err != nil {
		return nil, err
	}

	return NewWithClient(cfg, vc, log)
}

// NewWithClient creates a Prep with a caller-supplied vision client. Tests and
// embedders use this to inject fakes or pre-configured backends.
func NewWithClient(cfg config.Config, vc client.VisionClient, log *zap.SugaredLogger) (*Prep, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	executors := buildExecutors(cfg, vc, log)

	return &Prep{
		cfg:          cfg,
		orchestrator: pipeline.New(executors, log),
		log:          log,
	}, nil
}

// Run processes inputDir with the selected steps in canonical order. An empty
// selection runs every step.
func (p *Prep) Run(ctx context.Context, inputDir string, selected []pipeline.StepID) (pipeline.Result, error) {
	return p.orchestrator.Run(ctx, inputDir, selected)
}

func newVisionClient(cfg config.VisionConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		return ollama.NewClient(url)
	case "llamacpp":
		return llamacpp.NewClient(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown vision backend: %s", cfg.Backend)
	}
}

// buildExecutors binds each step service to the executor signature the
// orchestrator understands. Every executor converts service errors into a
// failed StepResult instead of letting them escape, so a broken step never
// takes the rest of the run down with it.
func buildExecutors(cfg config.Config, vc client.VisionClient, log *zap.SugaredLogger) map[pipeline.StepID]pipeline.Executor {
	validator := validate.New(cfg.Validation, cfg.Recursive, log)
	detector := facedetect.New(cfg.FaceDetect, cfg.Vision, cfg.Recursive, vc, log)
	clusterer := dedup.New(cfg.Cluster, cfg.Recursive, log)
	crops := cropper.New(cfg.Crop, cfg.Vision, cfg.Recursive, vc, log)
	tags := tagger.New(cfg.Tag, cfg.Vision, cfg.Recursive, vc, log)
	upscaler := upscale.New(cfg.Upscale, cfg.Recursive, log)

	return map[pipeline.StepID]pipeline.Executor{
		pipeline.StepValidate: func(ctx context.Context, dir string) pipeline.StepResult {
			report, err := validator.ValidateDirectory(dir)
			if err != nil {
				return pipeline.Failure(pipeline.StepValidate, err)
			}
			return pipeline.StepResult{
				Step:         pipeline.StepValidate,
				Success:      true,
				Message:      report.Summary(),
				OutputDir:    dir, // validation operates in place
				ValidCount:   report.Valid,
				InvalidCount: report.Invalid,
			}
		},

		pipeline.StepFaceDetect: func(ctx context.Context, dir string) pipeline.StepResult {
			res, err := detector.FilterForTraining(ctx, dir)
			if err != nil {
				return pipeline.Failure(pipeline.StepFaceDetect, err)
			}
			return pipeline.StepResult{
				Step:             pipeline.StepFaceDetect,
				Success:          true,
				Message:          res.Summary(),
				OutputDir:        res.TrainingDir,
				FilterApplied:    res.FilterApplied,
				TrainingDir:      res.TrainingDir,
				ExcludedDir:      res.ExcludedDir,
				TrainingCount:    res.TrainingCount,
				ExcludedCount:    res.ExcludedCount,
				FaceDistribution: res.FaceDistribution,
			}
		},

		pipeline.StepCluster: func(ctx context.Context, dir string) pipeline.StepResult {
			report, err := clusterer.ClusterDirectory(ctx, dir)
			if err != nil {
				return pipeline.Failure(pipeline.StepCluster, err)
			}
			return pipeline.StepResult{
				Step:       pipeline.StepCluster,
				Success:    true,
				Message:    report.Summary(),
				OutputDir:  dir, // survivors stay in place, duplicates moved aside
				Survivors:  report.Survivors,
				Duplicates: report.Duplicates,
			}
		},

		pipeline.StepCrop: func(ctx context.Context, dir string) pipeline.StepResult {
			outputDir := filepath.Join(filepath.Dir(dir), cfg.Crop.OutputDirName)
			report, err := crops.CropBatch(ctx, dir, outputDir)
			if err != nil {
				return pipeline.Failure(pipeline.StepCrop, err)
			}
			if report.SuccessfulCrops == 0 {
				return pipeline.StepResult{
					Step:        pipeline.StepCrop,
					Success:     false,
					Message:     report.Summary(),
					FailedCrops: report.FailedCrops,
				}
			}
			return pipeline.StepResult{
				Step:            pipeline.StepCrop,
				Success:         true,
				Message:         report.Summary(),
				OutputDir:       report.OutputDir,
				SuccessfulCrops: report.SuccessfulCrops,
				FailedCrops:     report.FailedCrops,
				CropCategories:  report.Categories,
			}
		},

		pipeline.StepTag: func(ctx context.Context, dir string) pipeline.StepResult {
			report, err := tags.TagBatch(ctx, dir)
			if err != nil {
				return pipeline.Failure(pipeline.StepTag, err)
			}
			return pipeline.StepResult{
				Step:           pipeline.StepTag,
				Success:        true,
				Message:        report.Summary(),
				OutputDir:      dir, // sidecars land next to their images
				SuccessfulTags: report.SuccessfulTags,
				FailedTags:     report.FailedTags,
				TotalTags:      report.TotalTags,
			}
		},

		pipeline.StepUpscale: func(ctx context.Context, dir string) pipeline.StepResult {
			outputDir := filepath.Join(filepath.Dir(dir), cfg.Upscale.OutputDirName)
			report, err := upscaler.UpscaleBatch(ctx, dir, outputDir)
			if err != nil {
				return pipeline.Failure(pipeline.StepUpscale, err)
			}
			return pipeline.StepResult{
				Step:               pipeline.StepUpscale,
				Success:            true,
				Message:            report.Summary(),
				OutputDir:          report.OutputDir,
				SuccessfulUpscales: report.SuccessfulUpscales,
				FailedUpscales:     report.FailedUpscales,
				SkippedFiles:       report.SkippedFiles,
			}
		},
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
