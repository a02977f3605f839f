// Package cropper implements the region cropping step: every image yields up
// to three crops (head, halfbody, person) derived from the subject boxes a
// vision model reports, written into per-category subdirectories of the crop
// output directory.
package cropper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/client"
	"github.com/menta2k/dataset-prep/pkg/processing"
	"github.com/menta2k/dataset-prep/pkg/types"
)

// Crop categories. The directory names are a contract consumers depend on.
const (
	CategoryHead     = "head"
	CategoryHalfbody = "halfbody"
	CategoryPerson   = "person"
)

// headMargin widens the face box in every direction so the head crop keeps
// hair and chin instead of clipping at the face boundary.
const headMargin = 0.35

// cropPrompt asks the model for the dominant person plus every face.
const cropPrompt = `You are a subject locator for anime-style and photographic images.

Return JSON only:
{
  "person": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
  "faces": [
    {"box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}, "confidence": 0.0}
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- "person" tightly bounds the visually dominant person, full figure if visible.
- Include one faces entry per clearly visible face.
- If no person is visible, return {"person": null, "faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Cropper produces region crops for every image in a directory
type Cropper struct {
	cfg       config.CropConfig
	vision    config.VisionConfig
	recursive bool
	client    client.VisionClient
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// Report summarizes one batch cropping pass
type Report struct {
	OutputDir       string
	Total           int
	SuccessfulCrops int
	FailedCrops     int
	Categories      map[string]int
}

// New creates a cropper
func New(cfg config.CropConfig, vision config.VisionConfig, recursive bool, vc client.VisionClient, log *zap.SugaredLogger) *Cropper {
	return &Cropper{
		cfg:       cfg,
		vision:    vision,
		recursive: recursive,
		client:    vc,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// CropBatch crops every image under inputDir into outputDir. The input tree is
// never mutated; crops land in <outputDir>/<category>/<name>_<category>.<ext>.
func (c *Cropper) CropBatch(ctx context.Context, inputDir, outputDir string) (Report, error) {
	if !utils.DirExists(inputDir) {
		return Report{}, fmt.Errorf("directory does not exist: %s", inputDir)
	}

	files, err := utils.ListImageFiles(inputDir, c.recursive)
	if err != nil {
		return Report{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no image files found in %s", inputDir)
	}

	report := Report{
		Total:      len(files),
		Categories: make(map[string]int),
	}

	for i, path := range files {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		c.log.Infow("cropping", "file", filepath.Base(path), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))

		n, err := c.cropOne(ctx, path, outputDir, &report)
		if err != nil {
			report.FailedCrops++
			c.log.Errorw("crop failed", "file", path, "error", err)
			continue
		}
		if n > 0 {
			report.SuccessfulCrops += n
		} else {
			report.FailedCrops++
			c.log.Warnw("no croppable subject found", "file", filepath.Base(path))
		}
	}

	if report.SuccessfulCrops > 0 {
		// The directory tree only exists once at least one crop was written.
		report.OutputDir = outputDir
	}

	return report, nil
}

// cropOne writes the region crops for a single image and returns how many
// crops were produced.
func (c *Cropper) cropOne(ctx context.Context, path, outputDir string, report *Report) (int, error) {
	img, err := c.proc.LoadImage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load image: %w", err)
	}

	b64, err := c.proc.PrepareImageForModel(img, c.vision.SendFormat, c.vision.SendSize, c.vision.SendQ)
	if err != nil {
		return 0, fmt.Errorf("failed to encode image for model: %w", err)
	}

	analysis, err := c.client.AnalyzeImage(ctx, c.vision.Model, cropPrompt, b64)
	if err != nil {
		return 0, err
	}

	written := 0
	for category, box := range c.regionBoxes(analysis) {
		cropped, err := c.proc.CropImageToBox(img, box)
		if err != nil {
			c.log.Debugw("skipping degenerate region", "file", filepath.Base(path), "category", category, "error", err)
			continue
		}

		dst := c.outputPath(path, outputDir, category)
		if err := utils.EnsureDir(filepath.Dir(dst)); err != nil {
			return written, fmt.Errorf("failed to create crop directory: %w", err)
		}
		if err := c.proc.SaveImage(cropped, dst, c.cfg.Format, c.cfg.Quality, false); err != nil {
			return written, fmt.Errorf("failed to save %s crop: %w", category, err)
		}

		written++
		report.Categories[category]++
	}

	return written, nil
}

// regionBoxes derives the three crop regions from a model analysis. Head comes
// from the largest face box widened by headMargin, halfbody is the upper half
// of the person box, person is the person box itself.
func (c *Cropper) regionBoxes(analysis *types.AnalysisResult) map[string]types.Box {
	regions := make(map[string]types.Box)

	if face := largestFace(analysis.Faces); face != nil {
		regions[CategoryHead] = expandBox(face.Box, headMargin)
	}

	if analysis.Person != nil && !analysis.Person.Empty() {
		person := *analysis.Person
		regions[CategoryPerson] = person
		regions[CategoryHalfbody] = types.Box{
			X: person.X,
			Y: person.Y,
			W: person.W,
			H: person.H * 0.5,
		}
	}

	return regions
}

func (c *Cropper) outputPath(srcPath, outputDir, category string) string {
	base := filepath.Base(srcPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, category, fmt.Sprintf("%s_%s.%s", name, category, c.cfg.Format))
}

func largestFace(faces []types.Face) *types.Face {
	var best *types.Face
	var bestArea float64
	for i := range faces {
		area := faces[i].Box.W * faces[i].Box.H
		if area > bestArea {
			best = &faces[i]
			bestArea = area
		}
	}
	return best
}

// expandBox grows a normalized box by margin on every side, clamped to [0,1]
func expandBox(b types.Box, margin float64) types.Box {
	dx := b.W * margin
	dy := b.H * margin

	x0 := processing.Clamp(b.X-dx, 0, 1)
	y0 := processing.Clamp(b.Y-dy, 0, 1)
	x1 := processing.Clamp(b.X+b.W+dx, 0, 1)
	y1 := processing.Clamp(b.Y+b.H+dy, 0, 1)

	return types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Summary renders the report the way the final pipeline message expects it
func (r Report) Summary() string {
	return fmt.Sprintf("cropping finished. %d crops from %d images, %d failures",
		r.SuccessfulCrops, r.Total, r.FailedCrops)
}
