// Package tagger implements the auto-tagging step: a vision model produces a
// tag list per image, the configured tag policy (exclusions, prepends,
// appends, custom character and artist tags) is applied, and the result is
// written to a sidecar text file next to the image.
package tagger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/client"
	"github.com/menta2k/dataset-prep/pkg/processing"
)

// tagPrompt asks the model for booru-style tags plus a content rating.
const tagPrompt = `You are an image tagger for anime-style training datasets.

Return JSON only:
{
  "rating": "general",
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- Tags are lowercase booru-style: "1girl", "long_hair", "school_uniform".
- Use underscores instead of spaces inside a tag.
- List 10 to 30 tags ordered from most to least salient.
- rating is one of: general, sensitive, questionable, explicit.
- No duplicates, no punctuation other than underscores.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Tagger writes tag sidecar files for every image in a directory
type Tagger struct {
	cfg       config.TagConfig
	vision    config.VisionConfig
	recursive bool
	client    client.VisionClient
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// Report summarizes one batch tagging pass
type Report struct {
	Total          int
	SuccessfulTags int
	FailedTags     int
	TotalTags      int
}

// New creates a tagger
func New(cfg config.TagConfig, vision config.VisionConfig, recursive bool, vc client.VisionClient, log *zap.SugaredLogger) *Tagger {
	return &Tagger{
		cfg:       cfg,
		vision:    vision,
		recursive: recursive,
		client:    vc,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// TagBatch tags every image under dir in place. One sidecar .txt per image,
// same basename. Existing sidecars are overwritten.
func (t *Tagger) TagBatch(ctx context.Context, dir string) (Report, error) {
	if !utils.DirExists(dir) {
		return Report{}, fmt.Errorf("directory does not exist: %s", dir)
	}

	files, err := utils.ListImageFiles(dir, t.recursive)
	if err != nil {
		return Report{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no image files found in %s", dir)
	}

	report := Report{Total: len(files)}

	for i, path := range files {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		t.log.Infow("tagging", "file", filepath.Base(path), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))

		tags, err := t.tagOne(ctx, path)
		if err != nil {
			report.FailedTags++
			t.log.Errorw("tagging failed", "file", path, "error", err)
			continue
		}

		line := strings.Join(tags, ", ")
		if err := os.WriteFile(utils.SidecarPath(path), []byte(line+"\n"), 0644); err != nil {
			report.FailedTags++
			t.log.Errorw("failed to write sidecar", "file", path, "error", err)
			continue
		}

		report.SuccessfulTags++
		report.TotalTags += len(tags)
	}

	return report, nil
}

func (t *Tagger) tagOne(ctx context.Context, path string) ([]string, error) {
	img, err := t.proc.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	b64, err := t.proc.PrepareImageForModel(img, t.vision.SendFormat, t.vision.SendSize, t.vision.SendQ)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for model: %w", err)
	}

	result, err := t.client.AnalyzeImage(ctx, t.vision.Model, tagPrompt, b64)
	if err != nil {
		return nil, err
	}
	if len(result.Tags) == 0 {
		return nil, fmt.Errorf("model returned no tags")
	}

	return t.applyTagPolicy(result.Tags), nil
}

// applyTagPolicy filters excluded tags and splices in the configured custom,
// prepend, and append tags, deduplicating while preserving order.
func (t *Tagger) applyTagPolicy(modelTags []string) []string {
	excluded := make(map[string]bool, len(t.cfg.ExcludedTags))
	for _, tag := range t.cfg.ExcludedTags {
		excluded[normalizeTag(tag)] = true
	}

	var ordered []string
	seen := make(map[string]bool)

	add := func(tag string) {
		tag = normalizeTag(tag)
		if tag == "" || seen[tag] || excluded[tag] {
			return
		}
		seen[tag] = true
		ordered = append(ordered, tag)
	}

	for _, tag := range splitTagList(t.cfg.PrependTags) {
		add(tag)
	}
	if t.cfg.CustomCharacterTag != "" {
		for _, tag := range splitTagList(t.cfg.CustomCharacterTag) {
			add(tag)
		}
	}
	for _, tag := range modelTags {
		add(tag)
	}
	if t.cfg.CustomArtistName != "" {
		add("artist:" + t.cfg.CustomArtistName)
	}
	for _, tag := range splitTagList(t.cfg.AppendTags) {
		add(tag)
	}

	return ordered
}

func splitTagList(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.ReplaceAll(tag, " ", "_")
}

// Summary renders the report the way the final pipeline message expects it
func (r Report) Summary() string {
	return fmt.Sprintf("tagging finished. %d/%d images tagged, %d tags written, %d failures",
		r.SuccessfulTags, r.Total, r.TotalTags, r.FailedTags)
}
