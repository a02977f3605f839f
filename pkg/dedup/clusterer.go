// Package dedup implements the perceptual deduplication step. Images are
// reduced to small grayscale fingerprints, grouped by perceptual distance, and
// every group keeps its highest-resolution member while the rest move into a
// duplicates folder.
package dedup

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/processing"
)

// fingerprintSize is the thumbnail edge length. 32x32 keeps enough structure
// to separate scene changes while ignoring compression noise.
const fingerprintSize = 32

// Clusterer groups perceptually similar images
type Clusterer struct {
	cfg       config.ClusterConfig
	recursive bool
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// Report summarizes one clustering pass
type Report struct {
	Total      int
	Groups     int
	Survivors  int
	Duplicates int
	Errors     int
}

type entry struct {
	path string
	fp   []float64
	area int
}

// New creates a clusterer
func New(cfg config.ClusterConfig, recursive bool, log *zap.SugaredLogger) *Clusterer {
	return &Clusterer{
		cfg:       cfg,
		recursive: recursive,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// ClusterDirectory deduplicates the images under dir in place: survivors stay
// where they are, duplicates move into the configured duplicates subdirectory.
// Files are processed in batches so fingerprints of a huge directory never sit
// in memory all at once.
func (c *Clusterer) ClusterDirectory(ctx context.Context, dir string) (Report, error) {
	if !utils.DirExists(dir) {
		return Report{}, fmt.Errorf("directory does not exist: %s", dir)
	}

	files, err := utils.ListImageFiles(dir, c.recursive, c.cfg.DuplicatesDir)
	if err != nil {
		return Report{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no image files found in %s", dir)
	}

	report := Report{Total: len(files)}
	duplicatesDir := filepath.Join(dir, c.cfg.DuplicatesDir)

	for start := 0; start < len(files); start += c.cfg.BatchSize {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		end := start + c.cfg.BatchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]
		c.log.Infow("clustering batch", "files", len(batch), "offset", start)

		entries := c.fingerprintBatch(batch, &report)
		groups := groupByDistance(entries, c.cfg.Threshold)
		report.Groups += len(groups)

		for _, group := range groups {
			survivor := pickSurvivor(group)
			report.Survivors++

			for _, e := range group {
				if e.path == survivor.path {
					continue
				}
				dst := filepath.Join(duplicatesDir, filepath.Base(e.path))
				if _, err := utils.MoveFile(e.path, dst); err != nil {
					report.Errors++
					c.log.Errorw("failed to move duplicate", "file", e.path, "error", err)
					continue
				}
				report.Duplicates++
				c.log.Debugw("duplicate removed", "file", filepath.Base(e.path), "kept", filepath.Base(survivor.path))
			}
		}
	}

	c.log.Infow("clustering finished",
		"total", report.Total, "groups", report.Groups,
		"survivors", report.Survivors, "duplicates", report.Duplicates)

	return report, nil
}

func (c *Clusterer) fingerprintBatch(paths []string, report *Report) []entry {
	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		img, err := c.proc.LoadImage(path)
		if err != nil {
			report.Errors++
			c.log.Warnw("skipping unreadable image", "file", path, "error", err)
			continue
		}
		b := img.Bounds()
		entries = append(entries, entry{
			path: path,
			fp:   fingerprint(img),
			area: b.Dx() * b.Dy(),
		})
	}
	return entries
}

// fingerprint reduces an image to a mean-normalized grayscale thumbnail
func fingerprint(img image.Image) []float64 {
	small := imaging.Grayscale(imaging.Resize(img, fingerprintSize, fingerprintSize, imaging.Lanczos))

	fp := make([]float64, 0, fingerprintSize*fingerprintSize)
	var sum float64
	for y := 0; y < fingerprintSize; y++ {
		for x := 0; x < fingerprintSize; x++ {
			r, _, _, _ := small.At(x, y).RGBA()
			v := float64(r) / 65535.0
			fp = append(fp, v)
			sum += v
		}
	}

	mean := sum / float64(len(fp))
	for i := range fp {
		fp[i] -= mean
	}
	return fp
}

// distance is the mean absolute difference between two fingerprints
func distance(a, b []float64) float64 {
	var total float64
	for i := range a {
		total += math.Abs(a[i] - b[i])
	}
	return total / float64(len(a))
}

// groupByDistance single-links entries whose pairwise distance stays under the
// threshold. Singleton groups are returned too; their only member survives.
func groupByDistance(entries []entry, threshold float64) [][]entry {
	n := len(entries)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if distance(entries[i].fp, entries[j].fp) <= threshold {
				parent[find(i)] = find(j)
			}
		}
	}

	byRoot := make(map[int][]entry)
	for i, e := range entries {
		root := find(i)
		byRoot[root] = append(byRoot[root], e)
	}

	groups := make([][]entry, 0, len(byRoot))
	for _, g := range byRoot {
		groups = append(groups, g)
	}
	return groups
}

// pickSurvivor keeps the highest-resolution member of a group
func pickSurvivor(group []entry) entry {
	best := group[0]
	for _, e := range group[1:] {
		if e.area > best.area {
			best = e
		}
	}
	return best
}

// Summary renders the report the way the final pipeline message expects it
func (r Report) Summary() string {
	return fmt.Sprintf("deduplication finished. %d images in %d groups, kept %d, moved %d duplicates",
		r.Total, r.Groups, r.Survivors, r.Duplicates)
}
