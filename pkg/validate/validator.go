// Package validate implements the first pipeline step: every image in the
// working directory is decoded once, and files that cannot be decoded are
// quarantined or removed so later steps never stumble over corrupt input.
package validate

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/utils"
	"github.com/menta2k/dataset-prep/pkg/processing"
)

// Validator checks image files for decodability
type Validator struct {
	cfg       config.ValidationConfig
	recursive bool
	proc      *processing.Processor
	log       *zap.SugaredLogger
}

// Report summarizes one directory validation pass
type Report struct {
	Total      int
	Valid      int
	Invalid    int
	ValidPaths []string
}

// New creates a validator
func New(cfg config.ValidationConfig, recursive bool, log *zap.SugaredLogger) *Validator {
	return &Validator{
		cfg:       cfg,
		recursive: recursive,
		proc:      processing.NewProcessor(),
		log:       log,
	}
}

// ValidateDirectory decodes every image under dir. Undecodable files are moved
// into the quarantine subdirectory when quarantining is enabled, otherwise
// they are left in place and only counted.
func (v *Validator) ValidateDirectory(dir string) (Report, error) {
	if !utils.DirExists(dir) {
		return Report{}, fmt.Errorf("directory does not exist: %s", dir)
	}

	files, err := utils.ListImageFiles(dir, v.recursive, v.cfg.QuarantineDir)
	if err != nil {
		return Report{}, fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return Report{}, fmt.Errorf("no image files found in %s", dir)
	}

	report := Report{Total: len(files)}
	quarantineDir := filepath.Join(dir, v.cfg.QuarantineDir)

	for _, path := range files {
		if _, err := v.proc.LoadImage(path); err != nil {
			report.Invalid++
			v.log.Warnw("invalid image", "file", path, "error", err)

			if v.cfg.QuarantineInvalid {
				dst := filepath.Join(quarantineDir, filepath.Base(path))
				if _, err := utils.MoveFile(path, dst); err != nil {
					v.log.Errorw("failed to quarantine file", "file", path, "error", err)
				}
			}
			continue
		}
		report.Valid++
		report.ValidPaths = append(report.ValidPaths, path)
	}

	v.log.Infow("validation finished",
		"total", report.Total, "valid", report.Valid, "invalid", report.Invalid)

	return report, nil
}

// Summary renders the report the way the final pipeline message expects it
func (r Report) Summary() string {
	return fmt.Sprintf("validated %d/%d images, %d quarantined or invalid",
		r.Valid, r.Total, r.Invalid)
}
