package config

import (
	"fmt"
)

// Config holds the full application configuration. It is passed by value into
// the pipeline so one run can never observe another run's settings.
type Config struct {
	Vision     VisionConfig     `mapstructure:"vision" json:"vision"`
	Validation ValidationConfig `mapstructure:"validation" json:"validation"`
	FaceDetect FaceDetectConfig `mapstructure:"face_detect" json:"face_detect"`
	Cluster    ClusterConfig    `mapstructure:"cluster" json:"cluster"`
	Crop       CropConfig       `mapstructure:"crop" json:"crop"`
	Tag        TagConfig        `mapstructure:"tag" json:"tag"`
	Upscale    UpscaleConfig    `mapstructure:"upscale" json:"upscale"`
	Recursive  bool             `mapstructure:"recursive" json:"recursive"`
}

// VisionConfig selects the vision-model backend shared by the face detection,
// cropping, and tagging steps.
type VisionConfig struct {
	Backend    string `mapstructure:"backend" json:"backend"` // "ollama" or "llamacpp"
	URL        string `mapstructure:"url" json:"url"`
	Model      string `mapstructure:"model" json:"model"`
	SendFormat string `mapstructure:"send_format" json:"send_format"` // jpg|png payload format
	SendSize   int    `mapstructure:"send_size" json:"send_size"`     // max long side in px, 0=original
	SendQ      int    `mapstructure:"send_q" json:"send_q"`           // JPEG quality for the payload
}

// ValidationConfig controls the validate step
type ValidationConfig struct {
	QuarantineInvalid bool   `mapstructure:"quarantine_invalid" json:"quarantine_invalid"`
	QuarantineDir     string `mapstructure:"quarantine_dir" json:"quarantine_dir"`
}

// FaceDetectConfig controls the face detection and filtering step
type FaceDetectConfig struct {
	TargetFaceCount int     `mapstructure:"target_face_count" json:"target_face_count"` // -1 = unlimited
	FilterMode      string  `mapstructure:"filter_mode" json:"filter_mode"`
	TrainingDir     string  `mapstructure:"training_dir" json:"training_dir"`
	ExcludedDir     string  `mapstructure:"excluded_dir" json:"excluded_dir"`
	MinConfidence   float64 `mapstructure:"min_confidence" json:"min_confidence"`
}

// ClusterConfig controls the perceptual deduplication step
type ClusterConfig struct {
	BatchSize     int     `mapstructure:"batch_size" json:"batch_size"`
	Threshold     float64 `mapstructure:"threshold" json:"threshold"` // max perceptual distance within a group
	DuplicatesDir string  `mapstructure:"duplicates_dir" json:"duplicates_dir"`
}

// CropConfig controls the region cropping step
type CropConfig struct {
	OutputDirName string `mapstructure:"output_dir_name" json:"output_dir_name"`
	Format        string `mapstructure:"format" json:"format"`
	Quality       int    `mapstructure:"quality" json:"quality"`
}

// TagConfig controls the tagging step
type TagConfig struct {
	GeneralThreshold   float64  `mapstructure:"general_threshold" json:"general_threshold"`
	CustomCharacterTag string   `mapstructure:"custom_character_tag" json:"custom_character_tag"`
	CustomArtistName   string   `mapstructure:"custom_artist_name" json:"custom_artist_name"`
	ExcludedTags       []string `mapstructure:"excluded_tags" json:"excluded_tags"`
	PrependTags        string   `mapstructure:"prepend_tags" json:"prepend_tags"`
	AppendTags         string   `mapstructure:"append_tags" json:"append_tags"`
}

// UpscaleConfig controls the upscaling step
type UpscaleConfig struct {
	TargetWidth         int    `mapstructure:"target_width" json:"target_width"`
	TargetHeight        int    `mapstructure:"target_height" json:"target_height"`
	Filter              string `mapstructure:"filter" json:"filter"` // lanczos|catmullrom|linear
	PreserveAspectRatio bool   `mapstructure:"preserve_aspect_ratio" json:"preserve_aspect_ratio"`
	CenterCrop          bool   `mapstructure:"center_crop" json:"center_crop"`
	MinSizeThreshold    int    `mapstructure:"min_size_threshold" json:"min_size_threshold"` // 0 = upscale everything
	OutputDirName       string `mapstructure:"output_dir_name" json:"output_dir_name"`
	Quality             int    `mapstructure:"quality" json:"quality"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		Vision: VisionConfig{
			Backend:    "ollama",
			URL:        "",
			Model:      "openbmb/minicpm-v4.5",
			SendFormat: "jpg",
			SendSize:   1536,
			SendQ:      85,
		},
		Validation: ValidationConfig{
			QuarantineInvalid: true,
			QuarantineDir:     "quarantined",
		},
		FaceDetect: FaceDetectConfig{
			TargetFaceCount: 1,
			FilterMode:      "keep_target",
			TrainingDir:     "training_faces",
			ExcludedDir:     "excluded_faces",
			MinConfidence:   0.3,
		},
		Cluster: ClusterConfig{
			BatchSize:     100,
			Threshold:     0.08,
			DuplicatesDir: "duplicates",
		},
		Crop: CropConfig{
			OutputDirName: "cropped_images",
			Format:        "png",
			Quality:       95,
		},
		Tag: TagConfig{
			GeneralThreshold: 0.35,
			ExcludedTags:     []string{"questionable", "general"},
		},
		Upscale: UpscaleConfig{
			TargetWidth:         2048,
			TargetHeight:        2048,
			Filter:              "lanczos",
			PreserveAspectRatio: true,
			CenterCrop:          true,
			MinSizeThreshold:    0,
			OutputDirName:       "upscaled_images",
			Quality:             95,
		},
		Recursive: true,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	switch c.Vision.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be \"ollama\" or \"llamacpp\", got %q", c.Vision.Backend)
	}

	switch c.FaceDetect.FilterMode {
	case "keep_target", "exclude_target", "classify_all":
	default:
		return fmt.Errorf("face_detect.filter_mode must be one of keep_target, exclude_target, classify_all, got %q", c.FaceDetect.FilterMode)
	}

	if c.FaceDetect.TargetFaceCount < -1 {
		return fmt.Errorf("face_detect.target_face_count must be >= -1")
	}

	if c.Cluster.BatchSize < 1 {
		return fmt.Errorf("cluster.batch_size must be positive")
	}

	if c.Cluster.Threshold < 0 || c.Cluster.Threshold > 1 {
		return fmt.Errorf("cluster.threshold must be between 0 and 1")
	}

	if c.Upscale.TargetWidth < 1 || c.Upscale.TargetHeight < 1 {
		return fmt.Errorf("upscale target size must be positive")
	}

	switch c.Upscale.Filter {
	case "lanczos", "catmullrom", "linear":
	default:
		return fmt.Errorf("upscale.filter must be one of lanczos, catmullrom, linear, got %q", c.Upscale.Filter)
	}

	if c.Crop.Quality < 1 || c.Crop.Quality > 100 {
		return fmt.Errorf("crop.quality must be between 1 and 100")
	}

	if c.Upscale.Quality < 1 || c.Upscale.Quality > 100 {
		return fmt.Errorf("upscale.quality must be between 1 and 100")
	}

	if c.Tag.GeneralThreshold < 0 || c.Tag.GeneralThreshold > 1 {
		return fmt.Errorf("tag.general_threshold must be between 0 and 1")
	}

	return nil
}
