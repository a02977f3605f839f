package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/menta2k/dataset-prep/internal/config"
	"github.com/menta2k/dataset-prep/internal/logger"
	"github.com/menta2k/dataset-prep/pkg/pipeline"
)

var (
	cfgFile   string
	debug     bool
	logFormat string
	logFile   string
)

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "dataset-prep",
	Short: "Batch preprocessing pipeline for anime-style training datasets",
	Long: `dataset-prep sequences a fixed set of processing steps over a directory
of images: validation, face detection and filtering, perceptual deduplication,
region cropping, auto-tagging, and upscaling.

Steps always run in that canonical order. Each step finishes the whole
directory before the next begins, and later steps automatically pick up the
previous step's output directory (the training subset after face filtering,
the crop tree after cropping, and so on). A failed step never aborts the run;
the remaining steps continue against the directory the failed step received.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// exitCode is set by the run command so Execute can report partial failures
var exitCode int

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "human", "log format: json or human")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the immutable pipeline configuration from defaults, an
// optional config file, environment variables, and command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	v := viper.New()
	v.SetEnvPrefix("DATASET_PREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Flag overrides beat the file and the environment
	if cmd.Flags().Changed("recursive") {
		cfg.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("target-face-count") {
		cfg.FaceDetect.TargetFaceCount, _ = cmd.Flags().GetInt("target-face-count")
	}
	if cmd.Flags().Changed("face-filter-mode") {
		cfg.FaceDetect.FilterMode, _ = cmd.Flags().GetString("face-filter-mode")
	}
	if cmd.Flags().Changed("backend") {
		cfg.Vision.Backend, _ = cmd.Flags().GetString("backend")
	}
	if cmd.Flags().Changed("url") {
		cfg.Vision.URL, _ = cmd.Flags().GetString("url")
	}
	if cmd.Flags().Changed("model") {
		cfg.Vision.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("upscale-size") {
		size, _ := cmd.Flags().GetString("upscale-size")
		w, h, err := parseSize(size)
		if err != nil {
			return cfg, err
		}
		cfg.Upscale.TargetWidth, cfg.Upscale.TargetHeight = w, h
	}

	return cfg, cfg.Validate()
}

func newLogger() error {
	cfg := logger.DefaultConfig()
	cfg.Debug = debug
	cfg.LogFormat = logFormat
	cfg.LogFile = logFile

	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	appLog = log
	return nil
}

// parseSize parses "2048x2048" into width and height
func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	if w < 1 || h < 1 {
		return 0, 0, fmt.Errorf("invalid size %q, dimensions must be positive", s)
	}
	return w, h, nil
}

// parseSelectedSteps resolves the --steps flag into StepIDs, warning about and
// dropping names outside the step set.
func parseSelectedSteps(list string) []pipeline.StepID {
	if list == "" {
		return nil // empty selection = every step
	}
	ids, unknown := pipeline.ParseSteps(list)
	for _, name := range unknown {
		appLog.Warnw("ignoring unknown step", "step", name)
	}
	return ids
}
