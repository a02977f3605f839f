package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	datasetprep "github.com/menta2k/dataset-prep"
)

var appLog *zap.SugaredLogger

var runCmd = &cobra.Command{
	Use:   "run <input_dir>",
	Short: "Run the processing pipeline over a directory of images",
	Long: `Run the selected pipeline steps over a directory. With no --steps flag
every step runs. Step names outside the known set are warned about and
dropped. The process exits 0 when at least one step completed successfully.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newLogger(); err != nil {
			return err
		}
		defer appLog.Sync()

		inputDir := args[0]
		info, err := os.Stat(inputDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("input directory %q does not exist or is not a directory", inputDir)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		stepsFlag, _ := cmd.Flags().GetString("steps")
		selected := parseSelectedSteps(stepsFlag)

		prep, err := datasetprep.New(cfg, appLog)
		if err != nil {
			return err
		}

		// Ctrl-C finishes the current step, then the remaining steps are
		// recorded as failed.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := prep.Run(ctx, inputDir, selected)
		if err != nil {
			return err
		}

		appLog.Infow("run summary",
			"run_id", result.RunID,
			"success", result.Success,
			"message", result.Message,
			"final_working_dir", result.FinalWorkingDir,
		)
		for _, step := range result.State.StepOutputs {
			appLog.Infow("step outcome", "step", step.Step, "success", step.Success, "message", step.Message)
		}

		if !result.CompletedAny() {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("steps", "", "comma-separated steps to run (validate,face_detect,cluster,crop,tag,upscale)")
	runCmd.Flags().Bool("recursive", true, "recurse into subdirectories when scanning for images")
	runCmd.Flags().Int("target-face-count", 1, "face count a training image must have (-1 for unlimited)")
	runCmd.Flags().String("face-filter-mode", "keep_target", "face filter mode: keep_target, exclude_target, classify_all")
	runCmd.Flags().String("backend", "ollama", "vision backend: ollama or llamacpp")
	runCmd.Flags().String("url", "", "vision server URL")
	runCmd.Flags().String("model", "", "vision model name")
	runCmd.Flags().String("upscale-size", "", "upscale target size as WIDTHxHEIGHT")
}
