package main

import (
	"fmt"

	"github.com/spf13/cobra"

	datasetprep "github.com/menta2k/dataset-prep"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dataset-prep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dataset-prep", datasetprep.Version)
	},
}
