package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/pipeline"
)

var anaOutputPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile and clean a CSV/XLS/XLSX dataset into an analysis workbook",
	Long: `Reads a dataset, infers column types, imputes missing values, drops duplicate
rows and computes outliers, pivots, correlations and category shares. Writes an
XLSX workbook (default <name>_analysis.xlsx) and prints the run summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runSingle(pipeline.KindData, &anaOutputPath),
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "workbook path (default <name>_analysis.xlsx next to the input)")
}
