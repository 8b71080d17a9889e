package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/pipeline"
)

var tasksOutputPath string

var tasksCmd = &cobra.Command{
	Use:   "tasks <file>",
	Short: "Normalize a task list spreadsheet into a workload dashboard",
	Long: `Maps task columns (title, status, priority, due date, owner) from common header
spellings, standardizes values, flags missing or duplicate titles and implausible
due dates, and writes a workbook with status and assignee pivots.`,
	Args: cobra.ExactArgs(1),
	RunE: runSingle(pipeline.KindTasks, &tasksOutputPath),
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.Flags().StringVarP(&tasksOutputPath, "output", "o", "", "workbook path (default <name>_tasks.xlsx next to the input)")
}
