package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/jobs"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

var (
	histKind  string
	histLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the local job history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		switch histKind {
		case "", jobs.KindData, jobs.KindDocument, jobs.KindTasks:
		default:
			return fmt.Errorf("invalid --kind: %s (use data|document|tasks)", histKind)
		}
		store, err := jobs.Open(cmd.Context(), currentConfig().JobsDB)
		if err != nil {
			return err
		}
		defer closeHistory(store)
		list, err := store.Recent(cmd.Context(), histKind, histLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !markdownOutput() {
			if list == nil {
				list = []jobs.Job{}
			}
			b, err := utils.PrettyJSON(list)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "(no jobs)")
			return nil
		}
		for _, j := range list {
			line := fmt.Sprintf("- %s [%s] %s: %s", j.CreatedAt.Local().Format("2006-01-02 15:04"), j.Kind, j.Filename, j.Status)
			if j.ErrorCode != "" {
				line += fmt.Sprintf(" (%s: %s)", j.ErrorCode, j.Error)
			} else if j.Artifact != "" {
				line += " -> " + j.Artifact
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&histKind, "kind", "", "only show runs of this kind: data|document|tasks")
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 20, "maximum number of runs to show")
}
