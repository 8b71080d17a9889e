package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/jobs"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize recent runs: data quality trend, deck output, pipeline health",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		store, err := jobs.Open(cmd.Context(), currentConfig().JobsDB)
		if err != nil {
			return err
		}
		defer closeHistory(store)
		ins, err := jobs.BuildInsights(cmd.Context(), store, newProber().Profile())
		if err != nil {
			return err
		}
		if markdownOutput() {
			writeInsights(cmd.OutOrStdout(), ins)
			return nil
		}
		b, err := utils.PrettyJSON(ins)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func writeInsights(w io.Writer, ins *jobs.Insights) {
	fmt.Fprintln(w, "[PIPELINE HEALTH]")
	for _, kind := range []string{jobs.KindData, jobs.KindTasks, jobs.KindDocument} {
		h := ins.PipelineHealth[kind]
		fmt.Fprintf(w, "- %s: %d completed, %d failed (%.2f%% success)\n", kind, h.Completed, h.Failed, h.SuccessRate())
	}
	if len(ins.DataQuality) > 0 {
		fmt.Fprintln(w, "\n[DATA QUALITY]")
		for _, d := range ins.DataQuality {
			fmt.Fprintf(w, "- %s %s: %d cleaned, %d removed, %d flagged\n", d.Label, d.Filename, d.CleanedRows, d.RowsRemoved, d.Outliers)
		}
	}
	if len(ins.DocumentTrend) > 0 {
		fmt.Fprintln(w, "\n[DECKS]")
		for _, d := range ins.DocumentTrend {
			fmt.Fprintf(w, "- %s %s: %d slides\n", d.Label, d.Filename, d.Slides)
		}
	}
	if len(ins.TopKeywords) > 0 {
		kws := make([]string, len(ins.TopKeywords))
		for i, k := range ins.TopKeywords {
			kws[i] = fmt.Sprintf("%s (%d)", k.Keyword, k.Count)
		}
		fmt.Fprintf(w, "\nTop keywords: %s\n", strings.Join(kws, ", "))
	}
	r := ins.Runtime
	fmt.Fprintf(w, "\nRuntime: %d CPUs, %d worker threads, device %s, embeddings %s\n", r.CPUCount, r.WorkerThreads, r.Device, r.EmbeddingModel)
}
