package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/apperrors"
	"github.com/KaramelBytes/officeloom/internal/jobs"
	"github.com/KaramelBytes/officeloom/internal/pipeline"
	"github.com/KaramelBytes/officeloom/internal/report"
	"github.com/KaramelBytes/officeloom/internal/tasks"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

// summary is what every pipeline entry point returns besides the artifact.
type summary interface {
	Markdown() string
}

// result is one processed upload.
type result struct {
	File     string `json:"file"`
	Kind     string `json:"kind"`
	Artifact string `json:"artifact,omitempty"`
	// ContentType is the MIME type of the artifact.
	ContentType string          `json:"content_type,omitempty"`
	Summary     json.RawMessage `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`

	summary summary
	parts   int
}

// process runs one file through the pipeline for kind, writes the artifact
// (to output, or next to the input when empty) and records the job.
func process(cmd *cobra.Command, p *pipeline.Pipeline, store *jobs.Store, kind, path, output string) (result, error) {
	res := result{File: path, Kind: kind}
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("read %s: %w", path, err)
		recordJob(cmd, store, res, err)
		return res, err
	}

	var (
		s   summary
		art *report.Artifact
	)
	ctx := cmd.Context()
	switch kind {
	case pipeline.KindData:
		var ds analysis.DataSummary
		ds, art, err = p.AnalyzeData(ctx, data, path)
		s = ds
	case pipeline.KindDocument:
		var ds report.DeckSummary
		ds, art, err = p.BuildDeck(ctx, data, path)
		s = ds
	case pipeline.KindTasks:
		var ts tasks.Summary
		ts, art, err = p.ImportTasks(ctx, data, path)
		s = ts
	default:
		err = apperrors.Inputf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		recordJob(cmd, store, res, err)
		return res, err
	}

	if output == "" {
		output = utils.OutputPath(path, art.Label, art.Format)
	}
	if err := utils.SafeWriteFile(output, art.Data); err != nil {
		err = fmt.Errorf("write artifact: %w", err)
		recordJob(cmd, store, res, err)
		return res, err
	}
	res.Artifact = output
	res.ContentType = art.ContentType()
	res.summary = s
	res.parts = len(art.Parts)
	if res.Summary, err = json.Marshal(s); err != nil {
		return res, fmt.Errorf("encode summary: %w", err)
	}
	recordJob(cmd, store, res, nil)
	return res, nil
}

func recordJob(cmd *cobra.Command, store *jobs.Store, res result, runErr error) {
	if store == nil {
		return
	}
	j := jobs.Job{
		Kind:     res.Kind,
		Filename: filepath.Base(res.File),
		Status:   jobs.StatusCompleted,
		Summary:  res.Summary,
		Artifact: res.Artifact,
	}
	if runErr != nil {
		j.Status = jobs.StatusFailed
		j.ErrorCode = apperrors.Code(runErr)
		j.Error = runErr.Error()
	}
	if _, err := store.Record(cmd.Context(), j); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: could not record job: %v\n", err)
	}
}

// printResult writes the summary to stdout and the confirmation to stderr.
func printResult(cmd *cobra.Command, res result) error {
	unit := "sheets"
	if res.Kind == pipeline.KindDocument {
		unit = "slides"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s (%d %s)\n", res.Artifact, res.parts, unit)
	if markdownOutput() {
		fmt.Fprint(cmd.OutOrStdout(), res.summary.Markdown())
		return nil
	}
	b, err := utils.PrettyJSON(res.summary)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(b), "\n"))
	return nil
}

// runSingle is the body shared by analyze, deck and tasks.
func runSingle(kind string, output *string) func(*cobra.Command, []string) error {
	return instrumented(func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		store := openHistory(cmd)
		defer closeHistory(store)
		res, err := process(cmd, newPipeline(), store, kind, args[0], *output)
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	})
}
