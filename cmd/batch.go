package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/officeloom/internal/pipeline"
	"github.com/KaramelBytes/officeloom/internal/report"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

var (
	batchOutputDir string
	batchQuiet     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Process many datasets and documents, routing each by extension",
	Long: `Expands the given globs, then runs every dataset through analyze and every
document through deck. A failing file does not stop the batch; the command fails
at the end if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: instrumented(func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if batchOutputDir != "" {
			if err := utils.EnsureDir(batchOutputDir); err != nil {
				return err
			}
		}

		store := openHistory(cmd)
		defer closeHistory(store)
		p := newPipeline()
		stderr := cmd.ErrOrStderr()

		var results []result
		failed := 0
		total := len(files)
		for i, path := range files {
			kind := pipeline.Kind(path)
			if kind == "" {
				fmt.Fprintf(stderr, "⚠ Warning: skipping %s: unsupported file type\n", path)
				continue
			}
			if !batchQuiet {
				fmt.Fprintf(stderr, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			output := ""
			if batchOutputDir != "" {
				output = utils.OutputPath(filepath.Join(batchOutputDir, filepath.Base(path)), artifactLabel(kind), artifactExt(kind))
			}
			res, err := process(cmd, p, store, kind, path, output)
			if err != nil {
				failed++
				res.Error = err.Error()
				fmt.Fprintf(stderr, "✗ Error: %s: %v\n", path, err)
				results = append(results, res)
				continue
			}
			results = append(results, res)
			if markdownOutput() {
				if err := printResult(cmd, res); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
			} else if !batchQuiet {
				fmt.Fprintf(stderr, "✓ Wrote %s\n", res.Artifact)
			}
		}
		if !markdownOutput() {
			b, err := utils.PrettyJSON(results)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for artifacts (default: next to each input)")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress progress output")
}

// expandInputs resolves globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err != nil || fi.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func artifactLabel(kind string) string {
	if kind == pipeline.KindDocument {
		return "deck"
	}
	return "analysis"
}

func artifactExt(kind string) string {
	if kind == pipeline.KindDocument {
		return report.FormatPPTX
	}
	return report.FormatXLSX
}
