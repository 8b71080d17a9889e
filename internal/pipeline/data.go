package pipeline

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/report"
)

// AnalyzeData profiles, cleans and analyzes a tabular upload and renders the
// analysis workbook.
//
// Row accounting: rows_profiled counts rows left after the processing
// ceiling; rows_removed = rows_profiled - rows_after_cleaning, so it only
// reflects duplicate removal.
func (p *Pipeline) AnalyzeData(ctx context.Context, data []byte, filename string) (analysis.DataSummary, *report.Artifact, error) {
	r := p.begin(ctx, KindData, filename)
	s := analysis.DataSummary{RunID: r.id, Filename: filepath.Base(filename)}
	var (
		raw     *analysis.RawTable
		cleaned *analysis.Dataset
		cs      analysis.CleanStats
		view    *analysis.Dataset
		st      *analysis.Stats
		art     *report.Artifact
	)

	err := r.stage("read_table", func(context.Context) error {
		var err error
		raw, err = analysis.ReadTable(data, filename)
		return err
	})
	if err == nil {
		err = r.stage("profile", func(context.Context) error {
			s.RowsUploaded = raw.RowsUploaded
			s.ColumnsUploaded = raw.ColumnsUploaded
			if idx := analysis.SampleRows(len(raw.Rows), p.cfg.MaxProcessRows); idx != nil {
				s.LargeDatasetMode = true
				raw = raw.TakeRaw(idx)
			}
			s.RowsProfiled = len(raw.Rows)
			s.RowsSkippedForProfiling = max(s.RowsUploaded-s.RowsProfiled, 0)
			ds := analysis.Infer(raw)
			s.NumericColumns = columnNames(ds, analysis.KindNumeric)
			s.CategoricalColumns = columnNames(ds, analysis.KindCategorical)
			s.DatetimeColumns = columnNames(ds, analysis.KindDatetime)
			cleaned, cs = analysis.Clean(ds)
			return nil
		})
	}
	if err == nil {
		err = r.stage("analyze", func(context.Context) error {
			s.RowsAfterCleaning = cleaned.Rows()
			s.RowsRemoved = s.RowsProfiled - s.RowsAfterCleaning
			s.MissingCellsFilled = cs.MissingFilled
			s.DuplicateRowsRemoved = cs.Duplicates

			view = cleaned
			if idx := analysis.SampleRows(cleaned.Rows(), p.cfg.AnalysisSampleMaxRows); idx != nil {
				view = cleaned.Take(idx)
			}
			s.AnalysisSampleRows = view.Rows()
			st = analysis.Analyze(view)
			s.OutlierCount = st.OutlierTotal
			return nil
		})
	}
	if err == nil {
		err = r.stage("render_workbook", func(context.Context) error {
			export := cleaned.Head(p.cfg.CleanedExportMaxRows)
			s.CleanedRowsExported = export.Rows()
			s.CleanedRowsTruncated = max(cleaned.Rows()-export.Rows(), 0)
			s.GeneratedAt = p.stamp()

			var sheets int
			var err error
			art, sheets, err = report.RenderAnalysis(report.AnalysisInput{
				Summary:         s,
				Profile:         analysis.ColumnProfile(cleaned),
				MissingByColumn: missingDesc(cs.MissingByColumn),
				Export:          export,
				Stats:           st,
			}, p.workbookOptions())
			s.CleanedDataSheets = sheets
			return err
		})
	}
	r.finish(err)
	if err != nil {
		return analysis.DataSummary{}, nil, err
	}
	p.metrics.RowsProcessed(s.RowsProfiled)
	return s, art, nil
}

func columnNames(ds *analysis.Dataset, k analysis.Kind) []string {
	out := []string{}
	for _, c := range ds.ColumnsOf(k) {
		out = append(out, c.Name)
	}
	return out
}

// missingDesc orders columns by missing count, most first; ties keep
// column order.
func missingDesc(in []analysis.ColumnCount) []analysis.ColumnCount {
	out := append([]analysis.ColumnCount(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
