package report

import (
	"fmt"

	"github.com/KaramelBytes/officeloom/internal/analysis"
)

// Sheet names of the analysis workbook.
const (
	SheetDashboard        = "Dashboard"
	SheetColumnProfile    = "Column_Profile"
	SheetMissing          = "Missing_Before_Clean"
	SheetCleaned          = "Cleaned_Data"
	SheetOutliers         = "Outliers"
	SheetPivot1           = "Pivot_1"
	SheetPivot2           = "Pivot_2"
	SheetNumericStats     = "Numeric_Stats"
	SheetCorrelation      = "Correlation"
	SheetTopCategories    = "Top_Categories"
	SheetTopCategoryChart = "Top_Category_Chart"
	SheetNotes            = "Analyst_Notes"
)

const (
	workflowTitle = "Analyst Workflow"
	workflowSteps = "Load -> Profile -> Clean -> Outlier Scan -> Pivot -> Visualize"
	barAnchor     = "A12"
	pieAnchor     = "M12"
)

// AnalysisInput is everything RenderAnalysis lays out.
type AnalysisInput struct {
	Summary analysis.DataSummary
	// Profile is the Column_Profile table over the cleaned dataset.
	Profile         *analysis.Table
	MissingByColumn []analysis.ColumnCount
	// Export holds the cleaned rows written to Cleaned_Data.
	Export *analysis.Dataset
	Stats  *analysis.Stats
}

// RenderAnalysis builds the analysis workbook. It returns the artifact and
// the number of Cleaned_Data sheets written.
func RenderAnalysis(in AnalysisInput, opts WorkbookOptions) (*Artifact, int, error) {
	wb, err := NewWorkbook(opts)
	if err != nil {
		return nil, 0, err
	}
	st := in.Stats
	if st == nil {
		st = &analysis.Stats{}
	}

	metrics := in.Summary.Metrics()
	rows := make([][]any, len(metrics))
	for i, m := range metrics {
		rows[i] = []any{m[0], m[1]}
	}
	if err := wb.AddSheet(SheetDashboard, []string{"Metric", "Value"}, rows); err != nil {
		return nil, 0, err
	}
	if err := wb.SetCell(SheetDashboard, "D1", workflowTitle, true); err != nil {
		return nil, 0, err
	}
	if err := wb.SetCell(SheetDashboard, "D2", workflowSteps, false); err != nil {
		return nil, 0, err
	}

	if err := addTable(wb, in.Profile, SheetColumnProfile); err != nil {
		return nil, 0, err
	}

	missing := make([][]any, len(in.MissingByColumn))
	for i, mc := range in.MissingByColumn {
		missing[i] = []any{mc.Column, mc.Count}
	}
	if _, err := wb.AddTable(SheetMissing, []string{"Column", "Missing Cells"}, missing); err != nil {
		return nil, 0, err
	}

	headers, data := datasetRows(in.Export)
	sheets, err := wb.AddTable(SheetCleaned, headers, data)
	if err != nil {
		return nil, 0, err
	}

	if len(st.Outliers) > 0 {
		out := make([][]any, len(st.Outliers))
		for i, o := range st.Outliers {
			out[i] = []any{o.Column, o.Count, o.Lower, o.Upper}
		}
		if _, err := wb.AddTable(SheetOutliers, []string{"Column", "Outlier Count", "Lower Bound", "Upper Bound"}, out); err != nil {
			return nil, 0, err
		}
	}

	if st.Pivot1 != nil {
		if err := addTable(wb, st.Pivot1, SheetPivot1); err != nil {
			return nil, 0, err
		}
		title := fmt.Sprintf("%s vs %s", st.Pivot1.Headers[0], st.Pivot1.Headers[1])
		if _, err := wb.AddBarChart(SheetDashboard, barAnchor, Chart{Source: SheetPivot1, ValueCols: []int{2}, Title: title}); err != nil {
			return nil, 0, err
		}
	}
	for _, t := range []struct {
		table *analysis.Table
		name  string
	}{
		{st.Pivot2, SheetPivot2},
		{st.NumericStats, SheetNumericStats},
		{st.Correlation, SheetCorrelation},
		{st.Categories, SheetTopCategories},
	} {
		if err := addTable(wb, t.table, t.name); err != nil {
			return nil, 0, err
		}
	}
	if st.TopCategory != nil {
		if err := addTable(wb, st.TopCategory, SheetTopCategoryChart); err != nil {
			return nil, 0, err
		}
		title := "Top " + firstCategorical(in.Summary)
		if _, err := wb.AddPieChart(SheetDashboard, pieAnchor, Chart{Source: SheetTopCategoryChart, ValueCols: []int{2}, Title: title}); err != nil {
			return nil, 0, err
		}
	}

	notes := analystNotes(in.Summary, sheets)
	if _, err := wb.AddTable(SheetNotes, []string{"Note"}, notes); err != nil {
		return nil, 0, err
	}

	parts := wb.Sheets()
	b, err := wb.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return &Artifact{Data: b, Format: FormatXLSX, Label: "analysis", Parts: parts}, sheets, nil
}

// addTable writes t under name; nil tables are skipped.
func addTable(wb *Workbook, t *analysis.Table, name string) error {
	if t == nil {
		return nil
	}
	_, err := wb.AddTable(name, t.Headers, t.Rows)
	return err
}

func datasetRows(ds *analysis.Dataset) ([]string, [][]any) {
	if ds == nil {
		return nil, nil
	}
	rows := make([][]any, ds.Rows())
	for i := range rows {
		rows[i] = ds.Row(i)
	}
	return ds.Names(), rows
}

func firstCategorical(s analysis.DataSummary) string {
	if len(s.CategoricalColumns) > 0 {
		return s.CategoricalColumns[0]
	}
	return "categories"
}

func analystNotes(s analysis.DataSummary, sheets int) [][]any {
	mode := "off"
	if s.LargeDatasetMode {
		mode = "on"
	}
	lines := []string{
		"Pivot sheets are plain ranges; add slicers or timelines in desktop Excel if needed.",
		fmt.Sprintf("Cleaned data spans %d sheet(s) to stay within spreadsheet row limits.", sheets),
		fmt.Sprintf("Cleaned export holds the first %d rows after cleaning.", s.CleanedRowsExported),
		fmt.Sprintf("Outliers, pivots and correlations use a sample of %d rows.", s.AnalysisSampleRows),
		fmt.Sprintf("Large dataset mode is %s.", mode),
	}
	out := make([][]any, len(lines))
	for i, l := range lines {
		out[i] = []any{l}
	}
	return out
}
