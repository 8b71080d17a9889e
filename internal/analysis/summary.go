package analysis

import (
	"fmt"
	"strings"
)

// DataSummary is the record produced once per tabular run.
type DataSummary struct {
	RunID                   string   `json:"run_id,omitempty"`
	Filename                string   `json:"filename"`
	RowsUploaded            int      `json:"rows_uploaded"`
	ColumnsUploaded         int      `json:"columns_uploaded"`
	RowsProfiled            int      `json:"rows_profiled"`
	RowsSkippedForProfiling int      `json:"rows_skipped_for_profiling"`
	RowsAfterCleaning       int      `json:"rows_after_cleaning"`
	RowsRemoved             int      `json:"rows_removed"`
	MissingCellsFilled      int      `json:"missing_cells_filled"`
	DuplicateRowsRemoved    int      `json:"duplicate_rows_removed"`
	NumericColumns          []string `json:"numeric_columns"`
	CategoricalColumns      []string `json:"categorical_columns"`
	DatetimeColumns         []string `json:"datetime_columns"`
	OutlierCount            int      `json:"outlier_count"`
	AnalysisSampleRows      int      `json:"analysis_sample_rows"`
	LargeDatasetMode        bool     `json:"large_dataset_mode"`
	CleanedRowsExported     int      `json:"cleaned_rows_exported"`
	// CleanedRowsTruncated counts cleaned rows left out of the export.
	CleanedRowsTruncated    int      `json:"cleaned_rows_truncated"`
	CleanedDataSheets       int      `json:"cleaned_data_sheets"`
	GeneratedAt             string   `json:"generated_at"`
}

// Metrics lists the headline counts as label/value pairs, in dashboard order.
func (s DataSummary) Metrics() [][2]any {
	return [][2]any{
		{"Rows Uploaded", s.RowsUploaded},
		{"Columns Uploaded", s.ColumnsUploaded},
		{"Rows Profiled", s.RowsProfiled},
		{"Rows After Cleaning", s.RowsAfterCleaning},
		{"Rows Removed", s.RowsRemoved},
		{"Missing Cells Filled", s.MissingCellsFilled},
		{"Duplicate Rows Removed", s.DuplicateRowsRemoved},
		{"Outlier Count", s.OutlierCount},
	}
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (s DataSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", s.Filename))
	b.WriteString(fmt.Sprintf("Rows: %d uploaded, %d profiled, %d after cleaning\n", s.RowsUploaded, s.RowsProfiled, s.RowsAfterCleaning))
	b.WriteString(fmt.Sprintf("Columns: %d\n", s.ColumnsUploaded))

	b.WriteString("\n[SCHEMA]\n")
	writeKinds(&b, "numeric", s.NumericColumns)
	writeKinds(&b, "datetime", s.DatetimeColumns)
	writeKinds(&b, "categorical", s.CategoricalColumns)

	b.WriteString("\n[CLEANING]\n")
	b.WriteString(fmt.Sprintf("- missing cells filled: %d\n", s.MissingCellsFilled))
	b.WriteString(fmt.Sprintf("- duplicate rows removed: %d\n", s.DuplicateRowsRemoved))
	b.WriteString(fmt.Sprintf("- outliers (IQR): %d\n", s.OutlierCount))

	var notes []string
	if s.LargeDatasetMode {
		notes = append(notes, fmt.Sprintf("large dataset mode: %d rows skipped for profiling", s.RowsSkippedForProfiling))
	}
	if s.AnalysisSampleRows < s.RowsAfterCleaning {
		notes = append(notes, fmt.Sprintf("statistics computed on a sample of %d rows", s.AnalysisSampleRows))
	}
	if s.CleanedRowsTruncated > 0 {
		notes = append(notes, fmt.Sprintf("cleaned export capped at %d rows (%d not exported)", s.CleanedRowsExported, s.CleanedRowsTruncated))
	}
	if s.CleanedDataSheets > 1 {
		notes = append(notes, fmt.Sprintf("cleaned data split across %d sheets", s.CleanedDataSheets))
	}
	if len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeKinds(b *strings.Builder, kind string, names []string) {
	if len(names) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("- %s: %s\n", kind, strings.Join(names, ", ")))
}
