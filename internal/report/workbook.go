package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

const (
	// DefaultSheetRowCap is the spreadsheet row limit minus the header row.
	DefaultSheetRowCap = 1_048_575

	maxSheetName    = 31
	widthSampleRows = 250
	minColWidth     = 10
	maxColWidth     = 54
	headerFill      = "DDEBFF"
	defaultSheet    = "Sheet1"
)

// WorkbookOptions tunes workbook rendering.
type WorkbookOptions struct {
	// SheetRowCap is the number of data rows per sheet before pagination.
	// Zero means DefaultSheetRowCap.
	SheetRowCap int
}

type sheetRef struct {
	sheet string
	rows  int
	cols  int
}

// Workbook accumulates sheets and charts and serializes them in one pass.
// Sheets appear in the order they are added.
type Workbook struct {
	f      *excelize.File
	cap    int
	header int
	bold   int
	sheets []string
	tables map[string]sheetRef
}

// NewWorkbook creates an empty workbook.
func NewWorkbook(opts WorkbookOptions) (*Workbook, error) {
	rowCap := opts.SheetRowCap
	if rowCap <= 0 || rowCap > DefaultSheetRowCap {
		rowCap = DefaultSheetRowCap
	}
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return nil, apperrors.Render("workbook style", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, apperrors.Render("workbook style", err)
	}
	return &Workbook{f: f, cap: rowCap, header: header, bold: bold, tables: map[string]sheetRef{}}, nil
}

// Sheets returns the sheet names added so far, in order.
func (w *Workbook) Sheets() []string { return append([]string(nil), w.sheets...) }

func (w *Workbook) newSheet(name string) error {
	if _, err := w.f.NewSheet(name); err != nil {
		return apperrors.Render("sheet "+name, err)
	}
	w.sheets = append(w.sheets, name)
	return nil
}

// AddSheet writes a small editable sheet (header plus rows) starting at A1.
// Use SetCell afterwards to annotate it; large tables belong in AddTable.
func (w *Workbook) AddSheet(name string, headers []string, rows [][]any) error {
	name = sheetName(name)
	if err := w.newSheet(name); err != nil {
		return err
	}
	if err := w.f.SetSheetRow(name, "A1", &headers); err != nil {
		return apperrors.Render("sheet "+name, err)
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if err := w.f.SetCellStyle(name, "A1", last, w.header); err != nil {
			return apperrors.Render("sheet "+name, err)
		}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = cellValue(v)
		}
		if err := w.f.SetSheetRow(name, cell, &vals); err != nil {
			return apperrors.Render("sheet "+name, err)
		}
	}
	for i, width := range columnWidths(headers, rows) {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(name, col, col, width); err != nil {
			return apperrors.Render("sheet "+name, err)
		}
	}
	w.tables[name] = sheetRef{sheet: name, rows: len(rows), cols: len(headers)}
	return nil
}

// SetCell writes a single value on a sheet created with AddSheet.
func (w *Workbook) SetCell(sheet, cell string, v any, bold bool) error {
	if err := w.f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
		return apperrors.Render("sheet "+sheet, err)
	}
	if bold {
		if err := w.f.SetCellStyle(sheet, cell, cell, w.bold); err != nil {
			return apperrors.Render("sheet "+sheet, err)
		}
	}
	return nil
}

// AddTable streams headers and rows into one or more sheets. When rows exceed
// the sheet cap they are split into "<base>_1", "<base>_2", ...; otherwise the
// sheet is named base. An empty table still gets a header-only sheet. It
// returns the number of sheets written.
func (w *Workbook) AddTable(base string, headers []string, rows [][]any) (int, error) {
	pages := 1
	if len(rows) > w.cap {
		pages = (len(rows) + w.cap - 1) / w.cap
	}
	for p := 0; p < pages; p++ {
		name := base
		if pages > 1 {
			name = fmt.Sprintf("%s_%d", base, p+1)
		}
		name = sheetName(name)
		chunk := rows[p*w.cap : min((p+1)*w.cap, len(rows))]
		if err := w.streamSheet(name, headers, chunk); err != nil {
			return p, err
		}
		if p == 0 {
			w.tables[base] = sheetRef{sheet: name, rows: len(chunk), cols: len(headers)}
		}
	}
	return pages, nil
}

func (w *Workbook) streamSheet(name string, headers []string, rows [][]any) error {
	if err := w.newSheet(name); err != nil {
		return err
	}
	sw, err := w.f.NewStreamWriter(name)
	if err != nil {
		return apperrors.Render("sheet "+name, err)
	}
	// Widths must be declared before the first row.
	for i, width := range columnWidths(headers, rows) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return apperrors.Render("sheet "+name, err)
		}
	}
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = excelize.Cell{StyleID: w.header, Value: h}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return apperrors.Render("sheet "+name, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = cellValue(v)
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return apperrors.Render("sheet "+name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return apperrors.Render("sheet "+name, err)
	}
	return nil
}

// Chart describes a chart drawn from a table added earlier.
type Chart struct {
	// Source is the base name passed to AddTable or AddSheet.
	Source string
	// ValueCols are 1-based columns plotted as series; categories come from column 1.
	ValueCols []int
	Title     string
	// Horizontal draws bars instead of columns.
	Horizontal bool
}

// AddBarChart places a column chart on target at anchor. Tables with at most
// one data row are skipped; the boolean reports whether a chart was added.
func (w *Workbook) AddBarChart(target, anchor string, c Chart) (bool, error) {
	typ := excelize.Col
	if c.Horizontal {
		typ = excelize.Bar
	}
	return w.addChart(target, anchor, typ, c, excelize.ChartDimension{Width: 416, Height: 265})
}

// AddPieChart is AddBarChart for a pie chart; only the first value column is used.
func (w *Workbook) AddPieChart(target, anchor string, c Chart) (bool, error) {
	if len(c.ValueCols) > 1 {
		c.ValueCols = c.ValueCols[:1]
	}
	return w.addChart(target, anchor, excelize.Pie, c, excelize.ChartDimension{Width: 340, Height: 265})
}

func (w *Workbook) addChart(target, anchor string, typ excelize.ChartType, c Chart, dim excelize.ChartDimension) (bool, error) {
	ref, ok := w.tables[c.Source]
	if !ok {
		return false, apperrors.Render("chart", fmt.Errorf("unknown source table %q", c.Source))
	}
	if ref.rows <= 1 || len(c.ValueCols) == 0 {
		return false, nil
	}
	quoted := "'" + strings.ReplaceAll(ref.sheet, "'", "''") + "'"
	last := ref.rows + 1
	var series []excelize.ChartSeries
	for _, col := range c.ValueCols {
		if col < 2 || col > ref.cols {
			continue
		}
		name, _ := excelize.ColumnNumberToName(col)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", quoted, name),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", quoted, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", quoted, name, name, last),
		})
	}
	if len(series) == 0 {
		return false, nil
	}
	chart := &excelize.Chart{
		Type:      typ,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: c.Title}},
		Dimension: dim,
		Legend:    excelize.ChartLegend{Position: "right"},
	}
	if err := w.f.AddChart(target, anchor, chart); err != nil {
		return false, apperrors.Render("chart "+c.Title, err)
	}
	return true, nil
}

// Bytes serializes the workbook. The default sheet created by excelize is
// removed when unused and the first added sheet becomes active.
func (w *Workbook) Bytes() ([]byte, error) {
	defer w.f.Close()
	if len(w.sheets) > 0 && !w.has(defaultSheet) {
		if err := w.f.DeleteSheet(defaultSheet); err != nil {
			return nil, apperrors.Render("workbook", err)
		}
		if idx, err := w.f.GetSheetIndex(w.sheets[0]); err == nil && idx >= 0 {
			w.f.SetActiveSheet(idx)
		}
	}
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.Render("workbook", err)
	}
	return buf.Bytes(), nil
}

func (w *Workbook) has(name string) bool {
	for _, s := range w.sheets {
		if s == name {
			return true
		}
	}
	return false
}

// sheetName truncates to the spreadsheet limit of 31 characters.
func sheetName(name string) string {
	if utf8.RuneCountInString(name) <= maxSheetName {
		return name
	}
	return string([]rune(name)[:maxSheetName])
}

// cellValue converts analysis values to something excelize writes as-is.
func cellValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

func cellText(v any) string {
	switch x := cellValue(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// columnWidths sizes columns from the header and the first rows:
// clamp(longest+2, 10, 54).
func columnWidths(headers []string, rows [][]any) []float64 {
	longest := make([]int, len(headers))
	for i, h := range headers {
		longest[i] = utf8.RuneCountInString(h)
	}
	for r := 0; r < len(rows) && r < widthSampleRows-1; r++ {
		for i, v := range rows[r] {
			if i >= len(longest) {
				break
			}
			longest[i] = max(longest[i], utf8.RuneCountInString(cellText(v)))
		}
	}
	out := make([]float64, len(longest))
	for i, n := range longest {
		out[i] = float64(min(max(n+2, minColWidth), maxColWidth))
	}
	return out
}
