package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/officeloom/internal/analysis"
)

func numberedRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{fmt.Sprintf("r%d", i), float64(i)}
	}
	return rows
}

func openWorkbook(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAddTablePaginates(t *testing.T) {
	cases := []struct {
		rows      int
		wantNames []string
		lastRows  int
	}{
		{45, []string{"Data_1", "Data_2", "Data_3", "Data_4", "Data_5"}, 5},
		{20, []string{"Data_1", "Data_2"}, 10},
		{10, []string{"Data"}, 10},
		{0, []string{"Data"}, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d rows", tc.rows), func(t *testing.T) {
			wb, err := NewWorkbook(WorkbookOptions{SheetRowCap: 10})
			require.NoError(t, err)
			n, err := wb.AddTable("Data", []string{"Key", "Value"}, numberedRows(tc.rows))
			require.NoError(t, err)
			assert.Equal(t, len(tc.wantNames), n)
			assert.Equal(t, tc.wantNames, wb.Sheets())

			b, err := wb.Bytes()
			require.NoError(t, err)
			f := openWorkbook(t, b)
			assert.Equal(t, tc.wantNames, f.GetSheetList())

			last, err := f.GetRows(tc.wantNames[len(tc.wantNames)-1])
			require.NoError(t, err)
			assert.Len(t, last, tc.lastRows+1)
			assert.Equal(t, []string{"Key", "Value"}, last[0])
		})
	}
}

func TestAddTableKeepsRowOrderAcrossSheets(t *testing.T) {
	wb, err := NewWorkbook(WorkbookOptions{SheetRowCap: 3})
	require.NoError(t, err)
	_, err = wb.AddTable("Data", []string{"Key", "Value"}, numberedRows(7))
	require.NoError(t, err)
	b, err := wb.Bytes()
	require.NoError(t, err)
	f := openWorkbook(t, b)

	var keys []string
	for _, s := range f.GetSheetList() {
		rows, err := f.GetRows(s)
		require.NoError(t, err)
		for _, r := range rows[1:] {
			keys = append(keys, r[0])
		}
	}
	assert.Equal(t, []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6"}, keys)
}

func TestSheetNameTruncated(t *testing.T) {
	long := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 31), sheetName(long))
	assert.Equal(t, "Pivot_1", sheetName("Pivot_1"))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(
		[]string{"a", "twelve chars", "long"},
		[][]any{{"b", 1.5, strings.Repeat("z", 100)}},
	)
	assert.Equal(t, []float64{10, 14, 54}, widths)
}

func TestChartsSkipSingleRowTables(t *testing.T) {
	wb, err := NewWorkbook(WorkbookOptions{})
	require.NoError(t, err)
	require.NoError(t, wb.AddSheet("Dashboard", []string{"Metric", "Value"}, nil))
	_, err = wb.AddTable("One", []string{"Key", "Count"}, [][]any{{"a", 1}})
	require.NoError(t, err)
	_, err = wb.AddTable("Two", []string{"Key", "Count"}, [][]any{{"a", 1}, {"b", 2}})
	require.NoError(t, err)

	added, err := wb.AddBarChart("Dashboard", "A12", Chart{Source: "One", ValueCols: []int{2}, Title: "one"})
	require.NoError(t, err)
	assert.False(t, added)
	added, err = wb.AddPieChart("Dashboard", "M12", Chart{Source: "Two", ValueCols: []int{2}, Title: "two"})
	require.NoError(t, err)
	assert.True(t, added)

	_, err = wb.AddBarChart("Dashboard", "A30", Chart{Source: "Missing", ValueCols: []int{2}})
	assert.Error(t, err)
}

const salesCSV = `region,amount,channel
North,10,web
South,11,store
North,12,web
South,13,store
North,100,store
East,12,web
`

func TestRenderAnalysisSheetOrder(t *testing.T) {
	raw, err := analysis.ReadTable([]byte(salesCSV), "sales.csv")
	require.NoError(t, err)
	ds := analysis.Infer(raw)
	cleaned, cs := analysis.Clean(ds)
	st := analysis.Analyze(cleaned)
	require.Equal(t, 1, st.OutlierTotal)

	sum := analysis.DataSummary{
		Filename:            "sales.csv",
		RowsUploaded:        6,
		RowsAfterCleaning:   cleaned.Rows(),
		CategoricalColumns:  []string{"region", "channel"},
		NumericColumns:      []string{"amount"},
		AnalysisSampleRows:  cleaned.Rows(),
		CleanedRowsExported: cleaned.Rows(),
	}
	art, sheets, err := RenderAnalysis(AnalysisInput{
		Summary:         sum,
		Profile:         analysis.ColumnProfile(cleaned),
		MissingByColumn: cs.MissingByColumn,
		Export:          cleaned,
		Stats:           st,
	}, WorkbookOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, sheets)
	assert.Equal(t, FormatXLSX, art.Format)
	assert.Equal(t, "sales_analysis.xlsx", art.SuggestedName("uploads/sales.csv"))

	want := []string{
		SheetDashboard, SheetColumnProfile, SheetMissing, SheetCleaned, SheetOutliers,
		SheetPivot1, SheetPivot2, SheetNumericStats, SheetTopCategories, SheetTopCategoryChart, SheetNotes,
	}
	assert.Equal(t, want, art.Parts)

	f := openWorkbook(t, art.Data)
	assert.Equal(t, want, f.GetSheetList())
	d1, err := f.GetCellValue(SheetDashboard, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Analyst Workflow", d1)
	a2, err := f.GetCellValue(SheetDashboard, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Rows Uploaded", a2)

	outliers, err := f.GetRows(SheetOutliers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Column", "Outlier Count", "Lower Bound", "Upper Bound"}, outliers[0])
	assert.Equal(t, "amount", outliers[1][0])

	zr, err := zip.NewReader(bytes.NewReader(art.Data), int64(len(art.Data)))
	require.NoError(t, err)
	charts := 0
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, "xl/charts/chart") {
			charts++
		}
	}
	assert.Equal(t, 2, charts)
}

func TestRenderAnalysisWithoutCategoriesOrOutliers(t *testing.T) {
	raw, err := analysis.ReadTable([]byte("x,y\n1,2\n2,4\n3,6\n4,8\n"), "nums.csv")
	require.NoError(t, err)
	cleaned, cs := analysis.Clean(analysis.Infer(raw))
	art, _, err := RenderAnalysis(AnalysisInput{
		Summary:         analysis.DataSummary{Filename: "nums.csv"},
		Profile:         analysis.ColumnProfile(cleaned),
		MissingByColumn: cs.MissingByColumn,
		Export:          cleaned,
		Stats:           analysis.Analyze(cleaned),
	}, WorkbookOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		SheetDashboard, SheetColumnProfile, SheetMissing, SheetCleaned,
		SheetNumericStats, SheetCorrelation, SheetNotes,
	}, art.Parts)
}

func TestKeywords(t *testing.T) {
	text := "Revenue revenue growth. This growth, with costs; this market is data-driven"
	assert.Equal(t, []string{"revenue", "growth", "costs", "market", "data", "driven"}, Keywords(text, 8))
	assert.Equal(t, []string{"revenue", "growth"}, Keywords(text, 2))
	assert.Empty(t, Keywords("a bb ccc 123", 8))
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, Paragraphs("a\n\nb\n\n\nc\n  \n d "))
	assert.Empty(t, Paragraphs(" \n\n "))
}

func wellFormed(t *testing.T, name string, r io.Reader) {
	t.Helper()
	dec := xml.NewDecoder(r)
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, name)
	}
}

func TestRenderDeck(t *testing.T) {
	paras := make([]string, 30)
	for i := range paras {
		paras[i] = fmt.Sprintf("Paragraph %d <with> & markup", i)
	}
	paras[0] = strings.Repeat("é", 500)
	art, err := RenderDeck(DeckInput{
		Source:     "notes.txt",
		Keywords:   []string{"budget", "hiring"},
		Points:     []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine"},
		Paragraphs: paras,
	})
	require.NoError(t, err)
	assert.Equal(t, FormatPPTX, art.Format)
	assert.Equal(t, "notes_deck.pptx", art.SuggestedName("notes.txt"))
	require.Len(t, art.Parts, 9)
	assert.Equal(t, "Report Deck: notes.txt", art.Parts[0])
	assert.Equal(t, "Executive Snapshot", art.Parts[1])
	assert.Equal(t, "AI Key Points", art.Parts[2])
	assert.Equal(t, "Section 6", art.Parts[8])

	zr, err := zip.NewReader(bytes.NewReader(art.Data), int64(len(art.Data)))
	require.NoError(t, err)
	files := map[string]*zip.File{}
	for _, zf := range zr.File {
		files[zf.Name] = zf
		if strings.HasSuffix(zf.Name, ".xml") || strings.HasSuffix(zf.Name, ".rels") {
			rc, err := zf.Open()
			require.NoError(t, err)
			wellFormed(t, zf.Name, rc)
			rc.Close()
		}
	}
	assert.Contains(t, files, "[Content_Types].xml")
	assert.Contains(t, files, "ppt/slides/slide9.xml")
	assert.NotContains(t, files, "ppt/slides/slide10.xml")

	read := func(name string) string {
		rc, err := files[name].Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	keyPoints := read("ppt/slides/slide3.xml")
	assert.Contains(t, keyPoints, "<a:t>eight</a:t>")
	assert.NotContains(t, keyPoints, "nine")
	section := read("ppt/slides/slide4.xml")
	assert.Contains(t, section, "Paragraph 1 &lt;with&gt; &amp; markup")
	assert.Contains(t, section, "<a:t>"+strings.Repeat("é", 300)+"</a:t>")
}

func TestDeckSlidesPlaceholdersAndTruncation(t *testing.T) {
	slides := deckSlides(DeckInput{Source: strings.Repeat("n", 200), Paragraphs: []string{"only"}})
	require.Len(t, slides, 4)
	assert.Equal(t, MaxTitleRunes, utf8.RuneCountInString(slides[0].title))
	assert.Equal(t, []string{"No keywords extracted"}, slides[1].bullets)
	assert.Equal(t, []string{"No key points extracted"}, slides[2].bullets)
	assert.Equal(t, "Section 1", slides[3].title)
	assert.Equal(t, []string{"only"}, slides[3].bullets)
}
