package analysis

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, startCell string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	col, row, err := excelize.CellNameToCoordinates(startCell)
	if err != nil {
		t.Fatalf("coords: %v", err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(col, row+i)
		vals := r
		if err := f.SetSheetRow("Sheet1", cell, &vals); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadTableXLSX(t *testing.T) {
	data := buildWorkbook(t, "A1", [][]any{
		{"department", "revenue", "opened"},
		{"Surgery", 120.5, "2024-01-02"},
		{"Radiology", 80, "2024-01-03"},
		{"Surgery", 95, "2024-01-04"},
	})
	rt, err := ReadTable(data, "book.xlsx")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if rt.RowsUploaded != 3 || len(rt.Header) != 3 {
		t.Fatalf("got %d rows, header %v", rt.RowsUploaded, rt.Header)
	}
	ds := Infer(rt)
	if ds.Columns[1].Kind != KindNumeric || ds.Columns[1].Num[0] != 120.5 {
		t.Fatalf("revenue column = %s %v", ds.Columns[1].Kind, ds.Columns[1].Num)
	}
	if ds.Columns[2].Kind != KindDatetime {
		t.Fatalf("opened column kind = %s", ds.Columns[2].Kind)
	}
}

func TestReadTableXLSXSkipsLeadingBlankRows(t *testing.T) {
	data := buildWorkbook(t, "A3", [][]any{
		{"name", "score"},
		{"a", 1},
		{"b", 2},
	})
	rt, err := ReadTable(data, "offset.XLSX")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if rt.Header[0] != "name" || rt.Header[1] != "score" {
		t.Fatalf("header = %v", rt.Header)
	}
	if len(rt.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rt.Rows))
	}
}

func TestReadTableXLSXUsesStoredValues(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"ward", "share", "admitted", "billed"},
		{"A", 0.12, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 45292},
		{"B", 0.5, time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC), 45293},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		vals := r
		if err := f.SetSheetRow("Sheet1", cell, &vals); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	dayMonth := "d-mmm"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dayMonth})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "B2", "B3", pct); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "D2", "D3", custom); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	rt, err := ReadTable(buf.Bytes(), "ward.xlsx")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := rt.Rows[0][1]; got != "0.12" {
		t.Fatalf("percent cell = %q, want stored 0.12", got)
	}
	if got := rt.Rows[0][2]; got != "2024-01-02" {
		t.Fatalf("date cell = %q", got)
	}
	if got := rt.Rows[1][2]; got != "2024-01-03 09:30:00" {
		t.Fatalf("datetime cell = %q", got)
	}
	if got := rt.Rows[0][3]; got != "2024-01-01" {
		t.Fatalf("custom date cell = %q", got)
	}

	ds := Infer(rt)
	if ds.Columns[1].Kind != KindNumeric || ds.Columns[1].Num[0] != 0.12 {
		t.Fatalf("share column = %s %v", ds.Columns[1].Kind, ds.Columns[1].Num)
	}
	for _, i := range []int{2, 3} {
		if ds.Columns[i].Kind != KindDatetime {
			t.Fatalf("column %s kind = %s", ds.Columns[i].Name, ds.Columns[i].Kind)
		}
	}
}

func TestIsDateFormat(t *testing.T) {
	code := func(s string) *string { return &s }
	cases := []struct {
		style excelize.Style
		want  bool
	}{
		{excelize.Style{NumFmt: 14}, true},
		{excelize.Style{NumFmt: 22}, true},
		{excelize.Style{NumFmt: 10}, false},
		{excelize.Style{NumFmt: 2}, false},
		{excelize.Style{CustomNumFmt: code("d-mmm")}, true},
		{excelize.Style{CustomNumFmt: code("[h]:mm")}, true},
		{excelize.Style{CustomNumFmt: code(`0.00" days"`)}, false},
		{excelize.Style{CustomNumFmt: code("[Red]#,##0.00")}, false},
	}
	for _, tc := range cases {
		if got := isDateFormat(&tc.style); got != tc.want {
			t.Fatalf("isDateFormat(%+v) = %v, want %v", tc.style, got, tc.want)
		}
	}
}

func TestIsTabular(t *testing.T) {
	for name, want := range map[string]bool{
		"a.csv": true, "b.XLSX": true, "c.xls": true, "d.docx": false, "e": false,
	} {
		if got := IsTabular(name); got != want {
			t.Fatalf("IsTabular(%q) = %v, want %v", name, got, want)
		}
	}
}
