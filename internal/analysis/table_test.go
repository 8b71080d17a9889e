package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

var csvRows = []string{
	"Group;Concentration (g/L);Temp (°F);Score;LocaleNumber;Category;Note",
	"A;0,5;70;10,0;1.000,0;alpha;first",
	"A;0,6;71;11,0;1.100,0;alpha;second",
	"A;0,55;69;9,5;0.900,0;beta;third",
	"B;0,7;75;10,5;1.050,0;alpha;fourth",
	"B;0,65;74;9,8;0.980,0;beta;fifth",
	"B;0,68;73;10,2;1.020,0;alpha;sixth",
	"A;0,52;68;8,8;0.880,0;gamma;seventh",
	"B;0,75;76;9,7;0.970,0;beta;eighth",
	"A;3,0;95;50,0;5.000,0;alpha;ninth",
	"B;0,66;72;10,1;1.010,0;gamma;tenth",
}

func readCSVString(t *testing.T, body string) *RawTable {
	t.Helper()
	rt, err := ReadTable([]byte(body), "data.csv")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return rt
}

func TestReadTableLocaleCSVAndInfer(t *testing.T) {
	rt := readCSVString(t, strings.Join(csvRows, "\n"))
	if rt.RowsUploaded != 10 || rt.ColumnsUploaded != 7 {
		t.Fatalf("uploaded = %d rows, %d cols", rt.RowsUploaded, rt.ColumnsUploaded)
	}
	ds := Infer(rt)
	want := map[string]Kind{
		"Group":               KindCategorical,
		"Concentration (g/L)": KindNumeric,
		"Temp (°F)":           KindNumeric,
		"Score":               KindNumeric,
		"LocaleNumber":        KindNumeric,
		"Category":            KindCategorical,
		"Note":                KindCategorical,
	}
	for _, c := range ds.Columns {
		if want[c.Name] != c.Kind {
			t.Fatalf("column %q kind = %s, want %s", c.Name, c.Kind, want[c.Name])
		}
	}
	loc := ds.Columns[4]
	if loc.Num[0] != 1000 || loc.Num[8] != 5000 {
		t.Fatalf("locale numbers parsed wrong: %v", loc.Num)
	}
	if ds.Columns[1].Num[0] != 0.5 {
		t.Fatalf("decimal comma parsed wrong: %v", ds.Columns[1].Num[0])
	}
}

func TestReadTableNormalizesColumnsAndRows(t *testing.T) {
	body := "name, ,name,value\n" +
		"a,x,dup,1\n" +
		",,,\n" +
		"b,y,dup,2\n" +
		"NA,,,\n"
	rt := readCSVString(t, body)
	wantHeader := []string{"name", "column_1", "value"}
	if strings.Join(rt.Header, "|") != strings.Join(wantHeader, "|") {
		t.Fatalf("header = %v, want %v", rt.Header, wantHeader)
	}
	if rt.RowsUploaded != 4 {
		t.Fatalf("RowsUploaded = %d, want 4", rt.RowsUploaded)
	}
	if len(rt.Rows) != 2 {
		t.Fatalf("rows after dropping empties = %d, want 2", len(rt.Rows))
	}
	if rt.ColumnsUploaded != 4 {
		t.Fatalf("ColumnsUploaded = %d, want 4", rt.ColumnsUploaded)
	}
}

func TestReadTableErrors(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		filename string
	}{
		{"unsupported", "a,b\n1,2\n", "data.json"},
		{"header only", "a,b\n", "data.csv"},
		{"all empty rows", "a,b\n,\n , \n", "data.csv"},
		{"empty file", "", "data.csv"},
		{"corrupt xlsx", "not a zip", "data.xlsx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTable([]byte(tc.body), tc.filename)
			var ie *apperrors.InputFormatError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputFormatError, got %v", err)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a,b,c\n1,2,3":       ',',
		"a;b;c\n1;2;3":       ';',
		"a\tb\tc\n1\t2\t3":   '\t',
		"\"x;y\",b,c\n1,2,3": ',',
		"single\nrow":        ',',
	}
	for in, want := range cases {
		if got := sniffDelimiter([]byte(in)); got != want {
			t.Fatalf("sniffDelimiter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInferThresholds(t *testing.T) {
	var b strings.Builder
	b.WriteString("mostly_numeric,mixed,when\n")
	for i := 0; i < 40; i++ {
		num := "12"
		if i == 0 {
			num = "oops"
		}
		mixed := "7"
		if i%5 == 0 {
			mixed = "label"
		}
		b.WriteString(num + "," + mixed + ",2024-03-0" + string(rune('1'+i%9)) + "\n")
	}
	ds := Infer(readCSVString(t, b.String()))
	if ds.Columns[0].Kind != KindNumeric {
		t.Fatalf("39/40 numeric should classify numeric, got %s", ds.Columns[0].Kind)
	}
	if ds.Columns[0].Valid[0] {
		t.Fatalf("unparseable cell should become missing after coercion")
	}
	if ds.Columns[1].Kind != KindCategorical {
		t.Fatalf("80%% numeric should stay categorical, got %s", ds.Columns[1].Kind)
	}
	if ds.Columns[2].Kind != KindDatetime {
		t.Fatalf("dates should classify datetime, got %s", ds.Columns[2].Kind)
	}
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"1,000", 1000, true},
		{"1,5", 1.5, true},
		{"1.234,5", 1234.5, true},
		{"1,234.5", 1234.5, true},
		{"12.5%", 12.5, true},
		{"$1,200.50", 1200.5, true},
		{"2024-01-01", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseNumeric(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("parseNumeric(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
