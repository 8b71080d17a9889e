package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

// RawTable is an untyped table as read from an upload.
type RawTable struct {
	Header []string
	Rows   [][]string
	// RowsUploaded counts data rows before empty rows were dropped.
	RowsUploaded int
	// ColumnsUploaded counts header cells before duplicate names were dropped.
	ColumnsUploaded int
}

// TabularExtensions lists the upload extensions ReadTable accepts.
var TabularExtensions = []string{".csv", ".xlsx", ".xls"}

// IsTabular reports whether filename has a tabular extension.
func IsTabular(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range TabularExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadTable parses data according to the extension of filename and
// normalizes the result: empty rows dropped, column names trimmed,
// blank names synthesized, duplicate names dropped.
func ReadTable(data []byte, filename string) (*RawTable, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		records, err = readCSV(data)
	case ".xlsx":
		records, err = readXLSX(data)
	case ".xls":
		records, err = readXLS(data)
	default:
		return nil, apperrors.Inputf("unsupported dataset format %q (use .csv, .xlsx or .xls)", ext)
	}
	if err != nil {
		var ie *apperrors.InputFormatError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, &apperrors.InputFormatError{Reason: "could not parse " + filepath.Base(filename), Err: err}
	}
	return normalize(records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, nil)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line,
// ignoring quoted sections. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ',' || r == ';' || r == '\t'):
			counts[r]++
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func normalize(records [][]string) (*RawTable, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, apperrors.Input("empty dataset")
	}
	header := records[0]
	body := records[1:]
	rt := &RawTable{RowsUploaded: len(body), ColumnsUploaded: len(header)}

	// Column names: trim, synthesize, keep first occurrence of duplicates.
	seen := make(map[string]struct{}, len(header))
	keep := make([]int, 0, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		keep = append(keep, i)
		rt.Header = append(rt.Header, name)
	}

	for _, rec := range body {
		row := make([]string, len(keep))
		empty := true
		for j, src := range keep {
			if src >= len(rec) {
				continue
			}
			v := rec[src]
			if isMissing(v) {
				continue
			}
			row[j] = v
			empty = false
		}
		if empty && !rowHasDroppedValues(rec, keep) {
			continue
		}
		rt.Rows = append(rt.Rows, row)
	}
	if len(rt.Rows) == 0 {
		return nil, apperrors.Input("empty dataset")
	}
	return rt, nil
}

// rowHasDroppedValues reports whether rec holds a value in a column that was
// removed as a duplicate name; such rows are not entirely empty.
func rowHasDroppedValues(rec []string, keep []int) bool {
	kept := make(map[int]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	for i, v := range rec {
		if _, ok := kept[i]; ok {
			continue
		}
		if !isMissing(v) {
			return true
		}
	}
	return false
}
