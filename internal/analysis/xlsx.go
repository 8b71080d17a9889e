package analysis

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX returns the rows of the first worksheet. Cells are read as stored
// values rather than display text, so a 0.12 formatted as a percentage stays
// 0.12; numbers under a date format are converted back to timestamps.
func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := map[int]bool{}
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			styleID, err := f.GetCellStyle(sheet, cell)
			if err != nil || styleID == 0 {
				continue
			}
			isDate, seen := dateStyles[styleID]
			if !seen {
				if st, err := f.GetStyle(styleID); err == nil {
					isDate = isDateFormat(st)
				}
				dateStyles[styleID] = isDate
			}
			if !isDate {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				row[c] = formatSerialTime(t)
			}
		}
	}
	return trimLeadingEmpty(rows), nil
}

// isDateFormat reports whether a number format renders dates or times:
// built-in ids 14-22 and 45-47, or a custom code with date/time tokens
// outside quoted literals and bracketed sections.
func isDateFormat(st *excelize.Style) bool {
	if (st.NumFmt >= 14 && st.NumFmt <= 22) || (st.NumFmt >= 45 && st.NumFmt <= 47) {
		return true
	}
	if st.CustomNumFmt == nil {
		return false
	}
	code := *st.CustomNumFmt
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\':
			i++
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case strings.ContainsRune("dDmMyYhHsS", rune(ch)):
			return true
		}
	}
	return false
}

func formatSerialTime(t time.Time) string {
	// Serials are binary fractions of a day; snap to whole seconds.
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// readXLS reads the first worksheet of a legacy BIFF workbook.
func readXLS(data []byte) (rows [][]string, err error) {
	// The BIFF decoder panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("malformed xls: %v", r)
		}
	}()
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		last := row.LastCol()
		rec := make([]string, 0, last)
		for c := 0; c < last; c++ {
			rec = append(rec, row.Col(c))
		}
		rows = append(rows, rec)
	}
	return trimLeadingEmpty(rows), nil
}

// trimLeadingEmpty drops blank rows above the header.
func trimLeadingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && len(rows[0]) == 0 {
		rows = rows[1:]
	}
	return rows
}
