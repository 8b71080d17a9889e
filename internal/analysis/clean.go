package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ColumnCount pairs a column name with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// CleanStats describes what Clean changed.
type CleanStats struct {
	// MissingFilled is the missing-cell total measured before imputation.
	MissingFilled   int
	MissingByColumn []ColumnCount
	// Duplicates is the number of rows dropped as exact duplicates.
	Duplicates int
}

// UnknownCategory fills categorical columns that have no mode.
const UnknownCategory = "unknown"

// Clean imputes missing values and drops exact duplicate rows, keeping the
// first occurrence. The input dataset is not modified.
func Clean(ds *Dataset) (*Dataset, CleanStats) {
	var st CleanStats
	out := &Dataset{Columns: make([]*Column, len(ds.Columns))}
	for i, c := range ds.Columns {
		miss := c.Missing()
		st.MissingFilled += miss
		st.MissingByColumn = append(st.MissingByColumn, ColumnCount{Column: c.Name, Count: miss})
		cc := c.clone()
		switch cc.Kind {
		case KindNumeric:
			imputeMedian(cc)
		case KindDatetime:
			fillForwardBackward(cc)
		default:
			imputeMode(cc)
		}
		out.Columns[i] = cc
	}

	keep := dedupRows(out)
	st.Duplicates = out.Rows() - len(keep)
	if st.Duplicates > 0 {
		out = out.Take(keep)
	}
	return out, st
}

func imputeMedian(c *Column) {
	vals := validFloats(c)
	if len(vals) == len(c.Valid) || len(vals) == 0 {
		return
	}
	sort.Float64s(vals)
	med := quantile(vals, 0.5)
	for i, ok := range c.Valid {
		if !ok {
			c.Num[i] = med
			c.Valid[i] = true
		}
	}
}

func imputeMode(c *Column) {
	fill := UnknownCategory
	if mode, ok := modeOf(c); ok {
		fill = mode
	}
	for i, ok := range c.Valid {
		if !ok {
			c.Str[i] = fill
			c.Valid[i] = true
		}
	}
}

// modeOf returns the most frequent value; ties go to the smallest value.
func modeOf(c *Column) (string, bool) {
	counts := map[string]int{}
	for i, ok := range c.Valid {
		if ok {
			counts[c.Str[i]]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}

func fillForwardBackward(c *Column) {
	last := -1
	for i := range c.Valid {
		if c.Valid[i] {
			last = i
		} else if last >= 0 {
			c.Time[i] = c.Time[last]
			c.Valid[i] = true
		}
	}
	next := -1
	for i := len(c.Valid) - 1; i >= 0; i-- {
		if c.Valid[i] {
			next = i
		} else if next >= 0 {
			c.Time[i] = c.Time[next]
			c.Valid[i] = true
		}
	}
}

// dedupRows returns the indices of first occurrences of each distinct row.
func dedupRows(ds *Dataset) []int {
	n := ds.Rows()
	seen := make(map[string]struct{}, n)
	keep := make([]int, 0, n)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.Reset()
		for _, c := range ds.Columns {
			// Length-prefixed so no cell content can mimic a boundary.
			if !c.Valid[i] {
				b.WriteString("-;")
				continue
			}
			k := cellKey(c, i)
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		k := b.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return keep
}

func cellKey(c *Column, i int) string {
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(c.Num[i], 'g', -1, 64)
	case KindDatetime:
		return strconv.FormatInt(c.Time[i].UnixNano(), 10)
	default:
		return c.Str[i]
	}
}

func validFloats(c *Column) []float64 {
	out := make([]float64, 0, len(c.Valid))
	for i, ok := range c.Valid {
		if ok && !math.IsNaN(c.Num[i]) {
			out = append(out, c.Num[i])
		}
	}
	return out
}
