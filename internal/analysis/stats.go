package analysis

import (
	"math"
	"sort"
)

// Table is a rectangular result ready for rendering. Cells hold float64,
// int, string, time.Time or nil.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Len returns the number of data rows; nil tables have none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// OutlierReport describes IQR outliers for one numeric column.
type OutlierReport struct {
	Column string
	Count  int
	Lower  float64
	Upper  float64
}

// Stats holds everything computed over the analysis view.
type Stats struct {
	Outliers     []OutlierReport
	OutlierTotal int
	Pivot1       *Table
	Pivot2       *Table
	Correlation  *Table
	Categories   *Table
	TopCategory  *Table
	NumericStats *Table
}

const (
	// MinOutlierValues is the minimum non-missing count for the IQR rule.
	MinOutlierValues = 4
	// MaxCategoryColumns and MaxCategoryValues bound the category ranking.
	MaxCategoryColumns = 5
	MaxCategoryValues  = 15
	// TopCategoryChartValues bounds the chart table for the first category.
	TopCategoryChartValues = 10
)

// Analyze computes outliers, pivots, correlations and category shares.
func Analyze(view *Dataset) *Stats {
	st := &Stats{}
	nums := view.ColumnsOf(KindNumeric)
	cats := view.ColumnsOf(KindCategorical)

	st.Outliers = Outliers(nums)
	for _, o := range st.Outliers {
		st.OutlierTotal += o.Count
	}
	if len(cats) >= 1 && len(nums) >= 1 {
		st.Pivot1 = Pivot(cats[0], nums[0])
	}
	if len(cats) >= 2 {
		measure := cats[0]
		if len(nums) >= 1 {
			measure = nums[0]
		}
		st.Pivot2 = CrossTab(cats[0], cats[1], measure)
	}
	if len(nums) >= 1 {
		st.NumericStats = Describe(nums)
	}
	if len(nums) >= 2 {
		st.Correlation = Correlation(nums)
	}
	if len(cats) >= 1 {
		limit := cats
		if len(limit) > MaxCategoryColumns {
			limit = limit[:MaxCategoryColumns]
		}
		st.Categories = CategoryShares(limit, MaxCategoryValues)
		st.TopCategory = topCategoryChart(cats[0])
	}
	return st
}

// Outliers applies the 1.5×IQR rule per column. Columns with fewer than
// MinOutlierValues values or a zero IQR are skipped.
func Outliers(cols []*Column) []OutlierReport {
	var out []OutlierReport
	for _, c := range cols {
		vals := validFloats(c)
		if len(vals) < MinOutlierValues {
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		if iqr == 0 {
			continue
		}
		lo, hi := q1-1.5*iqr, q3+1.5*iqr
		n := 0
		for _, v := range vals {
			if v < lo || v > hi {
				n++
			}
		}
		out = append(out, OutlierReport{Column: c.Name, Count: n, Lower: lo, Upper: hi})
	}
	return out
}

type groupAcc struct {
	sum   float64
	count int
}

// Pivot groups by cat and aggregates num with sum, mean and count.
// Groups without any numeric value are omitted.
func Pivot(cat, num *Column) *Table {
	acc := map[string]*groupAcc{}
	for i := 0; i < cat.Len(); i++ {
		if !cat.Valid[i] || !num.Valid[i] {
			continue
		}
		k := cat.Format(i)
		a := acc[k]
		if a == nil {
			a = &groupAcc{}
			acc[k] = a
		}
		a.sum += num.Num[i]
		a.count++
	}
	keys := sortedKeys(acc)
	t := &Table{
		Name:    "Pivot_1",
		Headers: []string{cat.Name, "sum | " + num.Name, "mean | " + num.Name, "count | " + num.Name},
	}
	for _, k := range keys {
		a := acc[k]
		t.Rows = append(t.Rows, []any{k, a.sum, a.sum / float64(a.count), a.count})
	}
	return t
}

// CrossTab counts non-missing measure values for each (row, col) pair.
// Both axes are sorted; absent pairs are zero.
func CrossTab(rowCol, colCol, measure *Column) *Table {
	counts := map[string]map[string]int{}
	colSet := map[string]struct{}{}
	for i := 0; i < rowCol.Len(); i++ {
		if !rowCol.Valid[i] || !colCol.Valid[i] || !measure.Valid[i] {
			continue
		}
		r, c := rowCol.Format(i), colCol.Format(i)
		m := counts[r]
		if m == nil {
			m = map[string]int{}
			counts[r] = m
		}
		m[c]++
		colSet[c] = struct{}{}
	}
	rows := sortedKeys(counts)
	cols := sortedKeys(colSet)
	t := &Table{Name: "Pivot_2", Headers: append([]string{rowCol.Name}, cols...)}
	for _, r := range rows {
		line := make([]any, 0, len(cols)+1)
		line = append(line, r)
		for _, c := range cols {
			line = append(line, counts[r][c])
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// Correlation builds the Pearson matrix over pairwise-complete rows.
// Undefined coefficients (zero variance) are nil.
func Correlation(cols []*Column) *Table {
	t := &Table{Name: "Correlation", Headers: []string{"Column"}}
	for _, c := range cols {
		t.Headers = append(t.Headers, c.Name)
	}
	for _, a := range cols {
		row := []any{a.Name}
		for _, b := range cols {
			r := pearson(a, b)
			if math.IsNaN(r) {
				row = append(row, nil)
			} else {
				row = append(row, r)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// pearson centres on the pairwise means before summing so large offsets
// (epoch seconds, IDs) do not cancel out.
func pearson(a, b *Column) float64 {
	var n, mx, my float64
	for i := 0; i < a.Len(); i++ {
		if !a.Valid[i] || !b.Valid[i] {
			continue
		}
		n++
		mx += a.Num[i]
		my += b.Num[i]
	}
	if n < 2 {
		return math.NaN()
	}
	mx /= n
	my /= n
	var cov, vx, vy float64
	for i := 0; i < a.Len(); i++ {
		if !a.Valid[i] || !b.Valid[i] {
			continue
		}
		dx, dy := a.Num[i]-mx, b.Num[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx <= 0 || vy <= 0 {
		return math.NaN()
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}

type valueCount struct {
	Value string
	Count int
}

// rankValues returns value counts sorted by count desc, then value asc.
func rankValues(c *Column) ([]valueCount, int) {
	counts := map[string]int{}
	total := 0
	for i := 0; i < c.Len(); i++ {
		if !c.Valid[i] {
			continue
		}
		counts[c.Format(i)]++
		total++
	}
	out := make([]valueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, valueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out, total
}

// CategoryShares lists the top values per column with their share of the
// column's non-missing count, as a percentage rounded to two places.
func CategoryShares(cols []*Column, top int) *Table {
	t := &Table{Name: "Top_Categories", Headers: []string{"Column", "Category", "Count", "Share %"}}
	for _, c := range cols {
		ranked, total := rankValues(c)
		if len(ranked) > top {
			ranked = ranked[:top]
		}
		denom := float64(total)
		if denom < 1 {
			denom = 1
		}
		for _, vc := range ranked {
			t.Rows = append(t.Rows, []any{c.Name, vc.Value, vc.Count, round2(float64(vc.Count) / denom * 100)})
		}
	}
	return t
}

func topCategoryChart(c *Column) *Table {
	ranked, _ := rankValues(c)
	if len(ranked) > TopCategoryChartValues {
		ranked = ranked[:TopCategoryChartValues]
	}
	t := &Table{Name: "Top_Category_Chart", Headers: []string{"Category", "Count"}}
	for _, vc := range ranked {
		t.Rows = append(t.Rows, []any{vc.Value, vc.Count})
	}
	return t
}

// Describe reports count, mean, std, min, quartiles and max per column.
func Describe(cols []*Column) *Table {
	t := &Table{Name: "Numeric_Stats", Headers: []string{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}}
	for _, c := range cols {
		vals := validFloats(c)
		row := []any{c.Name, len(vals)}
		if len(vals) == 0 {
			row = append(row, nil, nil, nil, nil, nil, nil, nil)
			t.Rows = append(t.Rows, row)
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		var sum float64
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(len(vals))
		var std any
		if len(vals) > 1 {
			var ss float64
			for _, v := range vals {
				ss += (v - mean) * (v - mean)
			}
			std = math.Sqrt(ss / float64(len(vals)-1))
		}
		row = append(row, mean, std, sorted[0], quantile(sorted, 0.25), quantile(sorted, 0.5), quantile(sorted, 0.75), sorted[len(sorted)-1])
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ColumnProfile summarizes each column of ds: kind, missing, distinct, first value.
func ColumnProfile(ds *Dataset) *Table {
	t := &Table{Name: "Column_Profile", Headers: []string{"Column", "DType", "Missing", "Distinct", "Sample"}}
	for _, c := range ds.Columns {
		distinct := map[string]struct{}{}
		for i := 0; i < c.Len(); i++ {
			if c.Valid[i] {
				distinct[cellKey(c, i)] = struct{}{}
			}
		}
		sample := ""
		if c.Len() > 0 {
			sample = c.Format(0)
		}
		t.Rows = append(t.Rows, []any{c.Name, string(c.Kind), c.Missing(), len(distinct), sample})
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
