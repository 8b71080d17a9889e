package analysis

import (
	"math/rand"
	"sort"
	"strconv"
	"time"
)

// Kind is the inferred semantic type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
)

const (
	// SampleSeed seeds every sampling decision so a run is reproducible.
	SampleSeed = 42
	// TypeInferenceSample bounds how many values are inspected per column.
	TypeInferenceSample = 2000
	// TypeInferenceThreshold is the share of sampled values that must coerce.
	TypeInferenceThreshold = 0.95
)

// Column is a typed column. Exactly one of Num, Time or Str is populated,
// matching Kind. Valid marks non-missing cells.
type Column struct {
	Name  string
	Kind  Kind
	Num   []float64
	Time  []time.Time
	Str   []string
	Valid []bool
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Valid) }

// Missing counts invalid cells.
func (c *Column) Missing() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Value returns the cell as float64, time.Time or string, or nil when missing.
func (c *Column) Value(i int) any {
	if !c.Valid[i] {
		return nil
	}
	switch c.Kind {
	case KindNumeric:
		return c.Num[i]
	case KindDatetime:
		return c.Time[i]
	default:
		return c.Str[i]
	}
}

// Format renders the cell for display; missing cells render empty.
func (c *Column) Format(i int) string {
	if !c.Valid[i] {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(c.Num[i], 'g', -1, 64)
	case KindDatetime:
		t := c.Time[i]
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return c.Str[i]
	}
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Valid: make([]bool, len(idx))}
	switch c.Kind {
	case KindNumeric:
		out.Num = make([]float64, len(idx))
	case KindDatetime:
		out.Time = make([]time.Time, len(idx))
	default:
		out.Str = make([]string, len(idx))
	}
	for j, i := range idx {
		out.Valid[j] = c.Valid[i]
		switch c.Kind {
		case KindNumeric:
			out.Num[j] = c.Num[i]
		case KindDatetime:
			out.Time[j] = c.Time[i]
		default:
			out.Str[j] = c.Str[i]
		}
	}
	return out
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Valid: append([]bool(nil), c.Valid...)}
	out.Num = append([]float64(nil), c.Num...)
	out.Time = append([]time.Time(nil), c.Time...)
	out.Str = append([]string(nil), c.Str...)
	return out
}

// Dataset is an ordered set of equally long typed columns.
type Dataset struct {
	Columns []*Column
}

// Rows returns the row count.
func (d *Dataset) Rows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnsOf returns the columns of kind k in dataset order.
func (d *Dataset) ColumnsOf(k Kind) []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Take returns a new dataset holding the rows at idx, in idx order.
func (d *Dataset) Take(idx []int) *Dataset {
	out := &Dataset{Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		out.Columns[i] = c.take(idx)
	}
	return out
}

// Head returns the first n rows (all rows when n >= Rows()).
func (d *Dataset) Head(n int) *Dataset {
	if n >= d.Rows() {
		return d
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.Take(idx)
}

// Row returns the cell values of row i.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Value(i)
	}
	return out
}

// SampleRows returns ceiling row indices drawn uniformly without replacement
// from [0, n) with the fixed seed, sorted ascending. It returns nil when
// n <= ceiling, meaning no sampling is needed.
func SampleRows(n, ceiling int) []int {
	if ceiling <= 0 || n <= ceiling {
		return nil
	}
	r := rand.New(rand.NewSource(SampleSeed))
	idx := r.Perm(n)[:ceiling]
	sort.Ints(idx)
	return idx
}

// TakeRaw narrows a raw table to the given row indices.
func (t *RawTable) TakeRaw(idx []int) *RawTable {
	out := &RawTable{Header: t.Header, RowsUploaded: t.RowsUploaded, ColumnsUploaded: t.ColumnsUploaded}
	out.Rows = make([][]string, len(idx))
	for j, i := range idx {
		out.Rows[j] = t.Rows[i]
	}
	return out
}

// Infer classifies every column of t and coerces it to the chosen type.
// Unparseable cells become missing.
func Infer(t *RawTable) *Dataset {
	ds := &Dataset{Columns: make([]*Column, len(t.Header))}
	for j, name := range t.Header {
		vals := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			vals[i] = row[j]
		}
		kind := inferKind(vals)
		ds.Columns[j] = coerce(name, kind, vals)
	}
	return ds
}

func inferKind(vals []string) Kind {
	present := make([]string, 0, len(vals))
	for _, v := range vals {
		if !isMissing(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return KindCategorical
	}
	sample := present
	if idx := SampleRows(len(present), TypeInferenceSample); idx != nil {
		sample = make([]string, len(idx))
		for i, k := range idx {
			sample[i] = present[k]
		}
	}
	need := TypeInferenceThreshold * float64(len(sample))
	ok := 0
	for _, v := range sample {
		if _, good := parseNumeric(v); good {
			ok++
		}
	}
	if float64(ok) >= need {
		return KindNumeric
	}
	ok = 0
	for _, v := range sample {
		if _, good := parseTimeMaybe(v); good {
			ok++
		}
	}
	if float64(ok) >= need {
		return KindDatetime
	}
	return KindCategorical
}

func coerce(name string, kind Kind, vals []string) *Column {
	c := &Column{Name: name, Kind: kind, Valid: make([]bool, len(vals))}
	switch kind {
	case KindNumeric:
		c.Num = make([]float64, len(vals))
		for i, v := range vals {
			if isMissing(v) {
				continue
			}
			c.Num[i], c.Valid[i] = parseNumeric(v)
		}
	case KindDatetime:
		c.Time = make([]time.Time, len(vals))
		for i, v := range vals {
			if isMissing(v) {
				continue
			}
			c.Time[i], c.Valid[i] = parseTimeMaybe(v)
		}
	default:
		c.Str = make([]string, len(vals))
		for i, v := range vals {
			if isMissing(v) {
				continue
			}
			c.Str[i] = v
			c.Valid[i] = true
		}
	}
	return c
}
