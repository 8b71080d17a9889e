package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanImputesAndDedups(t *testing.T) {
	rt := readCSVString(t, "name,amount,day\n"+
		"A,1,2024-01-01\n"+
		"B,,\n"+
		"A,1,2024-01-01\n"+
		",3,2024-01-03\n")
	ds := Infer(rt)
	require.Equal(t, []Kind{KindCategorical, KindNumeric, KindDatetime},
		[]Kind{ds.Columns[0].Kind, ds.Columns[1].Kind, ds.Columns[2].Kind})

	cleaned, st := Clean(ds)
	assert.Equal(t, 3, st.MissingFilled)
	assert.Equal(t, []ColumnCount{{"name", 1}, {"amount", 1}, {"day", 1}}, st.MissingByColumn)
	assert.Equal(t, 1, st.Duplicates)
	require.Equal(t, 3, cleaned.Rows())

	for _, c := range cleaned.Columns {
		assert.Zero(t, c.Missing(), "column %s still has missing cells", c.Name)
	}
	// Row B: median amount, forward-filled day.
	assert.Equal(t, "B", cleaned.Columns[0].Str[1])
	assert.Equal(t, 1.0, cleaned.Columns[1].Num[1])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cleaned.Columns[2].Time[1])
	// Blank name takes the mode.
	assert.Equal(t, "A", cleaned.Columns[0].Str[2])

	// Source dataset is untouched.
	assert.Equal(t, 3, ds.Columns[0].Missing()+ds.Columns[1].Missing()+ds.Columns[2].Missing())
}

func TestDedupComparesWholeCells(t *testing.T) {
	ds := &Dataset{Columns: []*Column{
		catCol("a", "p\x1f", "p", "p\x1f"),
		catCol("b", "q", "\x1fq", "q"),
	}}
	cleaned, st := Clean(ds)
	assert.Equal(t, 1, st.Duplicates)
	require.Equal(t, 2, cleaned.Rows())
	assert.Equal(t, []string{"p\x1f", "p"}, cleaned.Columns[0].Str)
	assert.Equal(t, []string{"q", "\x1fq"}, cleaned.Columns[1].Str)
}

func TestCleanIsIdempotent(t *testing.T) {
	ds := Infer(readCSVString(t, idempotentFixture()))
	once, _ := Clean(ds)
	twice, st := Clean(once)
	assert.Zero(t, st.MissingFilled)
	assert.Zero(t, st.Duplicates)
	require.Equal(t, once.Rows(), twice.Rows())
	for i := 0; i < once.Rows(); i++ {
		assert.Equal(t, once.Row(i), twice.Row(i))
	}
}

func idempotentFixture() string {
	return "k,v\nx,1\ny,\nx,1\n,2\nz,2\n"
}

func TestCleanBackfillsLeadingDates(t *testing.T) {
	ds := Infer(readCSVString(t, "id,when\n1,\n2,2024-05-02\n3,\n"))
	cleaned, _ := Clean(ds)
	want := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, cleaned.Columns[1].Time[i])
	}
}

func TestCleanAllMissingCategoryUsesUnknown(t *testing.T) {
	c := &Column{Name: "note", Kind: KindCategorical, Str: []string{"", ""}, Valid: []bool{false, false}}
	n := &Column{Name: "n", Kind: KindNumeric, Num: []float64{1, 2}, Valid: []bool{true, true}}
	cleaned, st := Clean(&Dataset{Columns: []*Column{c, n}})
	assert.Equal(t, 2, st.MissingFilled)
	assert.Equal(t, []string{UnknownCategory, UnknownCategory}, cleaned.Columns[0].Str)
}

func TestModeTieBreaksOnSmallestValue(t *testing.T) {
	c := &Column{Kind: KindCategorical, Str: []string{"b", "a", "b", "a"}, Valid: []bool{true, true, true, true}}
	mode, ok := modeOf(c)
	require.True(t, ok)
	assert.Equal(t, "a", mode)
}

func TestSampleRowsDeterministic(t *testing.T) {
	assert.Nil(t, SampleRows(10, 10))
	assert.Nil(t, SampleRows(5, 10))

	a := SampleRows(1000, 100)
	b := SampleRows(1000, 100)
	require.Len(t, a, 100)
	assert.Equal(t, a, b)
	seen := map[int]bool{}
	for i, v := range a {
		assert.False(t, seen[v], "duplicate index %d", v)
		seen[v] = true
		assert.True(t, v >= 0 && v < 1000)
		if i > 0 {
			assert.Less(t, a[i-1], v)
		}
	}
}
