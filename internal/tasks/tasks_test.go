package tasks

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/apperrors"
	"github.com/KaramelBytes/officeloom/internal/report"
)

const taskCSV = `Task Name,Details,State,Importance,Deadline,Owner
Write report,Q3 numbers,In Progress,urgent,2025-03-01,Ana
Write report,dup,done,low,1999-12-31,
,no title,todo,med,2025-01-01,Ben
Review budget,,completed,high,2090-01-01,nan
Plan offsite,,blocked,whatever,not a date,Ana
`

var importTime = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func importCSV(t *testing.T, body string) *Import {
	t.Helper()
	raw, err := analysis.ReadTable([]byte(body), "tasks.csv")
	require.NoError(t, err)
	imp, err := Normalize(raw, importTime)
	require.NoError(t, err)
	return imp
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"  Due Date ": "due_date",
		"Target-Date": "target_date",
		"%Done%":      "done",
		"STATUS!":     "status",
		"Assigned To": "assigned_to",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestMapColumnsFollowsAliasOrder(t *testing.T) {
	got := MapColumns([]string{"Name", " Task ", "STATUS!", "owner"})
	assert.Equal(t, map[string]int{FieldTitle: 1, FieldStatus: 2, FieldAssignee: 3}, got)
	assert.Empty(t, MapColumns([]string{"foo", "bar"}))
}

func TestNormalizeStandardizesAndFlags(t *testing.T) {
	imp := importCSV(t, taskCSV)
	require.Len(t, imp.All, 5)

	first := imp.All[0]
	assert.Equal(t, "Write report", first.Title)
	assert.Equal(t, StatusInProgress, first.Status)
	assert.Equal(t, PriorityHigh, first.Priority)
	assert.Equal(t, "Ana", first.AssignedTo)
	assert.True(t, first.DuplicateTitle)
	assert.False(t, first.AnomalyDueDate)

	second := imp.All[1]
	assert.Equal(t, Unassigned, second.AssignedTo)
	assert.True(t, second.AnomalyDueDate)
	assert.Equal(t, 2, second.AnomalyScore())

	third := imp.All[2]
	assert.True(t, third.MissingTitle)
	assert.False(t, third.DuplicateTitle)
	assert.Equal(t, PriorityMedium, third.Priority)

	assert.Equal(t, Unassigned, imp.All[3].AssignedTo)
	assert.True(t, imp.All[3].AnomalyDueDate)

	last := imp.All[4]
	assert.Equal(t, StatusTodo, last.Status)
	assert.Equal(t, PriorityMedium, last.Priority)
	assert.True(t, last.Due.IsZero())
	assert.Zero(t, last.AnomalyScore())

	s := imp.Summary
	assert.Equal(t, 5, s.RowsUploaded)
	assert.Equal(t, 4, s.RowsAfterCleaning)
	assert.Equal(t, 1, s.RowsRemoved)
	assert.Equal(t, 2, s.DuplicateTitles)
	assert.Equal(t, 2, s.AnomalousDueDates)
	assert.Equal(t, WorkflowSteps, s.WorkflowSteps)
	assert.Equal(t, "2025-01-15T09:00:00Z", s.GeneratedAt)
}

func TestNormalizePivots(t *testing.T) {
	imp := importCSV(t, taskCSV)
	assert.Equal(t, []string{FieldStatus, "high", "low", "medium"}, imp.StatusPriority.Headers)
	assert.Equal(t, [][]any{
		{"done", 1, 1, 0},
		{"in_progress", 1, 0, 0},
		{"todo", 0, 0, 1},
	}, imp.StatusPriority.Rows)
	assert.Equal(t, []string{FieldAssignee, "done", "in_progress", "todo"}, imp.AssigneeStatus.Headers)
	assert.Equal(t, [][]any{
		{"Ana", 0, 1, 1},
		{"unassigned", 2, 0, 0},
	}, imp.AssigneeStatus.Rows)
}

func TestNormalizeDefaultsWhenColumnsAbsent(t *testing.T) {
	imp := importCSV(t, "title\nA\nB\n")
	for _, tk := range imp.All {
		assert.Equal(t, StatusTodo, tk.Status)
		assert.Equal(t, PriorityMedium, tk.Priority)
		assert.Equal(t, Unassigned, tk.AssignedTo)
	}
}

func TestNormalizeRequiresTitle(t *testing.T) {
	raw, err := analysis.ReadTable([]byte("owner,status\nAna,done\n"), "t.csv")
	require.NoError(t, err)
	_, err = Normalize(raw, importTime)
	var ie *apperrors.InputFormatError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.Contains(t, ie.Reason, "title, task, task_name, name")
}

func TestRenderWorkbook(t *testing.T) {
	imp := importCSV(t, taskCSV)
	art, err := Render(imp, report.WorkbookOptions{})
	require.NoError(t, err)
	want := []string{SheetWorkflow, SheetDataQuality, SheetRaw, SheetCleaned, SheetStatusPriority, SheetAssigneeStatus, SheetDashboard}
	assert.Equal(t, want, art.Parts)
	assert.Equal(t, "team_tasks.xlsx", art.SuggestedName("team.xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, want, f.GetSheetList())

	note, err := f.GetCellValue(SheetDashboard, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Analyst Note", note)

	cleaned, err := f.GetRows(SheetCleaned)
	require.NoError(t, err)
	assert.Len(t, cleaned, 5)
	assert.Equal(t, taskHeaders, cleaned[0])

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
