// Package tasks turns an uploaded task list into a normalized, flagged task
// table with workload pivots.
package tasks

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

// Canonical task fields.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldAssignee    = "assigned_to"
)

// Canonical values.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	Unassigned       = "unassigned"
)

// Alias maps a canonical field to the header spellings that select it.
type Alias struct {
	Field string
	Names []string
}

// Aliases is ordered: within a field, earlier names win when several
// headers match.
var Aliases = []Alias{
	{FieldTitle, []string{"title", "task", "task_name", "name"}},
	{FieldDescription, []string{"description", "details", "notes"}},
	{FieldStatus, []string{"status", "state"}},
	{FieldPriority, []string{"priority", "importance"}},
	{FieldDueDate, []string{"due_date", "deadline", "due", "target_date"}},
	{FieldAssignee, []string{"assigned_to", "owner", "assignee", "assigned"}},
}

var statusMap = map[string]string{
	"todo":        StatusTodo,
	"to_do":       StatusTodo,
	"in_progress": StatusInProgress,
	"in progress": StatusInProgress,
	"done":        StatusDone,
	"completed":   StatusDone,
}

var priorityMap = map[string]string{
	"low":    PriorityLow,
	"medium": PriorityMedium,
	"med":    PriorityMedium,
	"high":   PriorityHigh,
	"urgent": PriorityHigh,
}

// Due dates outside [earliestDue, now+dueHorizon] are flagged.
var earliestDue = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const dueHorizon = 3650 * 24 * time.Hour

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeHeader lowercases h, replaces every non-alphanumeric character
// with '_' and trims surrounding underscores.
func NormalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "_"), "_")
}

// MapColumns resolves canonical fields to header indexes. Fields without a
// matching header are absent from the result.
func MapColumns(headers []string) map[string]int {
	byName := map[string]int{}
	for i, h := range headers {
		n := NormalizeHeader(h)
		if _, seen := byName[n]; !seen {
			byName[n] = i
		}
	}
	out := map[string]int{}
	for _, a := range Aliases {
		for _, name := range a.Names {
			if i, ok := byName[name]; ok {
				out[a.Field] = i
				break
			}
		}
	}
	return out
}

// Task is one normalized row.
type Task struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  string
	// Due is zero when the due date is absent or unparseable.
	Due time.Time

	MissingTitle   bool
	DuplicateTitle bool
	AnomalyDueDate bool
}

// AnomalyScore counts the raised flags.
func (t Task) AnomalyScore() int {
	n := 0
	for _, f := range []bool{t.MissingTitle, t.DuplicateTitle, t.AnomalyDueDate} {
		if f {
			n++
		}
	}
	return n
}

// WorkflowSteps documents the import stages in the order they run.
var WorkflowSteps = []string{
	"Load spreadsheet",
	"Normalize schema",
	"Clean and standardize values",
	"Detect anomalies",
	"Generate pivots and charts",
	"Build dashboard workbook",
}

// Summary is the record produced once per task import.
type Summary struct {
	RunID             string   `json:"run_id,omitempty"`
	Filename          string   `json:"filename"`
	RowsUploaded      int      `json:"rows_uploaded"`
	RowsAfterCleaning int      `json:"rows_after_cleaning"`
	RowsRemoved       int      `json:"rows_removed"`
	DuplicateTitles   int      `json:"duplicate_titles"`
	AnomalousDueDates int      `json:"anomalous_due_dates"`
	WorkflowSteps     []string `json:"workflow_steps"`
	GeneratedAt       string   `json:"generated_at"`
}

// Metrics lists the headline counts in dashboard order.
func (s Summary) Metrics() [][2]any {
	return [][2]any{
		{"Rows Uploaded", s.RowsUploaded},
		{"Rows After Cleaning", s.RowsAfterCleaning},
		{"Rows Removed", s.RowsRemoved},
		{"Duplicate Titles", s.DuplicateTitles},
		{"Anomalous Due Dates", s.AnomalousDueDates},
	}
}

// Markdown renders the import summary for terminals.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[TASK IMPORT]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", s.Filename))
	for _, m := range s.Metrics() {
		b.WriteString(fmt.Sprintf("- %s: %v\n", m[0], m[1]))
	}
	return b.String()
}

// Import is the outcome of Normalize.
type Import struct {
	// All holds every uploaded row; Cleaned only rows with a title.
	All     []Task
	Cleaned []Task
	// StatusPriority and AssigneeStatus count cleaned tasks per pair.
	StatusPriority *analysis.Table
	AssigneeStatus *analysis.Table
	Summary        Summary
}

// Normalize maps raw columns onto task fields, standardizes values and
// flags anomalies relative to now. A table without a title column is
// rejected.
func Normalize(raw *analysis.RawTable, now time.Time) (*Import, error) {
	cols := MapColumns(raw.Header)
	if _, ok := cols[FieldTitle]; !ok {
		return nil, apperrors.Inputf("could not find a title column; expected one of: %s", strings.Join(Aliases[0].Names, ", "))
	}
	cell := func(row []string, field string) (string, bool) {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		if analysis.IsMissing(v) {
			return "", true
		}
		return v, true
	}

	latest := now.Add(dueHorizon)
	all := make([]Task, len(raw.Rows))
	titles := map[string]int{}
	for i, row := range raw.Rows {
		t := Task{Status: StatusTodo, Priority: PriorityMedium, AssignedTo: Unassigned}
		t.Title, _ = cell(row, FieldTitle)
		t.Description, _ = cell(row, FieldDescription)
		if v, ok := cell(row, FieldStatus); ok {
			t.Status = lookup(statusMap, v, StatusTodo)
		}
		if v, ok := cell(row, FieldPriority); ok {
			t.Priority = lookup(priorityMap, v, PriorityMedium)
		}
		if v, _ := cell(row, FieldAssignee); v != "" {
			t.AssignedTo = v
		}
		if v, _ := cell(row, FieldDueDate); v != "" {
			if due, ok := analysis.ParseTime(v); ok {
				t.Due = due
				t.AnomalyDueDate = due.Before(earliestDue) || due.After(latest)
			}
		}
		t.MissingTitle = t.Title == ""
		if !t.MissingTitle {
			titles[t.Title]++
		}
		all[i] = t
	}

	imp := &Import{All: all}
	for i := range all {
		if !all[i].MissingTitle && titles[all[i].Title] > 1 {
			all[i].DuplicateTitle = true
			imp.Summary.DuplicateTitles++
		}
		if all[i].AnomalyDueDate {
			imp.Summary.AnomalousDueDates++
		}
		if !all[i].MissingTitle {
			imp.Cleaned = append(imp.Cleaned, all[i])
		}
	}
	imp.StatusPriority = crossCount(imp.Cleaned, FieldStatus, FieldPriority)
	imp.AssigneeStatus = crossCount(imp.Cleaned, FieldAssignee, FieldStatus)

	imp.Summary.RowsUploaded = len(all)
	imp.Summary.RowsAfterCleaning = len(imp.Cleaned)
	imp.Summary.RowsRemoved = len(all) - len(imp.Cleaned)
	imp.Summary.WorkflowSteps = append([]string(nil), WorkflowSteps...)
	imp.Summary.GeneratedAt = now.UTC().Format(time.RFC3339)
	return imp, nil
}

func lookup(m map[string]string, v, def string) string {
	if out, ok := m[strings.ToLower(strings.TrimSpace(v))]; ok {
		return out
	}
	return def
}

func (t Task) field(name string) string {
	switch name {
	case FieldStatus:
		return t.Status
	case FieldPriority:
		return t.Priority
	case FieldAssignee:
		return t.AssignedTo
	default:
		return t.Title
	}
}

// crossCount reuses the dataset cross-tab over categorical views of tasks.
func crossCount(tasks []Task, rowField, colField string) *analysis.Table {
	col := func(name string) *analysis.Column {
		c := &analysis.Column{Name: name, Kind: analysis.KindCategorical, Str: make([]string, len(tasks)), Valid: make([]bool, len(tasks))}
		for i, t := range tasks {
			c.Str[i] = t.field(name)
			c.Valid[i] = true
		}
		return c
	}
	return analysis.CrossTab(col(rowField), col(colField), col(FieldTitle))
}
