package tasks

import (
	"github.com/KaramelBytes/officeloom/internal/analysis"
	"github.com/KaramelBytes/officeloom/internal/report"
)

// Sheet names of the task workbook, in order.
const (
	SheetWorkflow       = "Workflow"
	SheetDataQuality    = "Data_Quality"
	SheetRaw            = "Raw_Normalized"
	SheetCleaned        = "Cleaned_Data"
	SheetStatusPriority = "Pivot_Status_Priority"
	SheetAssigneeStatus = "Pivot_Assignee_Status"
	SheetDashboard      = "Dashboard"
)

const analystNote = "Pivot sheets are plain ranges; open them in Excel to insert slicers."

var stepDescriptions = map[string]string{
	"Load spreadsheet":             "Read the first sheet of the upload",
	"Normalize schema":             "Map header aliases onto task fields",
	"Clean and standardize values": "Canonical status, priority and assignee values",
	"Detect anomalies":             "Flag missing or duplicate titles and implausible due dates",
	"Generate pivots and charts":   "Count tasks by status, priority and assignee",
	"Build dashboard workbook":     "Assemble sheets and dashboard charts",
}

var taskHeaders = []string{
	FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldAssignee, FieldDueDate,
	"missing_title", "duplicate_title", "anomaly_due_date", "anomaly_score",
}

// Render lays out the task workbook: workflow, quality metrics, normalized and
// cleaned rows, both pivots, and a dashboard with two bar charts.
func Render(imp *Import, opts report.WorkbookOptions) (*report.Artifact, error) {
	wb, err := report.NewWorkbook(opts)
	if err != nil {
		return nil, err
	}

	flow := make([][]any, len(imp.Summary.WorkflowSteps))
	for i, s := range imp.Summary.WorkflowSteps {
		flow[i] = []any{s, "completed", stepDescriptions[s]}
	}
	if _, err := wb.AddTable(SheetWorkflow, []string{"Step", "Status", "Description"}, flow); err != nil {
		return nil, err
	}
	metrics := metricRows(imp.Summary)
	if _, err := wb.AddTable(SheetDataQuality, []string{"Metric", "Value"}, metrics); err != nil {
		return nil, err
	}
	if _, err := wb.AddTable(SheetRaw, taskHeaders, taskRows(imp.All)); err != nil {
		return nil, err
	}
	if _, err := wb.AddTable(SheetCleaned, taskHeaders, taskRows(imp.Cleaned)); err != nil {
		return nil, err
	}
	for _, p := range []struct {
		name  string
		table *analysis.Table
	}{
		{SheetStatusPriority, imp.StatusPriority},
		{SheetAssigneeStatus, imp.AssigneeStatus},
	} {
		if _, err := wb.AddTable(p.name, p.table.Headers, p.table.Rows); err != nil {
			return nil, err
		}
	}

	if err := wb.AddSheet(SheetDashboard, []string{"KPI", "Value"}, metrics); err != nil {
		return nil, err
	}
	if err := wb.SetCell(SheetDashboard, "D1", "Analyst Note", true); err != nil {
		return nil, err
	}
	if err := wb.SetCell(SheetDashboard, "D2", analystNote, false); err != nil {
		return nil, err
	}
	if _, err := wb.AddBarChart(SheetDashboard, "A8", report.Chart{
		Source:    SheetStatusPriority,
		ValueCols: valueCols(imp.StatusPriority),
		Title:     "Status by Priority",
	}); err != nil {
		return nil, err
	}
	if _, err := wb.AddBarChart(SheetDashboard, "N8", report.Chart{
		Source:     SheetAssigneeStatus,
		ValueCols:  valueCols(imp.AssigneeStatus),
		Title:      "Assignee Workload by Status",
		Horizontal: true,
	}); err != nil {
		return nil, err
	}

	parts := wb.Sheets()
	b, err := wb.Bytes()
	if err != nil {
		return nil, err
	}
	return &report.Artifact{Data: b, Format: report.FormatXLSX, Label: "tasks", Parts: parts}, nil
}

func metricRows(s Summary) [][]any {
	m := s.Metrics()
	out := make([][]any, len(m))
	for i, kv := range m {
		out[i] = []any{kv[0], kv[1]}
	}
	return out
}

func taskRows(tasks []Task) [][]any {
	out := make([][]any, len(tasks))
	for i, t := range tasks {
		due := ""
		if !t.Due.IsZero() {
			due = t.Due.Format("2006-01-02")
		}
		out[i] = []any{
			t.Title, t.Description, t.Status, t.Priority, t.AssignedTo, due,
			t.MissingTitle, t.DuplicateTitle, t.AnomalyDueDate, t.AnomalyScore(),
		}
	}
	return out
}

// valueCols lists every count column of a pivot (1-based, after the key).
func valueCols(t *analysis.Table) []int {
	var out []int
	for i := 2; i <= len(t.Headers); i++ {
		out = append(out, i)
	}
	return out
}
