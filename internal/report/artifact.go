package report

import (
	"path/filepath"
	"strings"
)

// Artifact formats.
const (
	FormatXLSX = "xlsx"
	FormatPPTX = "pptx"
)

var contentTypes = map[string]string{
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Artifact is a rendered workbook or deck plus the layout needed to name it.
type Artifact struct {
	Data   []byte
	Format string
	// Label is the filename suffix, e.g. "analysis" or "deck".
	Label string
	// Parts lists sheet names (workbooks) or slide titles (decks) in order.
	Parts []string
}

// ContentType returns the MIME type for the artifact format.
func (a *Artifact) ContentType() string {
	if ct, ok := contentTypes[a.Format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SuggestedName derives a download name from the uploaded file name,
// e.g. "sales.csv" -> "sales_analysis.xlsx".
func (a *Artifact) SuggestedName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.TrimSpace(stem)
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "report"
	}
	if a.Label != "" {
		stem += "_" + a.Label
	}
	return stem + "." + a.Format
}
