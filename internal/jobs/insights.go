package jobs

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/officeloom/internal/sysprobe"
)

// InsightWindow is how many recent runs per kind feed the trends.
const InsightWindow = 12

const topKeywordCount = 8

// DataPoint is one tabular or task run in the quality trend.
type DataPoint struct {
	Label       string    `json:"label"`
	At          time.Time `json:"at"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	CleanedRows int       `json:"cleaned_rows"`
	RowsRemoved int       `json:"rows_removed"`
	Outliers    int       `json:"outliers"`
	Completed   bool      `json:"completed"`
}

// DocPoint is one document run in the deck trend.
type DocPoint struct {
	Label    string `json:"label"`
	Filename string `json:"filename"`
	Slides   int    `json:"slides"`
}

// Health counts outcomes for one job kind.
type Health struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// KeywordCount is a keyword and the number of decks it headlined.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Insights aggregates recent history for the insights command.
type Insights struct {
	DataQuality    []DataPoint       `json:"data_quality_trend"`
	DocumentTrend  []DocPoint        `json:"document_trend"`
	PipelineHealth map[string]Health `json:"pipeline_health"`
	TopKeywords    []KeywordCount    `json:"top_keywords"`
	Runtime        sysprobe.Profile  `json:"runtime"`
}

// summaryFields is the union of summary keys insights reads.
type summaryFields struct {
	RowsAfterCleaning int      `json:"rows_after_cleaning"`
	RowsRemoved       int      `json:"rows_removed"`
	OutlierCount      *int     `json:"outlier_count"`
	AnomalousDueDates int      `json:"anomalous_due_dates"`
	SlidesGenerated   int      `json:"slides_generated"`
	TopKeywords       []string `json:"top_keywords"`
}

// BuildInsights reads the last InsightWindow runs of each kind and returns
// trends in chronological order.
func BuildInsights(ctx context.Context, s *Store, profile sysprobe.Profile) (*Insights, error) {
	out := &Insights{PipelineHealth: map[string]Health{}, Runtime: profile}
	keywordCounts := map[string]int{}
	var keywordOrder []string

	for _, kind := range []string{KindData, KindTasks, KindDocument} {
		jobs, err := s.Recent(ctx, kind, InsightWindow)
		if err != nil {
			return nil, err
		}
		// Recent is newest first.
		for i, j := len(jobs)-1, 0; i > j; i, j = i-1, j+1 {
			jobs[i], jobs[j] = jobs[j], jobs[i]
		}
		h := Health{}
		for _, j := range jobs {
			if j.Status == StatusCompleted {
				h.Completed++
			} else {
				h.Failed++
			}
			var sf summaryFields
			if len(j.Summary) > 0 {
				_ = json.Unmarshal(j.Summary, &sf)
			}
			label := j.CreatedAt.Local().Format("01-02")
			switch kind {
			case KindDocument:
				out.DocumentTrend = append(out.DocumentTrend, DocPoint{Label: label, Filename: j.Filename, Slides: sf.SlidesGenerated})
				for _, kw := range sf.TopKeywords {
					kw = strings.TrimSpace(kw)
					if kw == "" {
						continue
					}
					if keywordCounts[kw] == 0 {
						keywordOrder = append(keywordOrder, kw)
					}
					keywordCounts[kw]++
				}
			default:
				outliers := sf.AnomalousDueDates
				if sf.OutlierCount != nil {
					outliers = *sf.OutlierCount
				}
				out.DataQuality = append(out.DataQuality, DataPoint{
					Label:       label,
					At:          j.CreatedAt,
					Kind:        kind,
					Filename:    j.Filename,
					CleanedRows: sf.RowsAfterCleaning,
					RowsRemoved: sf.RowsRemoved,
					Outliers:    outliers,
					Completed:   j.Status == StatusCompleted,
				})
			}
		}
		out.PipelineHealth[kind] = h
	}
	// Data and task runs share one trend.
	sort.SliceStable(out.DataQuality, func(i, j int) bool { return out.DataQuality[i].At.Before(out.DataQuality[j].At) })

	sort.SliceStable(keywordOrder, func(i, j int) bool { return keywordCounts[keywordOrder[i]] > keywordCounts[keywordOrder[j]] })
	if len(keywordOrder) > topKeywordCount {
		keywordOrder = keywordOrder[:topKeywordCount]
	}
	for _, kw := range keywordOrder {
		out.TopKeywords = append(out.TopKeywords, KeywordCount{Keyword: kw, Count: keywordCounts[kw]})
	}
	return out, nil
}

// SuccessRate returns the completed share in percent, rounded to 2 places.
func (h Health) SuccessRate() float64 {
	total := h.Completed + h.Failed
	if total == 0 {
		return 0
	}
	return math.Round(float64(h.Completed)/float64(total)*10000) / 100
}
