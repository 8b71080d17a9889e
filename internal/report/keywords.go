package report

import (
	"regexp"
	"sort"
	"strings"
)

// MaxKeywords bounds the Executive Snapshot slide.
const MaxKeywords = 8

var (
	keywordRe      = regexp.MustCompile(`[A-Za-z]{4,}`)
	paragraphBreak = regexp.MustCompile(`\n{1,2}`)

	keywordStop = map[string]struct{}{
		"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "will": {},
		"would": {}, "about": {}, "there": {}, "were": {}, "been": {},
	}
)

// Keywords returns up to limit of the most frequent words of four or more
// ASCII letters. Ties keep first-occurrence order.
func Keywords(text string, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range keywordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := keywordStop[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// Paragraphs splits text on single or double newlines, trimming each piece
// and dropping empty ones.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
