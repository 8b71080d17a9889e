package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// missingTokens are cell spellings treated as empty on read.
var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "-nan": {}, "null": {}, "none": {}, "#n/a": {}, "<na>": {}, "nat": {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// IsMissing reports whether s is blank or one of the missing-value spellings.
func IsMissing(s string) bool { return isMissing(s) }

// ParseTime parses s with the same layouts datetime inference uses.
func ParseTime(s string) (time.Time, bool) { return parseTimeMaybe(s) }

var timeLayouts = []string{
	time.RFC3339Nano, time.RFC3339,
	"2006-01-02T15:04:05", "2006-01-02T15:04",
	"2006-01-02", "2006/01/02", "2006.01.02",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006/01/02 15:04:05",
	"01/02/2006", "02/01/2006", "1/2/2006", "1/2/06", "01-02-06",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "01/02/2006 15:04:05",
	"2-Jan-2006", "02-Jan-06", "2 Jan 2006", "Jan 2, 2006", "January 2, 2006", "Jan 2 2006",
	"2006-01",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses numbers with auto-detected decimal/thousands separators.
// A lone comma followed by exactly three digits reads as a thousands separator.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimLeft(raw, "$€£")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	var dec rune = '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			dec = ','
		}
	case cpos >= 0:
		tail := raw[cpos+1:]
		if !(len(tail) == 3 && cpos > 0 && allDigits(tail)) {
			dec = ','
		}
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
