package utils

import (
	"path/filepath"
	"strings"
)

// TruncateRunes cuts text to at most limit runes. A non-positive limit yields "".
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath returns the artifact path for source when the user gave none:
// "<dir>/<stem>_<label>.<ext>", next to the source file.
func OutputPath(source, label, ext string) string {
	return filepath.Join(filepath.Dir(source), Stem(source)+"_"+label+"."+ext)
}
