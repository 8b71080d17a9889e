package keypoints

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Segmenter splits text into sentences.
type Segmenter interface {
	Name() string
	Split(text string) ([]string, error)
}

var errNoSentences = errors.New("no sentences found")

// PunktSegmenter uses the English punkt model.
type PunktSegmenter struct{}

var (
	punktOnce sync.Once
	punkt     *sentences.DefaultSentenceTokenizer
	punktErr  error
)

func (PunktSegmenter) Name() string { return "punkt" }

func (PunktSegmenter) Split(text string) ([]string, error) {
	punktOnce.Do(func() {
		punkt, punktErr = english.NewSentenceTokenizer(nil)
	})
	if punktErr != nil {
		return nil, punktErr
	}
	var out []string
	for _, s := range punkt.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, errNoSentences
	}
	return out, nil
}

// RegexSegmenter splits after sentence punctuation followed by whitespace, and
// on newlines.
type RegexSegmenter struct{}

var sentenceBreak = regexp.MustCompile(`[.!?]\s+|\n+`)

func (RegexSegmenter) Name() string { return "regex" }

func (RegexSegmenter) Split(text string) ([]string, error) {
	var out []string
	start := 0
	add := func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		end := m[0]
		if text[m[0]] != '\n' {
			end++ // keep the punctuation
		}
		add(text[start:end])
		start = m[1]
	}
	add(text[start:])
	if len(out) == 0 {
		return nil, errNoSentences
	}
	return out, nil
}
