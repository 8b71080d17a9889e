// Package keypoints picks the most representative sentences of a document.
package keypoints

import (
	"context"
	"io"
	"log/slog"

	"github.com/KaramelBytes/officeloom/internal/ai"
)

// Strategy names recorded in Result.Strategy.
const (
	StrategyAll       = "all"
	StrategyEmbedding = "embedding"
	StrategyFrequency = "frequency"
)

// DefaultMax is the number of key points returned when none is requested.
const DefaultMax = 8

// Result is the outcome of one extraction.
type Result struct {
	Points    []string
	Strategy  string
	Sentences int
}

// Options configures New.
type Options struct {
	// Embedder enables the embedding ranker; nil means frequency only.
	Embedder ai.Embedder
	// Workers bounds concurrent embedding calls.
	Workers int
	Logger  *slog.Logger
}

// Extractor runs its segmenters and rankers in order; the first one that
// succeeds wins.
type Extractor struct {
	Segmenters []Segmenter
	Rankers    []Ranker
	Logger     *slog.Logger
}

// New builds the default chains: punkt then regex segmentation; embedding
// ranking (when an embedder is set) then frequency ranking.
func New(opts Options) *Extractor {
	e := &Extractor{
		Segmenters: []Segmenter{PunktSegmenter{}, RegexSegmenter{}},
		Logger:     opts.Logger,
	}
	if opts.Embedder != nil {
		e.Rankers = append(e.Rankers, EmbeddingRanker{Embedder: opts.Embedder, Workers: opts.Workers})
	}
	e.Rankers = append(e.Rankers, FrequencyRanker{})
	return e
}

func (e *Extractor) log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// Extract returns at most limit sentences of text in document order. When the
// text has no more than limit sentences they are all returned unranked.
func (e *Extractor) Extract(ctx context.Context, text string, limit int) Result {
	if limit <= 0 {
		limit = DefaultMax
	}
	sents := e.split(text)
	res := Result{Sentences: len(sents), Strategy: StrategyAll}
	if len(sents) <= limit {
		res.Points = sents
		return res
	}
	for _, r := range e.Rankers {
		idx, err := r.Rank(ctx, sents, limit)
		if err != nil {
			e.log().DebugContext(ctx, "keypoint ranker failed", "ranker", r.Name(), "error", err)
			continue
		}
		res.Strategy = r.Name()
		res.Points = make([]string, len(idx))
		for i, k := range idx {
			res.Points[i] = sents[k]
		}
		return res
	}
	// Every ranker failed: keep the opening sentences.
	res.Points = sents[:limit]
	return res
}

func (e *Extractor) split(text string) []string {
	for _, s := range e.Segmenters {
		out, err := s.Split(text)
		if err != nil {
			e.log().Debug("segmenter failed", "segmenter", s.Name(), "error", err)
			continue
		}
		return out
	}
	return nil
}
