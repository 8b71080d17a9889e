package keypoints

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/officeloom/internal/ai"
)

// Ranker scores sentences and returns the selected indices in document order.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, sentences []string, limit int) ([]int, error)
}

// selectTop keeps the 2*limit best scores (earlier index wins ties), then
// returns the limit lowest of those indices in ascending order.
func selectTop(scores []float64, limit int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if len(idx) > 2*limit {
		idx = idx[:2*limit]
	}
	sort.Ints(idx)
	if len(idx) > limit {
		idx = idx[:limit]
	}
	return idx
}

// encodeBatch is the number of sentences per embedder call.
const encodeBatch = 16

// EmbeddingRanker scores sentences by cosine similarity to the centroid of
// all sentence embeddings.
type EmbeddingRanker struct {
	Embedder ai.Embedder
	// Workers bounds concurrent embedder calls; values below 1 mean 1.
	Workers int
}

func (r EmbeddingRanker) Name() string { return StrategyEmbedding }

func (r EmbeddingRanker) Rank(ctx context.Context, sents []string, limit int) ([]int, error) {
	if r.Embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	vecs := make([][]float32, len(sents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for start := 0; start < len(sents); start += encodeBatch {
		start, end := start, min(start+encodeBatch, len(sents))
		g.Go(func() error {
			out, err := r.Embedder.Embed(gctx, sents[start:end])
			if err != nil {
				return fmt.Errorf("embed %s: %w", r.Embedder.Name(), err)
			}
			if len(out) != end-start {
				return fmt.Errorf("embed %s: got %d vectors for %d sentences", r.Embedder.Name(), len(out), end-start)
			}
			copy(vecs[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vecs[0])
	if dim == 0 {
		return nil, errors.New("embedder returned empty vectors")
	}
	centroid := make([]float64, dim)
	normed := make([][]float64, len(vecs))
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		normed[i] = l2normalize(v)
		for j, x := range normed[i] {
			centroid[j] += x
		}
	}
	for j := range centroid {
		centroid[j] /= float64(len(vecs))
	}
	scores := make([]float64, len(vecs))
	for i, v := range normed {
		for j, x := range v {
			scores[i] += x * centroid[j]
		}
	}
	return selectTop(scores, limit), nil
}

func l2normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var ss float64
	for i, x := range v {
		out[i] = float64(x)
		ss += out[i] * out[i]
	}
	if ss == 0 {
		return out
	}
	n := math.Sqrt(ss)
	for i := range out {
		out[i] /= n
	}
	return out
}

// FrequencyRanker scores a sentence by the corpus frequency of its words.
type FrequencyRanker struct{}

func (FrequencyRanker) Name() string { return StrategyFrequency }

func (FrequencyRanker) Rank(_ context.Context, sents []string, limit int) ([]int, error) {
	if len(sents) == 0 {
		return nil, errNoSentences
	}
	tokens := make([][]string, len(sents))
	freq := map[string]int{}
	for i, s := range sents {
		tokens[i] = words(s)
		for _, w := range tokens[i] {
			freq[w]++
		}
	}
	scores := make([]float64, len(sents))
	for i, ws := range tokens {
		for _, w := range ws {
			scores[i] += float64(freq[w])
		}
	}
	return selectTop(scores, limit), nil
}

// words returns the lowercase alphabetic tokens of s minus stopwords.
func words(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'') || unicode.IsSymbol(r)
	}) {
		if !isAlpha(f) {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
