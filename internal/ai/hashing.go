package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

// DefaultHashingDim is the vector size used when "hashing" has no suffix.
const DefaultHashingDim = 256

// HashingEmbedder is a local bag-of-words embedder using signed feature
// hashing. It needs no network and is deterministic.
type HashingEmbedder struct {
	Dim int
}

// NewHashingEmbedder parses an optional dimension ("" or "512").
func NewHashingEmbedder(dim string) (*HashingEmbedder, error) {
	if dim == "" {
		return &HashingEmbedder{Dim: DefaultHashingDim}, nil
	}
	n, err := strconv.Atoi(dim)
	if err != nil || n < 8 || n > 65536 {
		return nil, fmt.Errorf("hashing dimension must be an integer in [8, 65536], got %q", dim)
	}
	return &HashingEmbedder{Dim: n}, nil
}

func (h *HashingEmbedder) Name() string { return fmt.Sprintf("%s:%d", ProviderHashing, h.Dim) }

func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, s := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(s)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(s string) []float32 {
	v := make([]float32, h.Dim)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		sum := f.Sum32()
		idx := int(sum % uint32(h.Dim))
		if sum&(1<<31) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return v
}
