package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Provider identifiers accepted by Resolve.
const (
	ProviderFrequency = "frequency"
	ProviderHashing   = "hashing"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// ErrUnknownEmbedder is returned by Resolve for unregistered providers.
var ErrUnknownEmbedder = errors.New("unknown embedding model")

// EmbedderConfig carries common knobs used by embedding backends.
type EmbedderConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Ollama
	OllamaHost string
	// OpenAI-compatible servers
	Endpoint string
	APIKey   string
}

func (c EmbedderConfig) withDefaults() EmbedderConfig {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 60 * time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 2
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 2 * time.Second
	}
	return c
}

// EmbedderFactory builds an Embedder for the model part of an identifier.
type EmbedderFactory func(model string, cfg EmbedderConfig) (Embedder, error)

var registry = map[string]EmbedderFactory{}

// RegisterEmbedder registers a provider name with its factory.
func RegisterEmbedder(name string, f EmbedderFactory) { registry[name] = f }

// Providers lists the registered provider names, sorted.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve builds the embedder named by id ("provider[:model]"). An empty id or
// "frequency" means no embedder and returns nil, nil.
func Resolve(id string, cfg EmbedderConfig) (Embedder, error) {
	id = strings.TrimSpace(id)
	provider, model, _ := strings.Cut(id, ":")
	provider = strings.ToLower(provider)
	if provider == "" || provider == ProviderFrequency {
		return nil, nil
	}
	f, ok := registry[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmbedder, id)
	}
	return f(strings.TrimSpace(model), cfg.withDefaults())
}

func init() {
	RegisterEmbedder(ProviderHashing, func(model string, _ EmbedderConfig) (Embedder, error) {
		h, err := NewHashingEmbedder(model)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	RegisterEmbedder(ProviderOllama, func(model string, c EmbedderConfig) (Embedder, error) {
		if model == "" {
			return nil, errors.New("ollama embedder needs a model, e.g. ollama:nomic-embed-text")
		}
		return NewOllamaEmbClient(c.OllamaHost, model, c), nil
	})
	RegisterEmbedder(ProviderOpenAI, func(model string, c EmbedderConfig) (Embedder, error) {
		if model == "" {
			return nil, errors.New("openai embedder needs a model, e.g. openai:text-embedding-3-small")
		}
		return NewOpenAIEmbClient(c.Endpoint, model, c), nil
	})
}
