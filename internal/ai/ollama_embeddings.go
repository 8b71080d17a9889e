package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaEmbClient calls Ollama's /api/embeddings endpoint.
type OllamaEmbClient struct {
	httpClient *http.Client
	host       string
	model      string
	cfg        EmbedderConfig
}

func NewOllamaEmbClient(host, model string, cfg EmbedderConfig) *OllamaEmbClient {
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	cfg = cfg.withDefaults()
	return &OllamaEmbClient{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		host:       strings.TrimRight(host, "/"),
		model:      model,
		cfg:        cfg,
	}
}

func (c *OllamaEmbClient) Name() string { return ProviderOllama + ":" + c.model }

// Embed requests one embedding per input. Ollama accepts a single prompt per
// call, so inputs are sent sequentially; callers bound concurrency.
func (c *OllamaEmbClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, s := range inputs {
		var vec []float32
		err := withRetry(ctx, c.cfg, func() error {
			v, err := c.embedOne(ctx, s)
			vec = v
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (c *OllamaEmbClient) embedOne(ctx context.Context, prompt string) ([]float32, error) {
	type reqBody struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	type respBody struct {
		Embedding []float64 `json:"embedding"`
	}
	b, err := json.Marshal(reqBody{Model: c.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	var rb respBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(rb.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", c.model)
	}
	vec := make([]float32, len(rb.Embedding))
	for i := range rb.Embedding {
		vec[i] = float32(rb.Embedding[i])
	}
	return vec, nil
}
