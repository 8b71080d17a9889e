package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// openAIBatchSize bounds inputs per /v1/embeddings request.
const openAIBatchSize = 64

// OpenAIEmbClient calls an OpenAI-compatible /v1/embeddings endpoint
// (OpenAI, vLLM, llama.cpp server, LocalAI).
type OpenAIEmbClient struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
	cfg        EmbedderConfig
}

func NewOpenAIEmbClient(endpoint, model string, cfg EmbedderConfig) *OpenAIEmbClient {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8080"
	}
	cfg = cfg.withDefaults()
	return &OpenAIEmbClient{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		endpoint:   strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/v1"),
		model:      model,
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}
}

func (c *OpenAIEmbClient) Name() string { return ProviderOpenAI + ":" + c.model }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed sends inputs in batches and reassembles vectors in input order.
func (c *OpenAIEmbClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for start := 0; start < len(inputs); start += openAIBatchSize {
		end := min(start+openAIBatchSize, len(inputs))
		var vecs [][]float32
		err := withRetry(ctx, c.cfg, func() error {
			v, err := c.call(ctx, inputs[start:end])
			vecs = v
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		copy(out[start:end], vecs)
	}
	return out, nil
}

func (c *OpenAIEmbClient) call(ctx context.Context, batch []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := c.endpoint + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UnreachableError{Host: c.endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	vecs := make([][]float32, len(batch))
	for _, d := range er.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input index %d", i)
		}
	}
	return vecs, nil
}
