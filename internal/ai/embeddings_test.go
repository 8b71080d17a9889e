package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: &http.Server{Handler: handler}}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

var fastRetry = EmbedderConfig{HTTPTimeout: 2 * time.Second, RetryMax: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestOllamaEmbedSuccess(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var body struct{ Model, Prompt string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "nomic-embed-text" {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{float64(len(body.Prompt)), 1}})
	}))
	c := NewOllamaEmbClient(srv.URL, "nomic-embed-text", fastRetry)
	vecs, err := c.Embed(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 2 || vecs[1][0] != 4 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
}

func TestOllamaEmbedModelNotFound(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model \"nope\" not found, try pulling it first"})
	}))
	c := NewOllamaEmbClient(srv.URL, "nope", fastRetry)
	_, err := c.Embed(context.Background(), []string{"x"})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %T %v", err, err)
	}
}

func TestOllamaEmbedRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1, 2, 3}})
	}))
	c := NewOllamaEmbClient(srv.URL, "m", fastRetry)
	vecs, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(vecs[0]) != 3 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("vecs=%v calls=%d", vecs, calls)
	}
}

func TestOllamaEmbedUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	c := NewOllamaEmbClient("http://"+addr, "m", EmbedderConfig{HTTPTimeout: time.Second, RetryMax: 1, BaseDelay: time.Millisecond})
	_, err = c.Embed(context.Background(), []string{"x"})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
}

func TestOpenAIEmbedOrdersByIndexAndSendsKey(t *testing.T) {
	var gotAuth string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float32{float32(i)}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	cfg := fastRetry
	cfg.APIKey = "sk-test"
	c := NewOpenAIEmbClient(srv.URL+"/v1/", "text-embedding-3-small", cfg)
	inputs := make([]string, openAIBatchSize+3)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("s%d", i)
	}
	vecs, err := c.Embed(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if vecs[0][0] != 0 || vecs[5][0] != 5 || vecs[openAIBatchSize][0] != 0 || vecs[openAIBatchSize+2][0] != 2 {
		t.Fatalf("vectors out of order: first=%v last=%v", vecs[0], vecs[len(vecs)-1])
	}
}

func TestOpenAIEmbedAuthError(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key", "code": "invalid_api_key"}})
	}))
	c := NewOpenAIEmbClient(srv.URL, "m", fastRetry)
	_, err := c.Embed(context.Background(), []string{"x"})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
	if ae.Code != "invalid_api_key" || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("code=%q calls=%d", ae.Code, calls)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		id       string
		wantNil  bool
		wantName string
		wantErr  bool
	}{
		{"", true, "", false},
		{"frequency", true, "", false},
		{" Frequency ", true, "", false},
		{"hashing", false, "hashing:256", false},
		{"hashing:64", false, "hashing:64", false},
		{"hashing:abc", true, "", true},
		{"ollama:nomic-embed-text", false, "ollama:nomic-embed-text", false},
		{"ollama", true, "", true},
		{"openai:text-embedding-3-small", false, "openai:text-embedding-3-small", false},
		{"sentence-transformers/all-MiniLM-L6-v2", true, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			e, err := Resolve(tc.id, EmbedderConfig{})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if (e == nil) != tc.wantNil {
				t.Fatalf("embedder = %v, wantNil %v", e, tc.wantNil)
			}
			if e != nil && e.Name() != tc.wantName {
				t.Fatalf("Name() = %q, want %q", e.Name(), tc.wantName)
			}
		})
	}
	if _, err := Resolve("bogus:x", EmbedderConfig{}); !errors.Is(err, ErrUnknownEmbedder) {
		t.Fatalf("expected ErrUnknownEmbedder, got %v", err)
	}
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	h, _ := NewHashingEmbedder("32")
	vecs, err := h.Embed(context.Background(), []string{"Revenue grew, revenue grew!", "revenue grew", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	norm := func(v []float32) float64 {
		var s float64
		for _, x := range v {
			s += float64(x) * float64(x)
		}
		return math.Sqrt(s)
	}
	for i := range vecs[0] {
		if vecs[0][i] != 2*vecs[1][i] {
			t.Fatalf("dimension %d: %v vs %v", i, vecs[0][i], vecs[1][i])
		}
	}
	if norm(vecs[1]) == 0 || norm(vecs[2]) != 0 {
		t.Fatalf("unexpected norms %v %v", norm(vecs[1]), norm(vecs[2]))
	}
}
