package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// maxEmbedChars bounds the text sent to the embedding model
const maxEmbedChars = 8000

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder embeds text with text-embedding-3-small
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder. opts are passed to the client after
// the API key, so tests can point it at a local server.
func NewOpenAIEmbedder(apiKey string, opts ...option.RequestOption) *OpenAIEmbedder {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(all...)
	return &OpenAIEmbedder{
		client: &client,
		model:  openai.EmbeddingModelTextEmbedding3Small,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if r := []rune(text); len(r) > maxEmbedChars {
		text = string(r[:maxEmbedChars])
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// Supabase calls the search_thinking_tools RPC of a pgvector-backed project
type Supabase struct {
	baseURL  string
	apiKey   string
	embedder Embedder
	http     *http.Client

	// Threshold applies to queries that leave Query.Threshold unset
	Threshold float64
}

// NewSupabase creates a remote provider. It reports unavailable unless the
// URL, key and embedder are all set.
func NewSupabase(baseURL, apiKey string, embedder Embedder) *Supabase {
	return &Supabase{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		embedder: embedder,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Supabase) Name() string { return "supabase" }

func (s *Supabase) Available() bool {
	return s.baseURL != "" && s.apiKey != "" && s.embedder != nil
}

type rpcRequest struct {
	QueryEmbedding   []float64 `json:"query_embedding"`
	MatchThreshold   float64   `json:"match_threshold"`
	MatchCount       int       `json:"match_count"`
	FilterCategory   *string   `json:"filter_category"`
	FilterDifficulty *string   `json:"filter_difficulty"`
}

type rpcRow struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Category             string   `json:"category"`
	Difficulty           string   `json:"difficulty"`
	Similarity           float64  `json:"similarity"`
	RelatedMethods       []string `json:"related_methods"`
	ComplementaryMethods []string `json:"complementary_methods"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Supabase) Search(ctx context.Context, q Query) ([]Result, error) {
	if !s.Available() {
		return nil, nil
	}
	if q.Threshold <= 0 && s.Threshold > 0 {
		q.Threshold = s.Threshold
	}
	q = q.withDefaults()

	embedding, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(rpcRequest{
		QueryEmbedding:   embedding,
		MatchThreshold:   q.Threshold,
		MatchCount:       q.Limit,
		FilterCategory:   optional(string(q.Category)),
		FilterDifficulty: optional(q.Difficulty),
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/rest/v1/rpc/search_thinking_tools", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase rpc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("supabase rpc: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rows []rpcRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}

	// The knowledge base stores hyphenated ids
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, Result{
			ID:            catalog.CanonicalID(r.ID),
			Title:         r.Title,
			Category:      catalog.Category(r.Category),
			Difficulty:    r.Difficulty,
			Score:         math.Round(r.Similarity*1000) / 1000,
			Related:       canonicalIDs(r.RelatedMethods),
			Complementary: canonicalIDs(r.ComplementaryMethods),
		})
	}
	return out, nil
}

func canonicalIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = catalog.CanonicalID(id)
	}
	return out
}
