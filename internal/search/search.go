// Package search finds catalog methods related to free text.
//
// Search is an enrichment signal only. Providers may be remote and may fail;
// callers go through Safe, which turns every failure into an empty result.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// DefaultLimit is the result count used when Query.Limit is not set
const DefaultLimit = 5

// DefaultThreshold is the minimum similarity for remote vector search
const DefaultThreshold = 0.5

// Query describes one search
type Query struct {
	Text       string
	Category   catalog.Category
	Difficulty string
	Limit      int
	Threshold  float64
}

func (q Query) withDefaults() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Threshold <= 0 {
		q.Threshold = DefaultThreshold
	}
	return q
}

// key identifies a query for caching
func (q Query) key() string {
	q = q.withDefaults()
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%g", q.Text, q.Category, q.Difficulty, q.Limit, q.Threshold)
}

// Result is one related method
type Result struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Category      catalog.Category `json:"category"`
	Difficulty    string           `json:"difficulty,omitempty"`
	Score         float64          `json:"relevance_score"`
	Related       []string         `json:"related_methods,omitempty"`
	Complementary []string         `json:"complementary_methods,omitempty"`
}

// Provider is a search backend
type Provider interface {
	Name() string
	// Available reports whether the provider is configured to run at all
	Available() bool
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Safe runs p and degrades every failure to an empty result
func Safe(ctx context.Context, p Provider, q Query, logger *zap.Logger) []Result {
	if p == nil || !p.Available() {
		return nil
	}
	results, err := p.Search(ctx, q.withDefaults())
	if err != nil {
		if logger != nil {
			logger.Warn("search failed", zap.String("provider", p.Name()), zap.Error(err))
		}
		return nil
	}
	return results
}

// Disabled never returns results
type Disabled struct{}

func (Disabled) Name() string    { return "disabled" }
func (Disabled) Available() bool { return false }
func (Disabled) Search(context.Context, Query) ([]Result, error) {
	return nil, nil
}

// Chain asks providers in order and returns the first non-empty answer.
// A failing provider is logged and skipped.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a chain; unavailable providers are dropped up front
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{logger: logger}
	for _, p := range providers {
		if p != nil && p.Available() {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

func (c *Chain) Name() string {
	name := "chain("
	for i, p := range c.providers {
		if i > 0 {
			name += ","
		}
		name += p.Name()
	}
	return name + ")"
}

func (c *Chain) Available() bool {
	return len(c.providers) > 0
}

func (c *Chain) Search(ctx context.Context, q Query) ([]Result, error) {
	var lastErr error
	for _, p := range c.providers {
		results, err := p.Search(ctx, q)
		if err != nil {
			c.logger.Warn("search provider failed, trying next",
				zap.String("provider", p.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
