package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// Local is a full-text index over the catalog held in memory.
// It needs no credentials and is the fallback for remote search.
type Local struct {
	index   bleve.Index
	catalog *catalog.Catalog
}

// NewLocal indexes every catalog method
func NewLocal(c *catalog.Catalog) (*Local, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}

	batch := index.NewBatch()
	for _, m := range c.Templates() {
		doc := map[string]interface{}{
			"name":       m.Name,
			"category":   string(m.Category),
			"difficulty": m.Difficulty,
			"best_for":   m.BestFor,
			"keywords":   strings.Join(m.Keywords, " "),
			"questions":  strings.Join(m.Questions, " "),
		}
		if err := batch.Index(m.ID, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("index method %s: %w", m.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index catalog: %w", err)
	}

	return &Local{index: index, catalog: c}, nil
}

func (l *Local) Name() string    { return "local" }
func (l *Local) Available() bool { return true }

func (l *Local) Search(ctx context.Context, q Query) ([]Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	q = q.withDefaults()
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}

	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = q.Limit

	res, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		m, ok := l.catalog.Get(hit.ID)
		if !ok {
			continue
		}
		out = append(out, Result{
			ID:         m.ID,
			Title:      m.Name,
			Category:   m.Category,
			Difficulty: m.Difficulty,
			Score:      hit.Score,
			Related:    m.Related,
		})
	}
	return out, nil
}

func buildQuery(q Query) query.Query {
	text := bleve.NewMatchQuery(q.Text)

	filters := []query.Query{text}
	if q.Category != "" {
		tq := bleve.NewTermQuery(string(q.Category))
		tq.SetField("category")
		filters = append(filters, tq)
	}
	if q.Difficulty != "" {
		tq := bleve.NewTermQuery(strings.ToLower(q.Difficulty))
		tq.SetField("difficulty")
		filters = append(filters, tq)
	}
	if len(filters) == 1 {
		return text
	}

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(filters...)
	return boolQuery
}

// Close releases the index
func (l *Local) Close() error {
	return l.index.Close()
}
