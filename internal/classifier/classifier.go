// Package classifier maps a free-text problem statement to a category and a
// short list of recommended methods using keyword tables. It has no side
// effects and never fails.
package classifier

import (
	"fmt"
	"strings"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/textnorm"
)

// MaxRecommendations bounds Result.Recommended
const MaxRecommendations = 3

// Result is the outcome of classifying one text
type Result struct {
	Category    catalog.Category  `json:"category"`
	Confidence  float64           `json:"confidence"`
	Recommended []catalog.Summary `json:"recommended_methods"`
	Reasoning   string            `json:"reasoning"`
}

// Classifier scores text against static tables and resolves recommendations
// against a catalog. Safe for concurrent use: nothing is mutated after New.
type Classifier struct {
	catalog *catalog.Catalog
	tables  Tables
}

// New creates a classifier using the default tables
func New(c *catalog.Catalog) *Classifier {
	return NewWithTables(c, DefaultTables())
}

// NewWithTables creates a classifier with custom tables
func NewWithTables(c *catalog.Catalog, tables Tables) *Classifier {
	return &Classifier{catalog: c, tables: tables}
}

// Classify analyses text. Identical input always yields an identical result.
func (c *Classifier) Classify(text string) Result {
	lower := textnorm.Lower(text)
	scores := c.Scores(lower)

	best, confidence := c.pick(scores)

	return Result{
		Category:    best,
		Confidence:  confidence,
		Recommended: c.recommend(best, lower),
		Reasoning:   Reasoning(best, confidence),
	}
}

// Scores returns the keyword score of every category, in table order.
// text must already be normalised with textnorm.Lower.
func (c *Classifier) Scores(text string) []float64 {
	scores := make([]float64, len(c.tables.Keywords))
	for i, ck := range c.tables.Keywords {
		for _, kw := range ck.Keywords {
			if textnorm.Contains(text, kw) {
				scores[i] += 1.0
			}
		}
	}
	return scores
}

// pick returns the strictly highest scoring category; earlier entries win ties
func (c *Classifier) pick(scores []float64) (catalog.Category, float64) {
	if len(c.tables.Keywords) == 0 {
		return catalog.Analytical, 0
	}

	bestIdx := 0
	total := 0.0
	for i, s := range scores {
		total += s
		if s > scores[bestIdx] {
			bestIdx = i
		}
	}

	best := c.tables.Keywords[bestIdx].Category
	if total == 0 {
		return best, 0
	}
	return best, scores[bestIdx] / total
}

func (c *Classifier) recommend(category catalog.Category, text string) []catalog.Summary {
	seen := make(map[string]bool)
	var ids []string
	add := func(list []string) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	add(c.tables.CategoryMethods[category])
	for _, r := range c.tables.MethodRules {
		if r.fires(text) {
			add(r.Methods)
		}
	}

	out := make([]catalog.Summary, 0, MaxRecommendations)
	for _, id := range ids {
		if len(out) == MaxRecommendations {
			break
		}
		t, ok := c.catalog.Get(id)
		if !ok {
			continue
		}
		out = append(out, t.Summary())
	}
	return out
}

func (r MethodRule) fires(text string) bool {
	need := r.MinOccurrences
	if need <= 0 {
		need = 1
	}
	for _, kw := range r.Keywords {
		if textnorm.Count(text, kw) >= need {
			return true
		}
	}
	return false
}

// ConfidenceLevel maps a confidence to 높음, 중간 or 낮음
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence > 0.5:
		return "높음"
	case confidence > 0.3:
		return "중간"
	default:
		return "낮음"
	}
}

// Reasoning builds the human-readable explanation for a classification
func Reasoning(category catalog.Category, confidence float64) string {
	return fmt.Sprintf("귀하의 문제는 '%s'이 필요합니다. (신뢰도: %s)",
		category.DisplayName(), ConfidenceLevel(confidence))
}

// FormatRecommendations renders a result as the plain-text method menu
func FormatRecommendations(r Result) string {
	var b strings.Builder

	b.WriteString("🎯 문제 분석 완료\n\n")
	fmt.Fprintf(&b, "분류: %s\n\n", r.Reasoning)

	if len(r.Recommended) == 0 {
		b.WriteString("추천할 방법론이 없습니다. /method:[방법론] 으로 직접 선택해주세요.")
		return b.String()
	}

	b.WriteString("📋 추천 방법론:\n")
	for i, m := range r.Recommended {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Name)
		fmt.Fprintf(&b, "   - 적합한 상황: %s\n", m.BestFor)
		fmt.Fprintf(&b, "   - 단계 수: %d\n", m.Steps)
	}
	b.WriteString("\n방법 선택: /{번호} (예: /1, /2, /3) 또는 /auto (자동 선택)")

	return b.String()
}
