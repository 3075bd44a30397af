// Package catalog holds the immutable collection of thinking methods.
//
// A catalog is validated once when it is built and never changes afterwards.
// Every accessor hands out copies, so callers cannot mutate the shared data.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidTemplate is returned when a method template breaks a catalog invariant.
var ErrInvalidTemplate = errors.New("invalid method template")

// Category is the problem domain a method (or a classified problem) belongs to.
type Category string

// Categories in declaration order. The order is significant: the classifier
// breaks score ties in favour of the category declared first.
const (
	Analytical     Category = "analytical"
	Creative       Category = "creative"
	Strategic      Category = "strategic"
	Technical      Category = "technical"
	Product        Category = "product"
	Organizational Category = "organizational"
	Personal       Category = "personal"
)

var categories = []Category{
	Analytical,
	Creative,
	Strategic,
	Technical,
	Product,
	Organizational,
	Personal,
}

var categoryNames = map[Category]string{
	Analytical:     "분석적 접근",
	Creative:       "창의적 사고",
	Strategic:      "전략적 계획",
	Technical:      "기술적 혁신",
	Product:        "제품 개선",
	Organizational: "조직 개선",
	Personal:       "개인 성장",
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return slices.Clone(categories)
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return slices.Contains(categories, c)
}

// DisplayName returns the Korean label used in user-facing text.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// InsightKind selects how a finished session is summarised.
type InsightKind string

const (
	// InsightCount reports how many questions were answered.
	InsightCount InsightKind = ""
	// InsightRootCause reports the final answer of a fully answered session.
	InsightRootCause InsightKind = "root_cause"
	// InsightFacets lists the facets (one per step) that received an answer.
	InsightFacets InsightKind = "facets"
)

// Insight describes the method-specific summary rule.
type Insight struct {
	Kind   InsightKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Label  string      `yaml:"label,omitempty" json:"label,omitempty"`
	Facets []string    `yaml:"facets,omitempty" json:"facets,omitempty"`
}

// MethodTemplate is one structured problem-solving technique.
type MethodTemplate struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Category   Category `yaml:"category" json:"category"`
	Steps      int      `yaml:"steps" json:"steps"`
	Questions  []string `yaml:"questions" json:"questions"`
	BestFor    string   `yaml:"best_for" json:"best_for"`
	Difficulty string   `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Related    []string `yaml:"related,omitempty" json:"related,omitempty"`
	Insight    Insight  `yaml:"insight,omitempty" json:"insight,omitempty"`
}

// Summary is the metadata view of a template, without its questions.
type Summary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	BestFor  string   `json:"best_for"`
	Steps    int      `json:"steps"`
}

// Summary returns the metadata view of m.
func (m MethodTemplate) Summary() Summary {
	return Summary{
		ID:       m.ID,
		Name:     m.Name,
		Category: m.Category,
		BestFor:  m.BestFor,
		Steps:    m.Steps,
	}
}

// Validate checks the template invariants.
func (m MethodTemplate) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: %s: empty name", ErrInvalidTemplate, m.ID)
	}
	if !m.Category.Valid() {
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidTemplate, m.ID, m.Category)
	}
	if m.Steps <= 0 {
		return fmt.Errorf("%w: %s: steps must be positive, got %d", ErrInvalidTemplate, m.ID, m.Steps)
	}
	if len(m.Questions) != m.Steps {
		return fmt.Errorf("%w: %s: %d questions for %d steps", ErrInvalidTemplate, m.ID, len(m.Questions), m.Steps)
	}
	for i, q := range m.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: %s: question %d is empty", ErrInvalidTemplate, m.ID, i)
		}
	}
	switch m.Insight.Kind {
	case InsightCount, InsightRootCause:
	case InsightFacets:
		if len(m.Insight.Facets) != m.Steps {
			return fmt.Errorf("%w: %s: %d facets for %d steps", ErrInvalidTemplate, m.ID, len(m.Insight.Facets), m.Steps)
		}
	default:
		return fmt.Errorf("%w: %s: unknown insight kind %q", ErrInvalidTemplate, m.ID, m.Insight.Kind)
	}
	return nil
}

func (m MethodTemplate) clone() MethodTemplate {
	m.Questions = slices.Clone(m.Questions)
	m.Keywords = slices.Clone(m.Keywords)
	m.Related = slices.Clone(m.Related)
	m.Insight.Facets = slices.Clone(m.Insight.Facets)
	return m
}

// Catalog is a validated, read-only set of method templates.
type Catalog struct {
	order   []string
	methods map[string]MethodTemplate
}

// New validates templates and builds a catalog preserving their order.
// Any invalid or duplicated template rejects the whole catalog.
func New(templates []MethodTemplate) (*Catalog, error) {
	c := &Catalog{
		order:   make([]string, 0, len(templates)),
		methods: make(map[string]MethodTemplate, len(templates)),
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.methods[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTemplate, t.ID)
		}
		c.order = append(c.order, t.ID)
		c.methods[t.ID] = t.clone()
	}
	return c, nil
}

// Get returns a copy of the template with the given id.
func (c *Catalog) Get(id string) (MethodTemplate, bool) {
	t, ok := c.methods[id]
	if !ok {
		return MethodTemplate{}, false
	}
	return t.clone(), true
}

// CanonicalID folds external spellings such as "Jobs-To-Be-Done" onto the
// catalog's snake_case ids.
func CanonicalID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, id)
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.methods[id]
	return ok
}

// IDs returns all method ids in catalog order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}

// Len returns the number of methods.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Templates returns copies of all templates in catalog order.
func (c *Catalog) Templates() []MethodTemplate {
	out := make([]MethodTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.methods[id].clone())
	}
	return out
}

// Summaries returns metadata for every method, optionally restricted to one
// category. An empty category means no filter.
func (c *Catalog) Summaries(category Category) []Summary {
	var out []Summary
	for _, id := range c.order {
		t := c.methods[id]
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, t.Summary())
	}
	return out
}
