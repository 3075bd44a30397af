// Package questions looks up one method prompt at a time from the catalog.
//
// Invalid references (unknown method, out-of-range step) are reported in the
// returned Question through its Error field instead of a Go error, so every
// surface can render them the same way.
package questions

import (
	"fmt"
	"strings"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// ProblemPlaceholder is substituted with the caller-provided context
const ProblemPlaceholder = "{problem}"

const defaultProblemText = "이 문제"

// Question is one rendered prompt, or an error payload when Error is set
type Question struct {
	Method     string           `json:"method,omitempty"`
	Category   catalog.Category `json:"category,omitempty"`
	Text       string           `json:"question,omitempty"`
	Step       int              `json:"step,omitempty"`
	TotalSteps int              `json:"total_steps,omitempty"`
	IsLast     bool             `json:"is_last"`

	Error            string   `json:"error,omitempty"`
	AvailableMethods []string `json:"available_methods,omitempty"`
}

// Failed reports whether q is an error payload
func (q Question) Failed() bool {
	return q.Error != ""
}

// Engine is a stateless view over a catalog
type Engine struct {
	catalog *catalog.Catalog
}

// NewEngine creates a question engine
func NewEngine(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Catalog returns the catalog the engine reads from
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Generate returns the prompt at the zero-based step of a method.
// context, when non-empty, replaces the {problem} placeholder.
func (e *Engine) Generate(methodID string, step int, context string) Question {
	m, ok := e.catalog.Get(methodID)
	if !ok {
		return Question{
			Error:            fmt.Sprintf("Unknown method: %s", methodID),
			AvailableMethods: e.catalog.IDs(),
		}
	}

	if step < 0 || step >= m.Steps {
		return Question{
			Error:      fmt.Sprintf("Invalid step %d. Must be 0-%d", step, m.Steps-1),
			Method:     m.Name,
			TotalSteps: m.Steps,
		}
	}

	return Question{
		Method:     m.Name,
		Category:   m.Category,
		Text:       contextualize(m.Questions[step], context),
		Step:       step + 1,
		TotalSteps: m.Steps,
		IsLast:     step == m.Steps-1,
	}
}

func contextualize(question, context string) string {
	if !strings.Contains(question, ProblemPlaceholder) {
		return question
	}
	context = strings.TrimSpace(context)
	if context == "" {
		context = defaultProblemText
	}
	return strings.ReplaceAll(question, ProblemPlaceholder, context)
}

// MethodInfo returns the metadata of a method without its questions
func (e *Engine) MethodInfo(methodID string) (catalog.Summary, bool) {
	m, ok := e.catalog.Get(methodID)
	if !ok {
		return catalog.Summary{}, false
	}
	return m.Summary(), true
}

// ListMethods returns method metadata, optionally filtered by category
func (e *Engine) ListMethods(category catalog.Category) []catalog.Summary {
	return e.catalog.Summaries(category)
}

// Format renders a question for chat surfaces
func Format(q Question) string {
	if q.Failed() {
		return "❌ 오류: " + q.Error
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[방법론: %s - %s]\n", q.Method, strings.ToUpper(string(q.Category)))
	fmt.Fprintf(&b, "질문 %d/%d: %s", q.Step, q.TotalSteps, q.Text)
	if q.IsLast {
		b.WriteString("\n\n✅ 마지막 질문입니다.")
	}
	return b.String()
}
