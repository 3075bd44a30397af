package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// State is one user's progress through one method for one problem.
// len(Answers) == CurrentStep holds at all times.
type State struct {
	SessionID   string           `json:"session_id"`
	UserID      string           `json:"user_id"`
	Problem     string           `json:"problem"`
	Category    catalog.Category `json:"category"`
	MethodID    string           `json:"method_id"`
	MethodName  string           `json:"method_name"`
	CurrentStep int              `json:"current_step"`
	TotalSteps  int              `json:"total_steps"`
	Answers     []string         `json:"answers"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	IsCompleted bool             `json:"is_completed"`
}

// Clone returns a deep copy of s
func (s *State) Clone() *State {
	c := *s
	c.Answers = slices.Clone(s.Answers)
	if c.Answers == nil {
		c.Answers = []string{}
	}
	return &c
}

// Remaining returns the number of unanswered steps
func (s *State) Remaining() int {
	return s.TotalSteps - s.CurrentStep
}

// validate checks the structural invariants of a record read back from storage
func (s *State) validate() error {
	switch {
	case s.SessionID == "":
		return fmt.Errorf("empty session id")
	case s.TotalSteps <= 0:
		return fmt.Errorf("total_steps %d", s.TotalSteps)
	case s.CurrentStep < 0 || s.CurrentStep > s.TotalSteps:
		return fmt.Errorf("current_step %d outside 0..%d", s.CurrentStep, s.TotalSteps)
	case len(s.Answers) != s.CurrentStep:
		return fmt.Errorf("%d answers for current_step %d", len(s.Answers), s.CurrentStep)
	}
	return nil
}

// NewSessionID derives a 16 hex character id from user, problem and the
// creation instant.
func NewSessionID(userID, problem string, created time.Time) string {
	content := fmt.Sprintf("%s:%s:%s", userID, problem, created.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Summary is produced when a session ends
type Summary struct {
	SessionID       string           `json:"session_id"`
	Problem         string           `json:"problem"`
	Method          string           `json:"method"`
	MethodID        string           `json:"method_id"`
	Category        catalog.Category `json:"category"`
	TotalQuestions  int              `json:"total_questions"`
	AnswersProvided int              `json:"answers_provided"`
	Completed       bool             `json:"completed"`
	Insights        string           `json:"insights"`
}

// Summarize builds the summary of s. tmpl supplies the insight rule; a zero
// template (method no longer in the catalog) falls back to an answer count.
func Summarize(s *State, tmpl catalog.MethodTemplate) Summary {
	return Summary{
		SessionID:       s.SessionID,
		Problem:         s.Problem,
		Method:          s.MethodName,
		MethodID:        s.MethodID,
		Category:        s.Category,
		TotalQuestions:  s.TotalSteps,
		AnswersProvided: len(s.Answers),
		Completed:       s.IsCompleted,
		Insights:        Insight(s, tmpl.Insight),
	}
}

// Insight extracts the method-specific insight line from the answers
func Insight(s *State, rule catalog.Insight) string {
	switch rule.Kind {
	case catalog.InsightRootCause:
		if len(s.Answers) > 0 && len(s.Answers) >= s.TotalSteps {
			return fmt.Sprintf("%s: %s", labelOr(rule.Label, "근본 원인"), s.Answers[len(s.Answers)-1])
		}
	case catalog.InsightFacets:
		var explored []string
		for i, a := range s.Answers {
			if i < len(rule.Facets) && strings.TrimSpace(a) != "" {
				explored = append(explored, rule.Facets[i])
			}
		}
		if len(explored) > 0 {
			return fmt.Sprintf("%s: %s", labelOr(rule.Label, "다룬 항목"), strings.Join(explored, ", "))
		}
	}
	return fmt.Sprintf("%d개의 질문에 답변하셨습니다.", len(s.Answers))
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

// QuestionContext is what a caller needs to ask the next question
type QuestionContext struct {
	MethodID        string   `json:"method_id"`
	CurrentStep     int      `json:"current_step"`
	Problem         string   `json:"problem"`
	PreviousAnswers []string `json:"previous_answers"`
}
