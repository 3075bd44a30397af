// Package trigger decides what an inbound chat message means for the thinking
// tools: start a session, pick a method, answer a question, or nothing at all.
//
// When the detector is dormant and no rule matches, the caller must stay silent.
package trigger

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/igoryan-dao/thinking-tools/internal/textnorm"
)

// Action is the outcome of detecting one message
type Action string

const (
	ActionActivate       Action = "activate"
	ActionSelectByName   Action = "select-method-by-name"
	ActionSelectByNumber Action = "select-method-by-number"
	ActionAutoSelect     Action = "auto-select"
	ActionSemanticSearch Action = "semantic-search"
	ActionTerminate      Action = "terminate"
	ActionHelp           Action = "help"
	ActionAnswer         Action = "answer"
	ActionNone           Action = ""
)

// String returns the action name, "none" for ActionNone
func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	return string(a)
}

// DefaultProblemPrompt replaces an empty problem statement after activation
const DefaultProblemPrompt = "도전과제를 설명해주세요."

// Decision is the result of Detect
type Decision struct {
	Triggered bool   `json:"triggered"`
	Action    Action `json:"action"`
	// Value is the method name for ActionSelectByName and the 1-based index
	// for ActionSelectByNumber. Empty otherwise.
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Number returns Value as an integer for ActionSelectByNumber decisions
func (d Decision) Number() (int, bool) {
	if d.Action != ActionSelectByNumber {
		return 0, false
	}
	n, err := strconv.Atoi(d.Value)
	return n, err == nil
}

// Tokens configures the command vocabulary
type Tokens struct {
	Activation []string
	Method     string
	Auto       string
	Search     string
	Done       string
	Help       string
}

// DefaultTokens returns the standard command vocabulary
func DefaultTokens() Tokens {
	return Tokens{
		Activation: []string{
			"/think",
			"/innovate",
			"/question",
			"/창의적",
			"/혁신",
			"/질문",
			"/문제해결",
			"/씽킹툴",
			"씽킹툴",
			"thinking-tools",
			"thinking tools",
		},
		Method: "/method:",
		Auto:   "/auto",
		Search: "/rag",
		Done:   "/done",
		Help:   "/help",
	}
}

// rule is one entry of the ordered detection table. match returns ok=false
// when the rule does not apply.
type rule struct {
	action Action
	match  func(raw, lower string) (value, message string, ok bool)
}

var numberPattern = regexp.MustCompile(`/(\d+)`)

// Detector classifies messages. It holds the dormant/engaged flag and an
// opaque reference to whatever the caller keeps for the live conversation.
// A Detector is not safe for concurrent use.
type Detector struct {
	tokens   Tokens
	rules    []rule
	active   bool
	attached any
}

// New creates a dormant detector using the default tokens
func New() *Detector {
	return NewWithTokens(DefaultTokens())
}

// NewWithTokens creates a dormant detector with a custom vocabulary
func NewWithTokens(tokens Tokens) *Detector {
	d := &Detector{tokens: tokens}
	d.rules = d.buildRules()
	return d
}

func (d *Detector) buildRules() []rule {
	t := d.tokens

	activation := make([]*regexp.Regexp, 0, len(t.Activation))
	for _, phrase := range t.Activation {
		activation = append(activation, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(textnorm.NFC(phrase))))
	}
	methodPattern := regexp.MustCompile(regexp.QuoteMeta(textnorm.Lower(t.Method)) + `(\w+)`)
	searchPattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(t.Search))

	return []rule{
		{ActionActivate, func(raw, lower string) (string, string, bool) {
			for i, phrase := range t.Activation {
				if !textnorm.Contains(lower, phrase) {
					continue
				}
				problem := strings.TrimSpace(activation[i].ReplaceAllLiteralString(raw, ""))
				if problem == "" {
					problem = DefaultProblemPrompt
				}
				return "", problem, true
			}
			return "", "", false
		}},
		{ActionSelectByName, func(raw, lower string) (string, string, bool) {
			if !textnorm.Contains(lower, t.Method) {
				return "", "", false
			}
			m := methodPattern.FindStringSubmatch(lower)
			if m == nil {
				return "", "", false
			}
			return m[1], raw, true
		}},
		{ActionSelectByNumber, func(raw, _ string) (string, string, bool) {
			m := numberPattern.FindStringSubmatch(raw)
			if m == nil {
				return "", "", false
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return "", "", false
			}
			return strconv.Itoa(n), raw, true
		}},
		{ActionAutoSelect, tokenRule(t.Auto)},
		{ActionSemanticSearch, func(raw, lower string) (string, string, bool) {
			if !textnorm.Contains(lower, t.Search) {
				return "", "", false
			}
			return "", strings.TrimSpace(searchPattern.ReplaceAllLiteralString(raw, "")), true
		}},
		{ActionTerminate, tokenRule(t.Done)},
		{ActionHelp, tokenRule(t.Help)},
	}
}

func tokenRule(token string) func(raw, lower string) (string, string, bool) {
	return func(raw, lower string) (string, string, bool) {
		if !textnorm.Contains(lower, token) {
			return "", "", false
		}
		return "", raw, true
	}
}

// Detect classifies one message. Rules are evaluated in a fixed priority
// order and the first match wins. Detect never changes the detector state.
func (d *Detector) Detect(message string) Decision {
	raw := textnorm.NFC(message)
	lower := strings.TrimSpace(textnorm.Lower(message))

	for _, r := range d.rules {
		value, msg, ok := r.match(raw, lower)
		if ok {
			return Decision{Triggered: true, Action: r.action, Value: value, Message: msg}
		}
	}

	if d.active {
		return Decision{Triggered: true, Action: ActionAnswer, Message: message}
	}
	return Decision{Action: ActionNone, Message: message}
}

// Activate switches the detector into engaged mode
func (d *Detector) Activate() {
	d.active = true
}

// Deactivate returns to dormant mode and drops the attached context
func (d *Detector) Deactivate() {
	d.active = false
	d.attached = nil
}

// Active reports whether the detector is engaged
func (d *Detector) Active() bool {
	return d.active
}

// Attach stores the caller's in-progress context
func (d *Detector) Attach(ctx any) {
	d.attached = ctx
}

// Attached returns the context stored by Attach, or nil
func (d *Detector) Attached() any {
	return d.attached
}

// Tokens returns the vocabulary this detector was built with
func (d *Detector) Tokens() Tokens {
	return d.tokens
}
