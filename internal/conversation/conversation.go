// Package conversation wires the trigger detector, classifier, question
// engine and session manager into one chat-facing state machine.
//
// A Conversation belongs to exactly one chat and is not safe for concurrent
// use; Hub serialises access per chat.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/classifier"
	"github.com/igoryan-dao/thinking-tools/internal/questions"
	"github.com/igoryan-dao/thinking-tools/internal/search"
	"github.com/igoryan-dao/thinking-tools/internal/sessions"
	"github.com/igoryan-dao/thinking-tools/internal/trigger"
)

// UnspecifiedProblem is used when a method is picked without any problem text
const UnspecifiedProblem = "(문제 미지정)"

// Option is a suggested follow-up command a surface may render as a button
type Option struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Reply is what a surface should send back. Silent replies must produce no
// output at all.
type Reply struct {
	Text    string         `json:"text,omitempty"`
	Silent  bool           `json:"silent,omitempty"`
	Action  trigger.Action `json:"action"`
	Options []Option       `json:"options,omitempty"`
}

func silent() Reply {
	return Reply{Silent: true, Action: trigger.ActionNone}
}

// Deps are the shared, read-only collaborators of every conversation
type Deps struct {
	Catalog    *catalog.Catalog
	Classifier *classifier.Classifier
	Engine     *questions.Engine
	Store      sessions.Store
	Search     search.Provider
	Logger     *zap.Logger
	Tokens     *trigger.Tokens
}

// NewDeps builds the default collaborators around a catalog and a store
func NewDeps(cat *catalog.Catalog, store sessions.Store, provider search.Provider, logger *zap.Logger) Deps {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil {
		provider = search.Disabled{}
	}
	return Deps{
		Catalog:    cat,
		Classifier: classifier.New(cat),
		Engine:     questions.NewEngine(cat),
		Store:      store,
		Search:     provider,
		Logger:     logger,
	}
}

// pending is the detector's attached context between activation and the
// choice of a method
type pending struct {
	problem string
	result  classifier.Result
}

// Conversation is the state of one chat
type Conversation struct {
	userID   string
	deps     Deps
	detector *trigger.Detector
	manager  *sessions.Manager
	logger   *zap.Logger
	methodRe *regexp.Regexp

	// lastProblem lets "/method:x" rerun the previous problem with another method
	lastProblem string
}

// New creates a dormant conversation for userID
func New(userID string, deps Deps) *Conversation {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Search == nil {
		deps.Search = search.Disabled{}
	}

	detector := trigger.New()
	if deps.Tokens != nil {
		detector = trigger.NewWithTokens(*deps.Tokens)
	}
	logger := deps.Logger.With(zap.String("user", userID))

	return &Conversation{
		userID:   userID,
		deps:     deps,
		detector: detector,
		manager:  sessions.NewManager(deps.Store, deps.Catalog, sessions.WithLogger(logger)),
		logger:   logger,
		methodRe: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(detector.Tokens().Method) + `\w*`),
	}
}

// Manager exposes the session manager of this conversation
func (c *Conversation) Manager() *sessions.Manager {
	return c.manager
}

// Active reports whether the conversation is engaged
func (c *Conversation) Active() bool {
	return c.detector.Active()
}

// Close drops live state. Stored sessions are kept.
func (c *Conversation) Close() {
	c.manager.Evict()
	c.detector.Deactivate()
}

// Handle processes one inbound message
func (c *Conversation) Handle(ctx context.Context, text string) Reply {
	d := c.detector.Detect(text)

	c.logger.Debug("message classified", zap.String("action", d.Action.String()))

	var r Reply
	switch d.Action {
	case trigger.ActionNone:
		return silent()
	case trigger.ActionActivate:
		r = c.activate(ctx, d.Message)
	case trigger.ActionSelectByName:
		r = c.selectByName(ctx, d)
	case trigger.ActionSelectByNumber:
		r = c.selectByNumber(ctx, d)
	case trigger.ActionAutoSelect:
		r = c.autoSelect(ctx)
	case trigger.ActionSemanticSearch:
		r = c.semanticSearch(ctx, d.Message)
	case trigger.ActionTerminate:
		r = c.terminate(ctx)
	case trigger.ActionHelp:
		r = Reply{Text: c.detector.HelpMessage()}
	case trigger.ActionAnswer:
		r = c.answer(ctx, d.Message)
	default:
		return silent()
	}
	r.Action = d.Action
	return r
}

func (c *Conversation) pending() (*pending, bool) {
	p, ok := c.detector.Attached().(*pending)
	return p, ok && p != nil
}

// endLive finalises a running session before another one replaces it
func (c *Conversation) endLive(ctx context.Context) {
	if summary, ok := c.manager.EndSession(ctx); ok {
		c.logger.Info("session replaced",
			zap.String("session_id", summary.SessionID),
			zap.Int("answers", summary.AnswersProvided))
	}
}

func (c *Conversation) activate(ctx context.Context, problem string) Reply {
	c.endLive(ctx)
	c.detector.Deactivate()
	c.detector.Activate()

	if problem == trigger.DefaultProblemPrompt {
		c.detector.Attach(&pending{})
		return Reply{Text: trigger.DefaultProblemPrompt}
	}
	return c.recommend(problem)
}

func (c *Conversation) recommend(problem string) Reply {
	result := c.deps.Classifier.Classify(problem)
	c.detector.Attach(&pending{problem: problem, result: result})

	return Reply{
		Text:    classifier.FormatRecommendations(result),
		Options: menuOptions(result.Recommended),
	}
}

func menuOptions(methods []catalog.Summary) []Option {
	if len(methods) == 0 {
		return nil
	}
	opts := make([]Option, 0, len(methods)+1)
	for i, m := range methods {
		opts = append(opts, Option{
			Label:   fmt.Sprintf("%d. %s", i+1, m.Name),
			Command: fmt.Sprintf("/%d", i+1),
		})
	}
	return append(opts, Option{Label: "자동 선택", Command: "/auto"})
}

func (c *Conversation) selectByNumber(ctx context.Context, d trigger.Decision) Reply {
	p, ok := c.pending()
	if !ok || len(p.result.Recommended) == 0 {
		return Reply{Text: "먼저 /think [문제] 로 고민을 알려주세요."}
	}

	n, _ := d.Number()
	if n < 1 || n > len(p.result.Recommended) {
		return Reply{
			Text:    fmt.Sprintf("1~%d 사이의 번호를 선택해주세요.", len(p.result.Recommended)),
			Options: menuOptions(p.result.Recommended),
		}
	}
	return c.start(ctx, p.result.Recommended[n-1].ID, p.problem, p.result.Category)
}

func (c *Conversation) selectByName(ctx context.Context, d trigger.Decision) Reply {
	tmpl, ok := c.deps.Catalog.Get(d.Value)
	if !ok {
		return Reply{Text: fmt.Sprintf("알 수 없는 방법론입니다: %s\n사용 가능: %s",
			d.Value, strings.Join(c.deps.Catalog.IDs(), ", "))}
	}

	if p, ok := c.pending(); ok && p.problem != "" {
		return c.start(ctx, tmpl.ID, p.problem, p.result.Category)
	}

	problem := strings.TrimSpace(c.methodRe.ReplaceAllString(d.Message, ""))
	if problem == "" {
		problem = c.lastProblem
	}
	if problem == "" {
		problem = UnspecifiedProblem
	}
	return c.start(ctx, tmpl.ID, problem, tmpl.Category)
}

func (c *Conversation) autoSelect(ctx context.Context) Reply {
	p, ok := c.pending()
	if !ok || len(p.result.Recommended) == 0 {
		return Reply{Text: "자동 선택할 추천이 없습니다. /think [문제] 로 시작해주세요."}
	}
	return c.start(ctx, p.result.Recommended[0].ID, p.problem, p.result.Category)
}

func (c *Conversation) semanticSearch(ctx context.Context, query string) Reply {
	if query == "" {
		if p, ok := c.pending(); ok {
			query = p.problem
		}
	}
	if query == "" {
		return Reply{Text: "검색할 내용을 함께 입력해주세요. 예: /rag 고객 이탈"}
	}

	// Over-fetch so duplicates and unknown ids still leave a full menu
	results := search.Safe(ctx, c.deps.Search, search.Query{Text: query, Limit: 2 * classifier.MaxRecommendations}, c.logger)

	seen := make(map[string]bool)
	found := make([]catalog.Summary, 0, classifier.MaxRecommendations)
	for _, r := range results {
		if len(found) == classifier.MaxRecommendations {
			break
		}
		id := catalog.CanonicalID(r.ID)
		if seen[id] {
			continue
		}
		m, ok := c.deps.Catalog.Get(id)
		if !ok {
			continue
		}
		seen[id] = true
		found = append(found, m.Summary())
	}

	c.endLive(ctx)
	c.detector.Activate()
	if len(found) == 0 {
		return c.recommend(query)
	}

	result := c.deps.Classifier.Classify(query)
	result.Recommended = found
	c.detector.Attach(&pending{problem: query, result: result})

	var b strings.Builder
	b.WriteString("🔍 관련 방법론 검색 결과\n\n")
	for i, m := range found {
		fmt.Fprintf(&b, "%d. %s\n   - 적합한 상황: %s\n", i+1, m.Name, m.BestFor)
	}
	b.WriteString("\n방법 선택: /{번호} 또는 /auto")

	return Reply{Text: b.String(), Options: menuOptions(found)}
}

func (c *Conversation) start(ctx context.Context, methodID, problem string, category catalog.Category) Reply {
	tmpl, ok := c.deps.Catalog.Get(methodID)
	if !ok {
		return Reply{Text: "❌ 오류: Unknown method: " + methodID}
	}

	c.endLive(ctx)
	if _, err := c.manager.CreateSession(ctx, c.userID, problem, category, tmpl.ID, tmpl.Name, tmpl.Steps); err != nil {
		c.logger.Error("failed to create session", zap.Error(err))
		return Reply{Text: "세션을 시작하지 못했습니다. 잠시 후 다시 시도해주세요."}
	}
	c.detector.Activate()
	c.lastProblem = problem

	q := c.deps.Engine.Generate(tmpl.ID, 0, problem)
	return Reply{
		Text:    fmt.Sprintf("✨ %s 시작\n\n%s", tmpl.Name, questions.Format(q)),
		Options: []Option{{Label: "종료", Command: "/done"}},
	}
}

func (c *Conversation) answer(ctx context.Context, text string) Reply {
	if _, live := c.manager.Current(); !live {
		if p, ok := c.pending(); ok && p.problem == "" {
			return c.recommend(strings.TrimSpace(text))
		}
		return Reply{Text: "추천된 방법론 번호(/1, /2, /3)를 선택하거나 /auto 를 입력해주세요."}
	}

	if !c.manager.AddAnswer(ctx, text) {
		return c.finish(ctx)
	}

	cur, _ := c.manager.Current()
	if cur.IsCompleted {
		return c.finish(ctx)
	}

	q := c.deps.Engine.Generate(cur.MethodID, cur.CurrentStep, cur.Problem)
	return Reply{
		Text:    questions.Format(q),
		Options: []Option{{Label: "종료", Command: "/done"}},
	}
}

func (c *Conversation) finish(ctx context.Context) Reply {
	summary, ok := c.manager.EndSession(ctx)
	c.detector.Deactivate()
	if !ok {
		return Reply{Text: "진행 중인 세션이 없습니다."}
	}
	return Reply{Text: sessions.FormatSummary(*summary)}
}

func (c *Conversation) terminate(ctx context.Context) Reply {
	return c.finish(ctx)
}
