package conversation

import (
	"context"
	"strings"

	"github.com/igoryan-dao/thinking-tools/internal/questions"
	"github.com/igoryan-dao/thinking-tools/internal/sessions"
	"github.com/igoryan-dao/thinking-tools/internal/trigger"
)

// The methods below drive the conversation without going through the
// trigger detector. Structured surfaces (MCP tools, HTTP) use them so an
// answer such as "/1 줄이기" is stored verbatim instead of being read as a
// command.

// Start begins methodID on problem, ending any live session first
func (c *Conversation) Start(ctx context.Context, methodID, problem string) Reply {
	tmpl, ok := c.deps.Catalog.Get(methodID)
	if !ok {
		return Reply{
			Text:   "알 수 없는 방법론입니다: " + methodID + "\n사용 가능: " + strings.Join(c.deps.Catalog.IDs(), ", "),
			Action: trigger.ActionSelectByName,
		}
	}

	problem = strings.TrimSpace(problem)
	if problem == "" {
		problem = c.lastProblem
	}
	if problem == "" {
		problem = UnspecifiedProblem
	}

	category := tmpl.Category
	if problem != UnspecifiedProblem {
		if r := c.deps.Classifier.Classify(problem); r.Confidence > 0 {
			category = r.Category
		}
	}

	r := c.start(ctx, tmpl.ID, problem, category)
	r.Action = trigger.ActionSelectByName
	return r
}

// Answer records text as the answer to the current question
func (c *Conversation) Answer(ctx context.Context, text string) Reply {
	if _, live := c.manager.Current(); !live {
		return Reply{Text: "진행 중인 세션이 없습니다.", Action: trigger.ActionAnswer}
	}
	r := c.answer(ctx, text)
	r.Action = trigger.ActionAnswer
	return r
}

// End finishes the live session and returns its summary
func (c *Conversation) End(ctx context.Context) Reply {
	r := c.finish(ctx)
	r.Action = trigger.ActionTerminate
	return r
}

// Resume makes a stored session current again and repeats its next question.
// Sessions of other users are treated as missing.
func (c *Conversation) Resume(ctx context.Context, sessionID string) Reply {
	if cur, live := c.manager.Current(); live && cur.SessionID == sessionID {
		return c.nextQuestion(cur)
	}

	c.endLive(ctx)
	s, ok := c.manager.LoadSession(ctx, sessionID)
	if !ok || s.UserID != c.userID {
		c.manager.Evict()
		return Reply{Text: "세션을 찾을 수 없습니다: " + sessionID}
	}
	if s.IsCompleted || s.Remaining() == 0 {
		c.manager.Evict()
		tmpl, _ := c.deps.Catalog.Get(s.MethodID)
		return Reply{Text: sessions.FormatSummary(sessions.Summarize(s, tmpl))}
	}

	c.detector.Activate()
	c.lastProblem = s.Problem
	return c.nextQuestion(s)
}

func (c *Conversation) nextQuestion(s *sessions.State) Reply {
	q := c.deps.Engine.Generate(s.MethodID, s.CurrentStep, s.Problem)
	return Reply{
		Text:    "🔄 " + s.MethodName + " 이어서 진행\n\n" + questions.Format(q),
		Options: []Option{{Label: "종료", Command: "/done"}},
	}
}

// Help returns the command reference
func (c *Conversation) Help() string {
	return c.detector.HelpMessage()
}

// UserID returns the owner of this conversation
func (c *Conversation) UserID() string {
	return c.userID
}
