package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Dormant(t *testing.T) {
	d := New()

	got := d.Detect("오늘 점심 뭐 먹지")
	assert.False(t, got.Triggered)
	assert.Equal(t, ActionNone, got.Action)
	assert.Equal(t, "none", got.Action.String())
}

func TestDetect_ActivationStripsPhrase(t *testing.T) {
	d := New()

	got := d.Detect("씽킹툴 팀 생산성이 떨어져요")
	require.Equal(t, ActionActivate, got.Action)
	assert.True(t, got.Triggered)
	assert.Equal(t, "팀 생산성이 떨어져요", got.Message)
}

func TestDetect_ActivationCaseInsensitive(t *testing.T) {
	d := New()

	got := d.Detect("Thinking Tools 제품 개선 아이디어")
	require.Equal(t, ActionActivate, got.Action)
	assert.Equal(t, "제품 개선 아이디어", got.Message)

	got = d.Detect("/THINK 매출 하락")
	require.Equal(t, ActionActivate, got.Action)
	assert.Equal(t, "매출 하락", got.Message)
}

func TestDetect_ActivationEmptyResidue(t *testing.T) {
	d := New()

	got := d.Detect("  /think  ")
	require.Equal(t, ActionActivate, got.Action)
	assert.Equal(t, DefaultProblemPrompt, got.Message)
}

func TestDetect_ActivationWinsOverNumber(t *testing.T) {
	d := New()

	got := d.Detect("팀 문제 /think /1")
	assert.Equal(t, ActionActivate, got.Action)
	assert.Equal(t, "팀 문제  /1", got.Message)
}

func TestDetect_SelectByName(t *testing.T) {
	d := New()

	got := d.Detect("/method:SCAMPER 부탁해요")
	require.Equal(t, ActionSelectByName, got.Action)
	assert.Equal(t, "scamper", got.Value)
	assert.Equal(t, "/method:SCAMPER 부탁해요", got.Message)

	got = d.Detect("/method:five_whys")
	require.Equal(t, ActionSelectByName, got.Action)
	assert.Equal(t, "five_whys", got.Value)
}

func TestDetect_MethodTokenWithoutName(t *testing.T) {
	d := New()

	got := d.Detect("/method: 뭐가 있나요")
	assert.Equal(t, ActionNone, got.Action)
}

func TestDetect_SelectByNameWinsOverNumber(t *testing.T) {
	d := New()

	got := d.Detect("/method:swot /2")
	assert.Equal(t, ActionSelectByName, got.Action)
}

func TestDetect_SelectByNumber(t *testing.T) {
	d := New()

	got := d.Detect("/2")
	require.Equal(t, ActionSelectByNumber, got.Action)
	assert.Equal(t, "2", got.Value)

	n, ok := got.Number()
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = Decision{Action: ActionHelp}.Number()
	assert.False(t, ok)
}

func TestDetect_NumberWinsOverAuto(t *testing.T) {
	d := New()

	got := d.Detect("/auto /3")
	assert.Equal(t, ActionSelectByNumber, got.Action)
}

func TestDetect_LowerPriorityTokens(t *testing.T) {
	tests := []struct {
		name    string
		message string
		action  Action
		residue string
	}{
		{"auto", "/auto", ActionAutoSelect, "/auto"},
		{"search strips token", "/RAG 고객 이탈", ActionSemanticSearch, "고객 이탈"},
		{"auto beats search", "/auto /rag", ActionAutoSelect, "/auto /rag"},
		{"done", "이제 /done", ActionTerminate, "이제 /done"},
		{"search beats done", "/rag /done", ActionSemanticSearch, "/done"},
		{"help", "/help", ActionHelp, "/help"},
		{"done beats help", "/help /done", ActionTerminate, "/help /done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().Detect(tt.message)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.residue, got.Message)
			assert.True(t, got.Triggered)
		})
	}
}

func TestDetect_AnswerOnlyWhenActive(t *testing.T) {
	d := New()

	assert.Equal(t, ActionNone, d.Detect("회의가 너무 길어요").Action)

	d.Activate()
	got := d.Detect("회의가 너무 길어요")
	assert.Equal(t, ActionAnswer, got.Action)
	assert.Equal(t, "회의가 너무 길어요", got.Message)

	d.Deactivate()
	assert.Equal(t, ActionNone, d.Detect("회의가 너무 길어요").Action)
}

func TestDetect_DoesNotChangeState(t *testing.T) {
	d := New()

	d.Detect("/think 문제")
	assert.False(t, d.Active())
}

func TestAttachAndDeactivate(t *testing.T) {
	d := New()
	d.Activate()
	d.Attach("pending")

	assert.True(t, d.Active())
	assert.Equal(t, "pending", d.Attached())

	d.Deactivate()
	assert.False(t, d.Active())
	assert.Nil(t, d.Attached())
}

func TestCustomTokens(t *testing.T) {
	tokens := DefaultTokens()
	tokens.Activation = []string{"!brain"}
	d := NewWithTokens(tokens)

	assert.Equal(t, ActionNone, d.Detect("/think 문제").Action)
	assert.Equal(t, ActionActivate, d.Detect("!brain 문제").Action)
}

func TestHelpMessage(t *testing.T) {
	help := New().HelpMessage()

	assert.Contains(t, help, "/think [문제]")
	assert.Contains(t, help, "/method:scamper")
	assert.Contains(t, help, "/done")
	assert.Contains(t, help, "/rag")
}
