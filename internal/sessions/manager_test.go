package sessions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

func steppingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	return NewManager(store, catalog.MustDefault(), WithClock(steppingClock()))
}

func createFiveWhys(t *testing.T, m *Manager) *State {
	t.Helper()
	s, err := m.CreateSession(context.Background(), "user-1", "왜 매출이 떨어지는지 모르겠어요",
		catalog.Analytical, "five_whys", "5 WHYS", 5)
	require.NoError(t, err)
	return s
}

func TestCreateSession(t *testing.T) {
	m := newTestManager(t, NewMemoryStore())

	s := createFiveWhys(t, m)

	assert.Len(t, s.SessionID, 16)
	assert.Equal(t, 0, s.CurrentStep)
	assert.Empty(t, s.Answers)
	assert.NotNil(t, s.Answers)
	assert.False(t, s.IsCompleted)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, s.SessionID, cur.SessionID)
}

func TestCreateSession_RejectsZeroSteps(t *testing.T) {
	m := newTestManager(t, NewMemoryStore())

	_, err := m.CreateSession(context.Background(), "u", "p", catalog.Analytical, "x", "X", 0)
	assert.Error(t, err)

	_, ok := m.Current()
	assert.False(t, ok)
}

func TestNewSessionID_DependsOnInstant(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, NewSessionID("u", "p", at), NewSessionID("u", "p", at))
	assert.NotEqual(t, NewSessionID("u", "p", at), NewSessionID("u", "p", at.Add(time.Nanosecond)))
	assert.NotEqual(t, NewSessionID("u", "p", at), NewSessionID("v", "p", at))
}

func TestAddAnswer_KeepsAnswersInStep(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore())
	createFiveWhys(t, m)

	for i := 1; i <= 5; i++ {
		require.True(t, m.AddAnswer(ctx, "답변"))
		cur, _ := m.Current()
		assert.Equal(t, i, cur.CurrentStep)
		assert.Len(t, cur.Answers, cur.CurrentStep)
		assert.Equal(t, i == 5, cur.IsCompleted)
	}
}

func TestAddAnswer_RefusedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)
	s := createFiveWhys(t, m)

	for i := 0; i < 5; i++ {
		require.True(t, m.AddAnswer(ctx, "a"))
	}
	before, _ := m.Current()
	stored, err := store.Load(ctx, s.SessionID)
	require.NoError(t, err)

	assert.False(t, m.AddAnswer(ctx, "one more"))

	after, _ := m.Current()
	assert.Empty(t, cmp.Diff(before, after))
	storedAfter, err := store.Load(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(stored, storedAfter))
}

func TestAddAnswer_NoSession(t *testing.T) {
	m := newTestManager(t, NewMemoryStore())
	assert.False(t, m.AddAnswer(context.Background(), "orphan"))
}

func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)
	s := createFiveWhys(t, m)

	require.True(t, m.AddAnswer(ctx, "고객이 줄었다"))

	stored, err := store.Load(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"고객이 줄었다"}, stored.Answers)
	assert.Equal(t, 1, stored.CurrentStep)
}

func TestLoadSession_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	m := newTestManager(t, fs)
	created := createFiveWhys(t, m)

	other := newTestManager(t, fs)
	loaded, ok := other.LoadSession(ctx, created.SessionID)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(created, loaded))

	require.True(t, m.AddAnswer(ctx, "첫 답"))
	cur, _ := m.Current()
	loaded, ok = other.LoadSession(ctx, created.SessionID)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(cur, loaded))

	// the loaded session becomes current and continues where it stopped
	require.True(t, other.AddAnswer(ctx, "둘째 답"))
	cur, _ = other.Current()
	assert.Equal(t, []string{"첫 답", "둘째 답"}, cur.Answers)
}

func TestLoadSession_Missing(t *testing.T) {
	m := newTestManager(t, NewMemoryStore())

	_, ok := m.LoadSession(context.Background(), "doesnotexist")
	assert.False(t, ok)
	_, ok = m.Current()
	assert.False(t, ok)
}

func TestEndSession_FullRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)
	s := createFiveWhys(t, m)

	answers := []string{"고객 감소", "경쟁사 할인", "가격 경쟁력 부족", "원가 상승", "공급망 단일화"}
	for _, a := range answers {
		require.True(t, m.AddAnswer(ctx, a))
	}

	summary, ok := m.EndSession(ctx)
	require.True(t, ok)

	assert.Equal(t, summary.TotalQuestions, summary.AnswersProvided)
	assert.True(t, summary.Completed)
	assert.Equal(t, "근본 원인: 공급망 단일화", summary.Insights)
	assert.Equal(t, s.SessionID, summary.SessionID)
	assert.Equal(t, "5 WHYS", summary.Method)

	_, ok = m.Current()
	assert.False(t, ok)
	_, ok = m.EndSession(ctx)
	assert.False(t, ok)
}

func TestEndSession_Early(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)
	s := createFiveWhys(t, m)
	require.True(t, m.AddAnswer(ctx, "하나"))

	summary, ok := m.EndSession(ctx)
	require.True(t, ok)
	assert.False(t, summary.Completed)
	assert.Equal(t, 1, summary.AnswersProvided)
	assert.Equal(t, "1개의 질문에 답변하셨습니다.", summary.Insights)

	stored, err := store.Load(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
	assert.Len(t, stored.Answers, stored.CurrentStep)

	// a finalised session refuses answers once reloaded
	_, ok = m.LoadSession(ctx, s.SessionID)
	require.True(t, ok)
	assert.False(t, m.AddAnswer(ctx, "late"))
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)
	s := createFiveWhys(t, m)

	m.Evict()

	_, ok := m.Current()
	assert.False(t, ok)
	stored, err := store.Load(ctx, s.SessionID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)
}

func TestNextQuestionContext(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore())

	_, ok := m.NextQuestionContext()
	assert.False(t, ok)

	createFiveWhys(t, m)
	m.AddAnswer(ctx, "a")

	qc, ok := m.NextQuestionContext()
	require.True(t, ok)
	assert.Equal(t, "five_whys", qc.MethodID)
	assert.Equal(t, 1, qc.CurrentStep)
	assert.Equal(t, []string{"a"}, qc.PreviousAnswers)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(t, store)

	first := createFiveWhys(t, m)
	second, err := m.CreateSession(ctx, "user-1", "팀 회의", catalog.Organizational, "six_hats", "Six Thinking Hats", 6)
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, "user-2", "다른 사람", catalog.Personal, "mental_models", "Mental Models", 5)
	require.NoError(t, err)

	got, err := m.History(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.SessionID, got[0].SessionID)
	assert.Equal(t, first.SessionID, got[1].SessionID)

	got, err = m.History(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, *State) error {
	return errors.New("disk full")
}

func TestPersistenceFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)
	m := NewManager(failingStore{NewMemoryStore()}, catalog.MustDefault(),
		WithLogger(zap.New(core)), WithClock(steppingClock()))

	s, err := m.CreateSession(ctx, "u", "p", catalog.Analytical, "five_whys", "5 WHYS", 5)
	require.NoError(t, err)
	require.True(t, m.AddAnswer(ctx, "still works"))

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, s.SessionID, cur.SessionID)
	assert.Equal(t, 1, cur.CurrentStep)
	assert.Equal(t, 2, logs.Len())
	assert.True(t, strings.Contains(logs.All()[0].Message, "persist"))
}
