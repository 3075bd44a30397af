// Package sessions owns the lifecycle of a guided thinking session and its
// durable storage.
//
// A Manager holds at most one current session and is meant to be owned by a
// single conversation; it does no locking of its own. Every mutation is
// written through to the Store before the call returns. Store failures are
// logged and the in-memory state stays authoritative.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
)

// Manager handles one conversation's current session
type Manager struct {
	store   Store
	catalog *catalog.Catalog
	logger  *zap.Logger
	now     func() time.Time
	current *State
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for persistence failures
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager backed by store. The catalog supplies
// insight rules for summaries.
func NewManager(store Store, cat *catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		catalog: cat,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Round(0)
}

// persist writes the current record; failures only get logged
func (m *Manager) persist(ctx context.Context, s *State) {
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.Error("failed to persist session",
			zap.String("session_id", s.SessionID),
			zap.Error(err))
	}
}

// CreateSession starts a new session and makes it current, replacing any
// previous current session without finalising it.
func (m *Manager) CreateSession(ctx context.Context, userID, problem string, category catalog.Category, methodID, methodName string, totalSteps int) (*State, error) {
	if totalSteps <= 0 {
		return nil, fmt.Errorf("create session: total steps must be positive, got %d", totalSteps)
	}

	now := m.timestamp()
	s := &State{
		SessionID:   NewSessionID(userID, problem, now),
		UserID:      userID,
		Problem:     problem,
		Category:    category,
		MethodID:    methodID,
		MethodName:  methodName,
		CurrentStep: 0,
		TotalSteps:  totalSteps,
		Answers:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.current = s
	m.persist(ctx, s)

	m.logger.Debug("session created",
		zap.String("session_id", s.SessionID),
		zap.String("method", methodID))

	return s.Clone(), nil
}

// AddAnswer records the answer to the current question and advances one step.
// It returns false when there is no current session or it is already completed.
func (m *Manager) AddAnswer(ctx context.Context, answer string) bool {
	s := m.current
	if s == nil || s.IsCompleted {
		return false
	}

	s.Answers = append(s.Answers, answer)
	s.CurrentStep++
	s.UpdatedAt = m.timestamp()
	if s.CurrentStep == s.TotalSteps {
		s.IsCompleted = true
	}

	m.persist(ctx, s)
	return true
}

// Current returns a copy of the current session
func (m *Manager) Current() (*State, bool) {
	if m.current == nil {
		return nil, false
	}
	return m.current.Clone(), true
}

// LoadSession reads a session from storage and makes it current.
// Missing and unreadable records both report false.
func (m *Manager) LoadSession(ctx context.Context, id string) (*State, bool) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("failed to load session", zap.String("session_id", id), zap.Error(err))
		}
		return nil, false
	}

	m.current = s
	return s.Clone(), true
}

// EndSession finalises the current session and returns its summary.
// Summary.Completed tells whether every step was answered before the end.
func (m *Manager) EndSession(ctx context.Context) (*Summary, bool) {
	s := m.current
	if s == nil {
		return nil, false
	}

	tmpl, _ := m.catalog.Get(s.MethodID)
	summary := Summarize(s, tmpl)

	if !s.IsCompleted {
		s.IsCompleted = true
		s.UpdatedAt = m.timestamp()
	}
	m.persist(ctx, s)
	m.current = nil

	m.logger.Debug("session ended",
		zap.String("session_id", s.SessionID),
		zap.Int("answers", len(s.Answers)),
		zap.Int("total", s.TotalSteps))

	return &summary, true
}

// Evict drops the current session from memory without touching storage
func (m *Manager) Evict() {
	m.current = nil
}

// NextQuestionContext returns what is needed to ask the next question
func (m *Manager) NextQuestionContext() (QuestionContext, bool) {
	s := m.current
	if s == nil {
		return QuestionContext{}, false
	}
	return QuestionContext{
		MethodID:        s.MethodID,
		CurrentStep:     s.CurrentStep,
		Problem:         s.Problem,
		PreviousAnswers: slices.Clone(s.Answers),
	}, true
}

// History returns a user's stored sessions, newest first
func (m *Manager) History(ctx context.Context, userID string, limit int) ([]*State, error) {
	states, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}
