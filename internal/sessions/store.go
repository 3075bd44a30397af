package sessions

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when no record exists for a session id
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt is returned when a stored record cannot be decoded
	ErrCorrupt = errors.New("session record corrupt")
)

// Store is durable key-value storage for session records
type Store interface {
	// Save writes the full record, replacing any previous version
	Save(ctx context.Context, s *State) error
	// Load returns ErrNotFound or ErrCorrupt when the record is unusable
	Load(ctx context.Context, id string) (*State, error)
	// List returns every record of a user, or all records for an empty userID
	List(ctx context.Context, userID string) ([]*State, error)
	Close() error
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// validID guards stores that map ids to file names
func validID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// newestFirst sorts by UpdatedAt descending, then by id for stability
func newestFirst(states []*State) {
	sort.Slice(states, func(i, j int) bool {
		if !states[i].UpdatedAt.Equal(states[j].UpdatedAt) {
			return states[i].UpdatedAt.After(states[j].UpdatedAt)
		}
		return states[i].SessionID < states[j].SessionID
	})
}

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*State)}
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*State
	for _, s := range m.records {
		if userID == "" || s.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
