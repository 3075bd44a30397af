package conversation

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultMaxConversations caps the live conversations a Hub keeps
const DefaultMaxConversations = 1000

type entry struct {
	mu   sync.Mutex
	conv *Conversation
	// evicted is set once the hub has dropped the entry
	evicted atomic.Bool
}

// Hub routes messages to one Conversation per key (a chat, a websocket, an
// MCP client). Calls for the same key are serialised; different keys run in
// parallel. The least recently used conversation is evicted once the cap is
// reached; eviction drops live state only, stored sessions remain loadable.
// A conversation evicted mid-call is closed when that call returns, so
// eviction never waits on a slow conversation.
type Hub struct {
	deps   Deps
	logger *zap.Logger
	size   int

	mu    sync.Mutex
	convs *lru.Cache[string, *entry]
}

// NewHub creates a hub holding at most size live conversations
func NewHub(deps Deps, size int) *Hub {
	if size <= 0 {
		size = DefaultMaxConversations
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{deps: deps, logger: deps.Logger, size: size}
	h.convs, _ = lru.New[string, *entry](size)
	return h
}

// evict marks e dropped and closes it unless a call is in flight; the
// in-flight call closes it on release instead. Must not hold h.mu.
func (h *Hub) evict(key string, e *entry) {
	e.evicted.Store(true)
	if e.mu.TryLock() {
		e.conv.Close()
		e.mu.Unlock()
	}
	h.logger.Debug("conversation evicted", zap.String("key", key))
}

func (h *Hub) get(key string) *entry {
	h.mu.Lock()
	if e, ok := h.convs.Get(key); ok {
		h.mu.Unlock()
		return e
	}

	type dropped struct {
		key string
		e   *entry
	}
	var evicted []dropped
	for h.convs.Len() >= h.size {
		k, old, ok := h.convs.RemoveOldest()
		if !ok {
			break
		}
		evicted = append(evicted, dropped{k, old})
	}
	e := &entry{conv: New(key, h.deps)}
	h.convs.Add(key, e)
	h.mu.Unlock()

	for _, d := range evicted {
		h.evict(d.key, d.e)
	}
	return e
}

// acquire returns the live entry for key with its lock held
func (h *Hub) acquire(key string) *entry {
	for {
		e := h.get(key)
		e.mu.Lock()
		if !e.evicted.Load() {
			return e
		}
		h.release(e)
	}
}

func (h *Hub) release(e *entry) {
	e.mu.Unlock()
	// evict may have failed its TryLock while we held the lock
	if e.evicted.Load() && e.mu.TryLock() {
		e.conv.Close()
		e.mu.Unlock()
	}
}

// Handle passes text to the conversation identified by key
func (h *Hub) Handle(ctx context.Context, key, text string) Reply {
	e := h.acquire(key)
	defer h.release(e)
	return e.conv.Handle(ctx, text)
}

// With runs fn with exclusive access to the conversation for key
func (h *Hub) With(key string, fn func(*Conversation)) {
	e := h.acquire(key)
	defer h.release(e)
	fn(e.conv)
}

// Forget evicts the conversation for key, if any
func (h *Hub) Forget(key string) {
	h.mu.Lock()
	e, ok := h.convs.Peek(key)
	if ok {
		h.convs.Remove(key)
	}
	h.mu.Unlock()

	if ok {
		h.evict(key, e)
	}
}

// Len returns the number of live conversations
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.convs.Len()
}

// Deps returns the shared collaborators
func (h *Hub) Deps() Deps {
	return h.deps
}
