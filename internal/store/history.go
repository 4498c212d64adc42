package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
)

// MaxHistoryTurns caps each session at the last three user/assistant exchanges.
const MaxHistoryTurns = 6

// HistoryStore keeps a bounded conversation history per session in memory.
// Each session has its own lock so unrelated sessions never contend.
type HistoryStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionHistory
	now      func() time.Time
}

type sessionHistory struct {
	mu         sync.Mutex
	turns      []models.ConversationTurn
	lastActive time.Time
	dead       bool // removed from the map; writers must look the session up again
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{sessions: make(map[string]*sessionHistory), now: time.Now}
}

func (h *HistoryStore) session(id string, create bool) *sessionHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok && create {
		s = &sessionHistory{lastActive: h.now()}
		h.sessions[id] = s
	}
	return s
}

// Get returns a copy of the session's turns, oldest first. Unknown sessions are empty.
func (h *HistoryStore) Get(sessionID string) []models.ConversationTurn {
	s := h.session(sessionID, false)
	if s == nil {
		return []models.ConversationTurn{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendExchange appends a user turn and its assistant reply, then keeps only the
// most recent MaxHistoryTurns entries.
func (h *HistoryStore) AppendExchange(sessionID string, user, assistant models.ConversationTurn) {
	s := h.session(sessionID, true)
	s.mu.Lock()
	for s.dead {
		s.mu.Unlock()
		s = h.session(sessionID, true)
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	next := make([]models.ConversationTurn, 0, len(s.turns)+2)
	next = append(next, s.turns...)
	next = append(next, user, assistant)
	if len(next) > MaxHistoryTurns {
		next = next[len(next)-MaxHistoryTurns:]
	}
	s.turns = next
	s.lastActive = h.now()
	slog.Debug("HistoryStore.AppendExchange: history updated", "session_id", sessionID, "turns", len(next))
}

// Len returns the number of stored turns for a session.
func (h *HistoryStore) Len(sessionID string) int {
	s := h.session(sessionID, false)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Clear drops a session's history. It reports whether the session existed.
func (h *HistoryStore) Clear(sessionID string) bool {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	s.turns = nil
	s.dead = true
	s.mu.Unlock()
	return true
}

// Reset drops every session.
func (h *HistoryStore) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		s.mu.Lock()
		s.dead = true
		s.mu.Unlock()
	}
	h.sessions = make(map[string]*sessionHistory)
}

// Sessions returns the number of sessions with stored history.
func (h *HistoryStore) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// PruneIdle drops sessions whose last exchange is older than maxIdle and returns how
// many were removed. A non-positive maxIdle prunes nothing.
func (h *HistoryStore) PruneIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := h.now().Add(-maxIdle)

	h.mu.Lock()
	defer h.mu.Unlock()
	pruned := 0
	for id, s := range h.sessions {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		if idle {
			s.dead = true
		}
		s.mu.Unlock()
		if idle {
			delete(h.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		slog.Info("HistoryStore.PruneIdle: idle sessions dropped", "pruned", pruned, "remaining", len(h.sessions), "max_idle", maxIdle)
	}
	return pruned
}
