package engine

import (
	"log/slog"
	"sync"
)

// StateID identifies one step within some workflow. The empty value means
// the session is idle (no active workflow).
type StateID string

// StateIdle is the state of a session with no active workflow.
const StateIdle StateID = ""

// Session is the per-user conversation state: the current step plus the
// fields collected so far. Sessions live only for the process lifetime.
type Session struct {
	State  StateID
	Fields Fields
}

// Store keeps one session per user. All access goes through its methods;
// callers never share Session pointers across users.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

// NewStore creates an empty session store.
func NewStore(log *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Get returns the user's session, creating an idle one if absent.
// The returned snapshot is a copy; mutations go through SetState,
// UpdateFields and Clear.
func (s *Store) Get(userID string) Session {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return Session{State: StateIdle, Fields: Fields{}}
	}
	return Session{State: sess.State, Fields: sess.Fields.Clone()}
}

// SetState moves the user's session to the given state, creating the
// session if needed.
func (s *Store) SetState(userID string, state StateID) {
	s.mu.Lock()
	s.materialize(userID).State = state
	n := len(s.sessions)
	s.mu.Unlock()
	ActiveSessions.Set(float64(n))
	s.log.Debug("session state set", "user", userID, "state", state)
}

// UpdateFields merges update into the user's fields by key, overwriting.
func (s *Store) UpdateFields(userID string, update Fields) {
	s.mu.Lock()
	s.materialize(userID).Fields.Merge(update)
	n := len(s.sessions)
	s.mu.Unlock()
	ActiveSessions.Set(float64(n))
}

// materialize returns the user's session, creating it if absent.
// Callers hold s.mu.
func (s *Store) materialize(userID string) *Session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{Fields: Fields{}}
		s.sessions[userID] = sess
	}
	return sess
}

// Clear resets the user's session to idle with no fields.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	n := len(s.sessions)
	s.mu.Unlock()
	ActiveSessions.Set(float64(n))
	s.log.Debug("session cleared", "user", userID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
