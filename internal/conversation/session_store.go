package conversation

import (
	"sync"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/google/uuid"
)

// Session is one live conversation: the provider-held dialogue plus the
// transient state accumulated across turns. Sessions are process-local and
// die on restart; durability is an explicit non-goal.
type Session struct {
	ID       string
	Dialogue DialogueSession

	// LeadRecordID is the CRM record created/updated earlier in this same
	// conversation, reused so a later scheduleMeeting does not duplicate
	// the lead.
	LeadRecordID string

	CreatedAt time.Time

	// LastActive is guarded by the store mutex, not the session mutex,
	// because the janitor reads it without taking a turn. Update it
	// through InMemorySessionStore.Touch.
	LastActive time.Time

	// mu serializes turns of the same conversation so a double-send cannot
	// race on LeadRecordID or interleave dialogue history.
	mu sync.Mutex
}

// SessionStore maps conversation ids to live sessions.
type SessionStore interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string) bool
	IDs() []string
	Len() int
}

// InMemorySessionStore is a concurrent map of sessions with idle-TTL
// eviction. Requests for different conversations never block each other.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL time.Duration
	logger  *logging.Logger
	done    chan struct{}
	once    sync.Once
}

// NewInMemorySessionStore creates a store. A positive idleTTL starts a
// janitor that evicts sessions idle longer than the TTL.
func NewInMemorySessionStore(idleTTL time.Duration, logger *logging.Logger) *InMemorySessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	s := &InMemorySessionStore{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		logger:   logger,
		done:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.janitor()
	}
	return s
}

// NewSession allocates a session around the given dialogue and stores it.
func (s *InMemorySessionStore) NewSession(dialogue DialogueSession) *Session {
	now := time.Now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		Dialogue:   dialogue,
		CreatedAt:  now,
		LastActive: now,
	}
	s.Put(sess)
	return sess
}

func (s *InMemorySessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *InMemorySessionStore) Put(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// Touch marks the session as active now. Shares the store lock with the
// janitor so activity updates and idle checks never race.
func (s *InMemorySessionStore) Touch(sess *Session) {
	s.mu.Lock()
	sess.LastActive = time.Now().UTC()
	s.mu.Unlock()
}

func (s *InMemorySessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *InMemorySessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the janitor.
func (s *InMemorySessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *InMemorySessionStore) janitor() {
	interval := s.idleTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle(time.Now().UTC())
		}
	}
}

func (s *InMemorySessionStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > s.idleTTL {
			delete(s.sessions, id)
			s.logger.Info("idle conversation evicted", "conversation_id", id)
		}
	}
}
