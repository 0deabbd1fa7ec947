package checkin

import (
	"sync"
	"time"

	"pulsecheck/db"
)

// Session tracks one user's progress through the weekly survey. Sessions
// live in process memory only and are lost on restart.
type Session struct {
	CheckInID uint
	UserID    uint
	Step      Step

	RatingQuestion      *db.Question
	WentWellQuestion    *db.Question
	DidntGoWellQuestion *db.Question
	RotatingQuestion    *db.Question

	Rating      int
	WentWell    string
	DidntGoWell string

	StartedAt    time.Time
	LastActivity time.Time
}

// SessionStore owns the map from Slack user id to in-flight session. At most
// one session exists per user; all access goes through the mutex because
// inbound events and scheduler launches run on different goroutines.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

func (s *SessionStore) Get(slackUserID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[slackUserID]
	return sess, ok
}

func (s *SessionStore) Put(slackUserID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[slackUserID] = sess
}

func (s *SessionStore) Delete(slackUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, slackUserID)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// PruneIdle drops sessions with no activity since the cutoff and returns how
// many were removed. Abandoned surveys would otherwise sit in memory forever.
func (s *SessionStore) PruneIdle(maxIdle time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > maxIdle {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}
