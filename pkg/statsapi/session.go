package statsapi

import "sync"

// Session supplies the bearer token and is told when the backend rejects it.
type Session interface {
	Token() string
	Invalidate()
}

// StaticSession holds a fixed token until invalidated.
type StaticSession struct {
	mu          sync.RWMutex
	token       string
	invalidated bool
}

// NewStaticSession wraps token.
func NewStaticSession(token string) *StaticSession {
	return &StaticSession{token: token}
}

// Token returns the token, or "" once invalidated.
func (s *StaticSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.invalidated {
		return ""
	}
	return s.token
}

// Invalidate drops the token.
func (s *StaticSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// Invalidated reports whether the backend rejected the token.
func (s *StaticSession) Invalidated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidated
}
