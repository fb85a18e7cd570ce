package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session carries the authenticated identity for one logged-in browser
// session. Handlers receive it through the request context; there is no
// ambient global auth state.
type Session struct {
	Token     string
	UserID    string
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
}

type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]Session)}
}

func (sm *sessionManager) Create(userID, username string, isAdmin bool) (Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, err
	}

	s := Session{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		Username:  username,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now(),
	}

	sm.mu.Lock()
	sm.sessions[s.Token] = s
	sm.mu.Unlock()
	return s, nil
}

func (sm *sessionManager) Get(token string) (Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[token]
	return s, ok
}

func (sm *sessionManager) Delete(token string) {
	sm.mu.Lock()
	delete(sm.sessions, token)
	sm.mu.Unlock()
}
