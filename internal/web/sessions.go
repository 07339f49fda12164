package web

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mentor-miniapp/internal/engine"
)

// SessionFactory builds a fresh, not yet started engine session for a browser.
type SessionFactory func() (*engine.Session, error)

type sessionEntry struct {
	sess     *engine.Session
	lastSeen time.Time
}

// sessionManager maps signed browser cookies to engine sessions.
type sessionManager struct {
	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	idle     time.Duration
	factory  SessionFactory
	sessions map[string]*sessionEntry
	now      func() time.Time
	log      *slog.Logger
}

func newSessionManager(secret []byte, ttl, idle time.Duration, factory SessionFactory, log *slog.Logger) *sessionManager {
	return &sessionManager{
		secret:   secret,
		ttl:      ttl,
		idle:     idle,
		factory:  factory,
		sessions: map[string]*sessionEntry{},
		now:      time.Now,
		log:      log,
	}
}

// lookup returns the session for the request's cookie, if it is valid and live.
func (m *sessionManager) lookup(r *http.Request) (*engine.Session, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	sp, err := verifyToken(m.secret, c.Value, m.now())
	if err != nil {
		m.log.Debug("session cookie rejected", "err", err)
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sp.Sub]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.sess, true
}

// ensure returns the request's session, creating one (and setting the cookie)
// when the browser has none.
func (m *sessionManager) ensure(w http.ResponseWriter, r *http.Request) (*engine.Session, error) {
	if s, ok := m.lookup(r); ok {
		return s, nil
	}
	if m.factory == nil {
		return nil, errors.New("web: no session factory")
	}
	sess, err := m.factory()
	if err != nil {
		return nil, err
	}
	id, token, err := newSessionToken(m.secret, m.ttl, m.now())
	if err != nil {
		sess.Close()
		return nil, err
	}
	m.mu.Lock()
	m.sessions[id] = &sessionEntry{sess: sess, lastSeen: m.now()}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	m.log.Debug("session created", "session", id)
	return sess, nil
}

// sweep closes sessions idle for longer than the idle limit.
func (m *sessionManager) sweep() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)
	var stale []*engine.Session
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *sessionManager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[string]*sessionEntry{}
	m.mu.Unlock()
	for _, e := range all {
		e.sess.Close()
	}
}
