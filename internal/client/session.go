package client

import "sync"

type SessionEvent int

const (
	SessionRestored SessionEvent = iota + 1
	SessionSignedIn
	SessionSignedOut
)

func (e SessionEvent) String() string {
	switch e {
	case SessionRestored:
		return "restored"
	case SessionSignedIn:
		return "signed_in"
	case SessionSignedOut:
		return "signed_out"
	}
	return "unknown"
}

// Listener observes session changes. It runs after the store lock is
// released and must not block.
type Listener func(ev SessionEvent, s *Session)

// SessionStore is the client's single source of session state. Once
// closed it ignores every mutation, so late results from in-flight calls
// cannot resurrect a torn-down session.
type SessionStore struct {
	mu        sync.Mutex
	session   *Session
	alive     bool
	listeners map[int]Listener
	nextID    int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{alive: true, listeners: map[int]Listener{}}
}

// Current returns a copy of the session, or nil.
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *SessionStore) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Subscribe registers l and returns its unsubscribe func.
func (s *SessionStore) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Set adopts sess. It reports false when the store is closed.
func (s *SessionStore) Set(ev SessionEvent, sess *Session) bool {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return false
	}
	cp := *sess
	s.session = &cp
	listeners := s.snapshot()
	s.mu.Unlock()

	for _, l := range listeners {
		l(ev, &cp)
	}
	return true
}

// Clear drops the session. Listeners hear SessionSignedOut even when no
// session was held.
func (s *SessionStore) Clear() bool {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return false
	}
	s.session = nil
	listeners := s.snapshot()
	s.mu.Unlock()

	for _, l := range listeners {
		l(SessionSignedOut, nil)
	}
	return true
}

// Close marks the store dead and drops every listener.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.listeners = map[int]Listener{}
}

func (s *SessionStore) snapshot() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}
