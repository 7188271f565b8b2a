package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

const sessionCookie = "casa_session"

// KioskSession is the fixed session used by non-browser inputs: the
// gesture camera forwarder and MQTT text commands.
const KioskSession = "kiosk"

// SessionManager hands out one independent state.House per session.
// Houses live for the process lifetime and are never persisted. The lock
// only guards the maps: each browser session's house still has a single
// logical owner and is mutated synchronously in response to one event at
// a time. The kiosk session is the exception — it has several writers —
// so everything off the HTTP path mutates it through Mutate.
type SessionManager struct {
	mu     sync.Mutex
	houses map[string]*state.House
	locks  map[string]*sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		houses: make(map[string]*state.House),
		locks:  make(map[string]*sync.Mutex),
	}
}

// House returns the session's house, creating it with defaults on first
// use.
func (s *SessionManager) House(id string) *state.House {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.houses[id]
	if !ok {
		h = state.NewHouse()
		s.houses[id] = h
		Logger.Debug().Msgf("new session %s", id)
	}
	return h
}

// FromRequest resolves the caller's session from its cookie, minting a
// new session id when none is present.
func (s *SessionManager) FromRequest(w http.ResponseWriter, r *http.Request) (string, *state.House) {
	cookie, err := r.Cookie(sessionCookie)
	var id string
	if err == nil && cookie.Value != "" {
		id = cookie.Value
	} else {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
		})
	}
	return id, s.House(id)
}

// Mutate runs fn with the session's house while holding that session's
// mutation lock. Writers that do not own a browser session (the MQTT
// command receiver, the camera forwarder workers) all land on the kiosk
// house, so their mutations are serialized here.
func (s *SessionManager) Mutate(id string, fn func(h *state.House)) {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	defer lock.Unlock()
	fn(s.House(id))
}

func (s *SessionManager) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.houses)
}
