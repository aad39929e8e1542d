package core

import (
	"sync/atomic"
)

// Session is an immutable snapshot of the authenticated state. Writers never
// mutate a Session in place; they build a new one and install it.
type Session struct {
	API      API
	DeviceID string
	User     string
}

// Authenticated reports whether the session carries a verified API handle.
func (s *Session) Authenticated() bool {
	return s != nil && s.API != nil
}

// WithDevice returns a copy of s that remembers deviceID.
func (s *Session) WithDevice(deviceID string) *Session {
	next := *s
	next.DeviceID = deviceID
	return &next
}

// SessionHolder publishes the current Session to concurrent readers.
type SessionHolder struct {
	current atomic.Pointer[Session]
}

func NewSessionHolder() *SessionHolder {
	h := &SessionHolder{}
	h.current.Store(&Session{})
	return h
}

// Load never returns nil.
func (h *SessionHolder) Load() *Session {
	if s := h.current.Load(); s != nil {
		return s
	}
	return &Session{}
}

// Store installs s as the current session wholesale.
func (h *SessionHolder) Store(s *Session) {
	if s == nil {
		s = &Session{}
	}
	h.current.Store(s)
}

// Clear installs an unauthenticated session.
func (h *SessionHolder) Clear() {
	h.current.Store(&Session{})
}

// SetDevice replaces prev with a copy remembering deviceID. It does nothing and
// returns false when another writer installed a different session since prev was
// loaded, so a device update never resurrects a replaced API handle.
func (h *SessionHolder) SetDevice(prev *Session, deviceID string) bool {
	return h.current.CompareAndSwap(prev, prev.WithDevice(deviceID))
}
