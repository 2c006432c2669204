// Package registry tracks the live daemon sessions of one server process.
// A session is present exactly while it is Registered or Active, and at most
// one session exists per (hostname, identity).
package registry

import (
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
	"github.com/tobert/halfremembered-launcher/internal/session"
)

// Registry maps session ids to sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	byKey    map[session.Key]string
	logger   *logger.Logger
}

func New(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		sessions: make(map[string]*session.Session),
		byKey:    make(map[session.Key]string),
		logger:   log,
	}
}

// Register admits s. An existing session with the same hostname and
// identity is evicted and returned; the caller closes it with
// session.ErrSuperseded.
func (r *Registry) Register(s *session.Session) (superseded *session.Session, err error) {
	if s.Purpose() != protocol.PurposeDaemon {
		return nil, fmt.Errorf("%w: purpose %s", ErrNotDaemon, s.Purpose())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.sessions[s.ID()]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID())
	}

	key := s.Key()
	if oldID, ok := r.byKey[key]; ok {
		superseded = r.sessions[oldID]
		delete(r.sessions, oldID)
		r.logger.Info().
			Str("hostname", key.Hostname).
			Str("old_session_id", oldID).
			Str("new_session_id", s.ID()).
			Msg("registration supersedes existing session")
	}

	r.sessions[s.ID()] = s
	r.byKey[key] = s.ID()

	return superseded, nil
}

// Remove drops the session with the given id.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	r.removeLocked(s)
	return true
}

// RemoveIf drops s only if it is still the registered entry for its id.
// A superseded session's teardown therefore never removes its successor.
func (r *Registry) RemoveIf(s *session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[s.ID()]
	if !ok || current != s {
		return false
	}
	r.removeLocked(s)
	return true
}

func (r *Registry) removeLocked(s *session.Session) {
	delete(r.sessions, s.ID())
	key := s.Key()
	if r.byKey[key] == s.ID() {
		delete(r.byKey, key)
	}
}

// Get returns the session with the given id.
func (r *Registry) Get(sessionID string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// All returns a snapshot ordered by hostname, then connection time.
func (r *Registry) All() []*session.Session {
	r.mu.RLock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sortSessions(out)
	return out
}

// FindByHostnamePattern returns the sessions whose hostname matches glob,
// using path.Match syntax.
func (r *Registry) FindByHostnamePattern(glob string) ([]*session.Session, error) {
	if _, err := path.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadPattern, glob, err)
	}

	r.mu.RLock()
	var out []*session.Session
	for _, s := range r.sessions {
		if ok, _ := path.Match(glob, s.Hostname()); ok {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sortSessions(out)
	return out, nil
}

// TouchHeartbeat records a heartbeat and promotes Registered to Active.
func (r *Registry) TouchHeartbeat(sessionID string, at time.Time) error {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s.Touch(at)
}

// Expired returns the sessions whose last heartbeat is older than timeout.
func (r *Registry) Expired(now time.Time, timeout time.Duration) []*session.Session {
	r.mu.RLock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.Expired(now, timeout) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sortSessions(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func sortSessions(s []*session.Session) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Hostname() != s[j].Hostname() {
			return s[i].Hostname() < s[j].Hostname()
		}
		return s[i].ConnectedAt().Before(s[j].ConnectedAt())
	})
}
