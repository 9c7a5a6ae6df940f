package tracker

import (
	"sync"
	"time"
)

// session is the mutable per-session state. The timestamp buffer is cleared
// on every flush; the sets and start time live as long as the session.
type session struct {
	start      time.Time
	timestamps []time.Time
	paths      map[string]struct{}
	ips        map[string]struct{}
	lastIP     string
	users      map[string]struct{}
}

func newSession(now time.Time) *session {
	return &session{
		start: now,
		paths: make(map[string]struct{}),
		ips:   make(map[string]struct{}),
		users: make(map[string]struct{}),
	}
}

// Snapshot is an immutable copy of a session taken under the registry lock.
type Snapshot struct {
	SessionID  string
	StartTime  time.Time
	Timestamps []time.Time
	UniqueAPIs int
	NumIPs     int
	LastIP     string
	NumUsers   int
}

func (s *session) snapshot(id string) Snapshot {
	ts := make([]time.Time, len(s.timestamps))
	copy(ts, s.timestamps)
	return Snapshot{
		SessionID:  id,
		StartTime:  s.start,
		Timestamps: ts,
		UniqueAPIs: len(s.paths),
		NumIPs:     len(s.ips),
		LastIP:     s.lastIP,
		NumUsers:   len(s.users),
	}
}

// Registry holds one record per tracked session. Every mutation, including
// the buffer reset that goes with a flush, happens under mu.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	threshold int
	now       func() time.Time
}

func NewRegistry(threshold int) *Registry {
	if threshold < 1 {
		threshold = 1
	}
	return &Registry{
		sessions:  make(map[string]*session),
		threshold: threshold,
		now:       time.Now,
	}
}

func (r *Registry) GetOrCreate(id string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.getOrCreateLocked(id).snapshot(id)
}

func (r *Registry) getOrCreateLocked(id string) *session {
	s, ok := r.sessions[id]
	if !ok {
		s = newSession(r.now())
		r.sessions[id] = s
	}
	return s
}

// RecordRequest appends a request to the session buffer. When the buffer
// reaches the flush threshold it is handed back as a snapshot and reset in
// the same critical section, so a concurrent request for the same session
// lands either in this snapshot or in the next buffer.
func (r *Registry) RecordRequest(id, path, ip, userID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreateLocked(id)
	s.timestamps = append(s.timestamps, r.now())
	s.paths[path] = struct{}{}
	if ip != "" {
		s.ips[ip] = struct{}{}
		s.lastIP = ip
	}
	if userID != "" {
		s.users[userID] = struct{}{}
	}

	if len(s.timestamps) < r.threshold {
		return Snapshot{}, false
	}

	snap := s.snapshot(id)
	s.timestamps = nil
	return snap, true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}

// Expire removes every session older than ttl and returns their final state.
func (r *Registry) Expire(ttl time.Duration) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var expired []Snapshot
	for id, s := range r.sessions {
		if now.Sub(s.start) > ttl {
			expired = append(expired, s.snapshot(id))
			delete(r.sessions, id)
		}
	}
	return expired
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Buffered reports how many requests are waiting for the next flush.
func (r *Registry) Buffered(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return len(s.timestamps)
	}
	return 0
}
