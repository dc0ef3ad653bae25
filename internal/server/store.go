package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-admission/pkg/form"
)

type entry struct {
	session  *form.Session
	lastUsed time.Time
}

// Store keeps live sessions in memory, keyed by a random UUID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry), now: time.Now}
}

// Put stores s and returns its id.
func (st *Store) Put(s *form.Session) string {
	id := uuid.NewString()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[id] = &entry{session: s, lastUsed: st.now()}
	return id
}

// Get returns the session for id and marks it used.
func (st *Store) Get(id string) (*form.Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = st.now()
	return e.session, true
}

// Delete drops id and reports whether it existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with a request in flight are kept.
func (st *Store) Sweep(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-maxIdle)
	removed := 0
	for id, e := range st.sessions {
		if e.lastUsed.Before(cutoff) && !e.session.Busy() {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
