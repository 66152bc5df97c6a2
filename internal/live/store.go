// go-breakout/internal/live/store.go
package live

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go-breakout/internal/rules"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStoreFull       = errors.New("too many open sessions")
)

// Store keeps live sessions in memory. Nothing is persisted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
}

// NewStore caps the number of open sessions at max; max <= 0 means no cap.
func NewStore(max int) *Store {
	return &Store{sessions: map[string]*Session{}, max: max}
}

func (st *Store) Open(cfg rules.StrategyConfig, prevClose float64) (*Session, error) {
	s, err := newSession(uuid.NewString(), cfg, prevClose, time.Now())
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, ErrStoreFull
	}
	st.sessions[s.ID] = s
	log.Debug().Str("session", s.ID).Float64("prev_close", prevClose).Msg("session opened")
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Close(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	log.Debug().Str("session", id).Msg("session closed")
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// List snapshots every session, oldest first.
func (st *Store) List() []Snapshot {
	st.mu.RLock()
	all := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		all = append(all, s)
	}
	st.mu.RUnlock()

	out := make([]Snapshot, 0, len(all))
	for _, s := range all {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
