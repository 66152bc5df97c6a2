// go-breakout/internal/live/session.go
package live

import (
	"sync"
	"time"

	"go-breakout/internal/rules"
	"go-breakout/internal/types"
)

// Session is one day of incremental evaluation over a single engine. The
// engine itself is not safe for concurrent use; the session mutex serialises
// every call into it.
type Session struct {
	ID      string
	Created time.Time

	mu        sync.Mutex
	cfg       rules.StrategyConfig
	eng       *rules.Engine
	prevClose float64
	candles   int
	lastClose float64
	last      rules.Signal
	updated   time.Time
}

type Snapshot struct {
	ID         string               `json:"id"`
	Created    time.Time            `json:"created"`
	Updated    time.Time            `json:"updated"`
	Config     rules.StrategyConfig `json:"config"`
	PrevClose  float64              `json:"previous_close"`
	Candles    int                  `json:"candles"`
	Phase      string               `json:"phase"`
	State      rules.State          `json:"state"`
	LastSignal rules.Signal         `json:"last_signal"`
}

func newSession(id string, cfg rules.StrategyConfig, prevClose float64, now time.Time) (*Session, error) {
	eng, err := rules.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Created: now, updated: now, cfg: cfg, eng: eng, prevClose: prevClose}, nil
}

// Feed runs the gap filter on the first candle's open, calibrates on it, and
// evaluates every later candle.
func (s *Session) Feed(c types.Candle) (rules.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	isFirst := s.candles == 0
	if isFirst {
		if err := types.CheckCandle(c); err != nil {
			return rules.Signal{}, err
		}
		s.eng.CheckGapFilter(c.O, s.prevClose)
	}
	return s.apply(c, func() (rules.Signal, error) { return s.eng.ProcessCandle(c, isFirst) })
}

// Evaluate is for callers that ran the gap filter themselves.
func (s *Session) Evaluate(c types.Candle, isFirst, gapPassed bool) (rules.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(c, func() (rules.Signal, error) { return s.eng.Evaluate(c, isFirst, gapPassed) })
}

func (s *Session) apply(c types.Candle, step func() (rules.Signal, error)) (rules.Signal, error) {
	sig, err := step()
	if err != nil {
		return rules.Signal{}, err
	}
	s.candles++
	s.lastClose = c.C
	s.last = sig
	s.updated = time.Now()
	return sig, nil
}

// Reset starts the next day on a fresh engine. A zero prevClose carries the
// last fed close forward, or keeps the current previous close when nothing
// has been fed yet.
func (s *Session) Reset(prevClose float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := rules.NewEngine(s.cfg)
	if err != nil {
		return err
	}
	if prevClose == 0 {
		prevClose = s.prevClose
		if s.lastClose != 0 {
			prevClose = s.lastClose
		}
	}
	s.eng = eng
	s.prevClose = prevClose
	s.candles = 0
	s.lastClose = 0
	s.last = rules.Signal{}
	s.updated = time.Now()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.eng.State()
	return Snapshot{
		ID:         s.ID,
		Created:    s.Created,
		Updated:    s.updated,
		Config:     s.cfg,
		PrevClose:  s.prevClose,
		Candles:    s.candles,
		Phase:      st.Phase().String(),
		State:      st,
		LastSignal: s.last,
	}
}
