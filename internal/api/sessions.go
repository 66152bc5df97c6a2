// go-breakout/internal/api/sessions.go
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-breakout/internal/live"
	"go-breakout/internal/rules"
	"go-breakout/internal/types"
)

type OpenSessionRequest struct {
	Config        *rules.StrategyConfig `json:"config,omitempty"`
	PreviousClose float64               `json:"previous_close" binding:"gt=0"`
}

// CandleRequest feeds one bar. Leave both flags out to let the session run
// the gap filter itself; send both to evaluate against a verdict checked
// elsewhere.
type CandleRequest struct {
	Candle          types.Candle `json:"candle"`
	IsFirstCandle   *bool        `json:"is_first_candle,omitempty"`
	GapFilterPassed *bool        `json:"gap_filter_passed,omitempty"`
}

var errHalfFlags = errors.New("is_first_candle and gap_filter_passed must be sent together")

func (r CandleRequest) explicit() (bool, error) {
	if (r.IsFirstCandle == nil) != (r.GapFilterPassed == nil) {
		return false, errHalfFlags
	}
	return r.IsFirstCandle != nil, nil
}

type SignalResponse struct {
	Signal  rules.Signal `json:"signal"`
	Candles int          `json:"candles"`
	Error   string       `json:"error,omitempty"`
}

type ResetRequest struct {
	PreviousClose float64 `json:"previous_close" binding:"gte=0"`
}

func (s *Server) session(c *gin.Context) (*live.Session, bool) {
	sess, err := s.store.Get(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, "unknown session", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.store.List()})
}

func (s *Server) handleOpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.store.Open(s.strategyOr(req.Config), req.PreviousClose)
	switch {
	case errors.Is(err, rules.ErrInvalidConfig):
		var cerr *rules.ConfigError
		errors.As(err, &cerr)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid strategy config", "problems": cerr.Problems})
		return
	case errors.Is(err, live.ErrStoreFull):
		abort(c, http.StatusTooManyRequests, "session limit reached", err)
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, "open session failed", err)
		return
	}
	s.metrics.sessions.Set(float64(s.store.Len()))
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(c *gin.Context) {
	if sess, ok := s.session(c); ok {
		c.JSON(http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) handleCloseSession(c *gin.Context) {
	if err := s.store.Close(c.Param("id")); err != nil {
		abort(c, http.StatusNotFound, "unknown session", err)
		return
	}
	s.metrics.sessions.Set(float64(s.store.Len()))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := sess.Reset(req.PreviousClose); err != nil {
		abort(c, http.StatusInternalServerError, "reset failed", err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionCandle(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req CandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	resp, err := s.feed(sess, req)
	switch {
	case errors.Is(err, errHalfFlags):
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// feed is shared by the REST and websocket paths.
func (s *Server) feed(sess *live.Session, req CandleRequest) (SignalResponse, error) {
	explicit, err := req.explicit()
	if err != nil {
		return SignalResponse{Error: err.Error(), Candles: sess.Snapshot().Candles}, err
	}
	var sig rules.Signal
	if explicit {
		sig, err = sess.Evaluate(req.Candle, *req.IsFirstCandle, *req.GapFilterPassed)
	} else {
		sig, err = sess.Feed(req.Candle)
	}
	resp := SignalResponse{Signal: sig}
	if err != nil {
		resp.Error = err.Error()
	} else {
		s.metrics.signals.WithLabelValues(sig.Action.String()).Inc()
	}
	resp.Candles = sess.Snapshot().Candles
	return resp, err
}
