// go-breakout/internal/api/backtest.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"go-breakout/internal/backtest"
	"go-breakout/internal/rules"
	"go-breakout/internal/sessions"
	"go-breakout/internal/types"
)

// RemoteSource asks the server to fetch candles instead of sending them.
type RemoteSource struct {
	Symbol string    `json:"symbol" binding:"required"`
	TF     string    `json:"tf" binding:"required"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required,gtfield=Start"`
}

type BacktestRequest struct {
	Candles       []types.Candle        `json:"candles"`
	Remote        *RemoteSource         `json:"remote,omitempty"`
	PreviousClose float64               `json:"previous_close" binding:"gt=0"`
	Config        *rules.StrategyConfig `json:"config,omitempty"`
	// Location is an IANA zone for day boundaries; empty uses the server default.
	Location string `json:"location,omitempty"`
}

// /api/backtest
func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	cfg := backtest.Config{Strategy: s.strategyOr(req.Config), Location: s.opt.Location}
	if problems := rules.ValidateConfig(cfg.Strategy); len(problems) > 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid strategy config", "problems": problems})
		return
	}
	if req.Location != "" {
		loc, err := sessions.LoadLocation(req.Location)
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid location", err)
			return
		}
		cfg.Location = loc
	}

	candles := req.Candles
	if len(candles) == 0 && req.Remote != nil {
		var err error
		if candles, err = s.loadRemote(c, *req.Remote); err != nil {
			return
		}
	}
	if len(candles) > s.opt.MaxCandles {
		abort(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d candles per request", s.opt.MaxCandles), nil)
		return
	}

	start := time.Now()
	res, err := backtest.Run(c.Request.Context(), candles, req.PreviousClose, cfg)
	switch {
	case err == nil:
		s.metrics.observeBacktest("ok", time.Since(start))
	case errors.Is(err, types.ErrInvalidCandle), errors.Is(err, types.ErrNotChronological):
		s.metrics.observeBacktest("bad_input", time.Since(start))
		abort(c, http.StatusUnprocessableEntity, "invalid candle series", err)
		return
	default:
		s.metrics.observeBacktest("error", time.Since(start))
		abort(c, http.StatusInternalServerError, "backtest failed", err)
		return
	}
	log.Info().Int("candles", len(candles)).Int("trades", res.TotalTrades).
		Float64("net", res.NetProfit).Dur("took", time.Since(start)).Msg("backtest")
	c.JSON(http.StatusOK, res)
}

func (s *Server) loadRemote(c *gin.Context, src RemoteSource) ([]types.Candle, error) {
	if s.opt.Source == nil {
		err := errors.New("no candle source configured")
		abort(c, http.StatusServiceUnavailable, "remote candles unavailable", err)
		return nil, err
	}
	tf, ok := types.ParseTF(src.TF)
	if !ok {
		err := fmt.Errorf("bad tf %q", src.TF)
		abort(c, http.StatusBadRequest, "invalid tf", err)
		return nil, err
	}
	out, err := s.opt.Source.LoadCandlesRange(c.Request.Context(), src.Symbol, tf, src.Start, src.End)
	if err != nil {
		abort(c, http.StatusBadGateway, "candle source failed", err)
		return nil, err
	}
	return out, nil
}

// /api/config/validate
func (s *Server) handleValidate(c *gin.Context) {
	var cfg rules.StrategyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	problems := rules.ValidateConfig(cfg)
	if problems == nil {
		problems = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(problems) == 0, "errors": problems})
}

// /api/candles?symbol=BTCUSDT&tf=5m&start=2024-03-04T00:00:00Z&end=2024-03-05T00:00:00Z
// Without start and end the latest n bars are returned.
func (s *Server) handleCandles(c *gin.Context) {
	var q struct {
		Symbol string    `form:"symbol" binding:"required"`
		TF     string    `form:"tf" binding:"required"`
		Start  time.Time `form:"start" time_format:"2006-01-02T15:04:05Z07:00"`
		End    time.Time `form:"end" time_format:"2006-01-02T15:04:05Z07:00"`
		N      int       `form:"n" binding:"omitempty,gte=1,lte=1500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "invalid query", err)
		return
	}
	if q.Start.IsZero() != q.End.IsZero() {
		abort(c, http.StatusBadRequest, "start and end go together", nil)
		return
	}

	var (
		data []types.Candle
		err  error
	)
	if !q.Start.IsZero() {
		data, err = s.loadRemote(c, RemoteSource{Symbol: q.Symbol, TF: q.TF, Start: q.Start, End: q.End})
		if err != nil {
			return
		}
	} else {
		if q.N == 0 {
			q.N = 500
		}
		data, err = s.loadRecent(c, q.Symbol, q.TF, q.N)
		if err != nil {
			return
		}
	}
	tf, _ := types.ParseTF(q.TF)
	c.JSON(http.StatusOK, types.CandleSet{Symbol: q.Symbol, TF: tf, Data: data})
}

func (s *Server) loadRecent(c *gin.Context, symbol, tfStr string, n int) ([]types.Candle, error) {
	if s.opt.Source == nil {
		err := errors.New("no candle source configured")
		abort(c, http.StatusServiceUnavailable, "remote candles unavailable", err)
		return nil, err
	}
	tf, ok := types.ParseTF(tfStr)
	if !ok {
		err := fmt.Errorf("bad tf %q", tfStr)
		abort(c, http.StatusBadRequest, "invalid tf", err)
		return nil, err
	}
	out, err := s.opt.Source.LoadCandles(c.Request.Context(), symbol, tf, n)
	if err != nil {
		abort(c, http.StatusBadGateway, "candle source failed", err)
		return nil, err
	}
	return out, nil
}

func (s *Server) strategyOr(cfg *rules.StrategyConfig) rules.StrategyConfig {
	if cfg != nil {
		return *cfg
	}
	return s.Strategy()
}
