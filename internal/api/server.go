// go-breakout/internal/api/server.go
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"go-breakout/internal/live"
	"go-breakout/internal/rules"
	"go-breakout/internal/status"
	"go-breakout/internal/types"
)

// CandleSource loads historical bars; the aster client satisfies it.
type CandleSource interface {
	LoadCandles(ctx context.Context, symbol string, tf types.TF, n int) ([]types.Candle, error)
	LoadCandlesRange(ctx context.Context, symbol string, tf types.TF, start, end time.Time) ([]types.Candle, error)
}

type Options struct {
	// Strategy fills in requests that carry no config.
	Strategy   rules.StrategyConfig
	Location   *time.Location
	MaxCandles int
	// Store defaults to an uncapped in-memory store.
	Store *live.Store
	// Source is optional; without it remote-symbol requests get 503.
	Source  CandleSource
	Metrics *Metrics
}

type Server struct {
	opt     Options
	store   *live.Store
	metrics *Metrics

	mu       sync.RWMutex
	strategy rules.StrategyConfig
}

func NewServer(opt Options) *Server {
	if opt.Strategy == (rules.StrategyConfig{}) {
		opt.Strategy = rules.DefaultConfig()
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.MaxCandles <= 0 {
		opt.MaxCandles = 200_000
	}
	if opt.Store == nil {
		opt.Store = live.NewStore(0)
	}
	if opt.Metrics == nil {
		opt.Metrics = NewMetrics()
	}
	return &Server{opt: opt, store: opt.Store, metrics: opt.Metrics, strategy: opt.Strategy}
}

// SetStrategy swaps the default config used by requests that carry none.
// Sessions already open keep the config they were opened with.
func (s *Server) SetStrategy(cfg rules.StrategyConfig) error {
	if problems := rules.ValidateConfig(cfg); len(problems) > 0 {
		return &rules.ConfigError{Problems: problems}
	}
	s.mu.Lock()
	s.strategy = cfg
	s.mu.Unlock()
	return nil
}

func (s *Server) Strategy() rules.StrategyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

// Router wires every route onto a fresh gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.metrics.middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	r.GET("/status", gin.WrapH(status.Handler(s.store, 5*time.Second)))
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/status") })

	g := r.Group("/api")
	g.POST("/backtest", s.handleBacktest)
	g.POST("/config/validate", s.handleValidate)
	g.GET("/sample", s.handleSample)
	g.GET("/candles", s.handleCandles)

	g.GET("/sessions", s.handleListSessions)
	g.POST("/sessions", s.handleOpenSession)
	g.GET("/sessions/:id", s.handleGetSession)
	g.DELETE("/sessions/:id", s.handleCloseSession)
	g.POST("/sessions/:id/candles", s.handleSessionCandle)
	g.POST("/sessions/:id/reset", s.handleResetSession)
	g.GET("/sessions/:id/ws", s.handleSessionWS)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	}
}

func abort(c *gin.Context, code int, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(code, body)
}
