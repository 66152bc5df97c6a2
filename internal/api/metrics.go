// go-breakout/internal/api/metrics.go
package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	backtests *prometheus.CounterVec
	duration  prometheus.Histogram
	signals   *prometheus.CounterVec
	sessions  prometheus.Gauge
}

// NewMetrics registers everything on a private registry, so several routers
// can live in one process (tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		backtests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_backtests_total",
			Help: "Backtest runs by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakout_backtest_duration_seconds",
			Help:    "Wall time of one backtest run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_signals_total",
			Help: "Live evaluation results by action.",
		}, []string{"action"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_live_sessions",
			Help: "Open live evaluation sessions.",
		}),
	}
}

func (m *Metrics) observeBacktest(outcome string, took time.Duration) {
	m.backtests.WithLabelValues(outcome).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
