// go-breakout/internal/api/sample.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-breakout/internal/sample"
	"go-breakout/internal/types"
)

type sampleQuery struct {
	Days       int     `form:"days" binding:"omitempty,gte=1,lte=366"`
	BarsPerDay int     `form:"bars_per_day" binding:"omitempty,gte=1,lte=1440"`
	Seed       *int64  `form:"seed"`
	StartPrice float64 `form:"start_price" binding:"omitempty,gt=0"`
	Volatility float64 `form:"volatility" binding:"omitempty,gte=0,lt=1"`
	Interval   string  `form:"interval"`
	Start      string  `form:"start"`
	// Gaps is a comma list of point offsets, e.g. "0,40,-300".
	Gaps string `form:"gaps"`
}

func (q sampleQuery) params() (sample.Params, error) {
	p := sample.DefaultParams()
	if q.Days > 0 {
		p.Days = q.Days
	}
	if q.BarsPerDay > 0 {
		p.BarsPerDay = q.BarsPerDay
	}
	if q.Seed != nil {
		p.Seed = *q.Seed
	}
	if q.StartPrice > 0 {
		p.StartPrice = q.StartPrice
	}
	if q.Volatility > 0 {
		p.Volatility = q.Volatility
	}
	if q.Interval != "" {
		d, err := time.ParseDuration(q.Interval)
		if err != nil {
			return p, err
		}
		p.Interval = d
	}
	if q.Start != "" {
		t, err := time.Parse(time.RFC3339, q.Start)
		if err != nil {
			return p, err
		}
		p.Start = t
	}
	if q.Gaps != "" {
		parts := strings.Split(q.Gaps, ",")
		p.Gaps = make([]float64, 0, len(parts))
		for _, s := range parts {
			g, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return p, err
			}
			p.Gaps = append(p.Gaps, g)
		}
	}
	return p, nil
}

type SampleResponse struct {
	PreviousClose float64        `json:"previous_close"`
	Params        sample.Params  `json:"params"`
	Candles       []types.Candle `json:"candles"`
}

// /api/sample?days=3&seed=7&gaps=0,300
func (s *Server) handleSample(c *gin.Context) {
	var q sampleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "invalid query", err)
		return
	}
	p, err := q.params()
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid query", err)
		return
	}
	if p.Days*p.BarsPerDay > s.opt.MaxCandles {
		abort(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d candles per request", s.opt.MaxCandles), nil)
		return
	}
	candles, err := sample.Generate(p)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, sample.ErrInvalidParams) || errors.Is(err, sample.ErrPriceFloor) {
			code = http.StatusBadRequest
		}
		abort(c, code, "generate failed", err)
		return
	}
	c.JSON(http.StatusOK, SampleResponse{PreviousClose: p.StartPrice, Params: p, Candles: candles})
}
