// go-breakout/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"go-breakout/adapters/aster"
	"go-breakout/internal/api"
	"go-breakout/internal/cfg"
	"go-breakout/internal/live"
	"go-breakout/internal/logx"
)

func main() {
	configPath := flag.String("config", "", "config file (default ./config.yaml when present)")
	maxSessions := flag.Int("max-sessions", 1000, "cap on open live sessions, 0 for none")
	flag.Parse()

	conf, err := cfg.Load(*configPath)
	if err != nil {
		logx.Setup("info", false)
		log.Fatal().Err(err).Msg("config")
	}
	logx.Setup(conf.LogLevel, conf.LogPretty)
	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// PORT overrides the configured addr.
	addr := conf.Addr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	srv := api.NewServer(api.Options{
		Strategy:   conf.Strategy,
		Location:   conf.Loc,
		MaxCandles: conf.MaxCandles,
		Store:      live.NewStore(*maxSessions),
		Source:     aster.New(conf.AsterBaseURL),
	})
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("location", conf.Loc.String()).
			Float64("gap_tolerance", conf.Strategy.GapTolerance).
			Float64("target_points", conf.Strategy.TargetPoints).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if conf.File != "" {
		g.Go(func() error {
			return cfg.Watch(gctx, conf.File, func(c cfg.Config) {
				if err := srv.SetStrategy(c.Strategy); err != nil {
					log.Warn().Err(err).Msg("strategy not applied")
				}
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
