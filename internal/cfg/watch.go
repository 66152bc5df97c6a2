// go-breakout/internal/cfg/watch.go
package cfg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

var ErrNoConfigFile = errors.New("no config file to watch")

const reloadDebounce = 150 * time.Millisecond

// Watch reloads path whenever it is written or replaced and passes every
// config that loads cleanly to onChange. A broken edit is logged and the last
// good config stays in force. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	if path == "" {
		return ErrNoConfigFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()
	// Editors often save by rename, which drops a watch on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	log.Info().Str("path", abs).Msg("watching config")

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			debounce.Reset(reloadDebounce)
		case <-debounce.C:
			c, err := Load(abs)
			if err != nil {
				log.Warn().Err(err).Str("path", abs).Msg("config reload rejected")
				continue
			}
			log.Info().Str("path", abs).
				Float64("gap_tolerance", c.Strategy.GapTolerance).
				Float64("target_points", c.Strategy.TargetPoints).Msg("config reloaded")
			onChange(c)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher")
		}
	}
}
