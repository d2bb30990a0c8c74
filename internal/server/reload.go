package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDebounce = 500 * time.Millisecond

// WatchSignatures hot-reloads the bot-signature file on change. Editors
// often replace files rather than write them in place, so the parent
// directory is watched and events are debounced before reloading.
func (s *Server) WatchSignatures(ctx context.Context) error {
	if s.cfg.SignaturesPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.cfg.SignaturesPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(s.cfg.SignaturesPath)

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := s.ReloadSignatures(); err != nil {
						log.Error().Err(err).Str("path", target).Msg("signature reload failed; keeping previous set")
						return
					}
					log.Info().Str("path", target).Msg("signatures reloaded")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("signature watcher error")
			}
		}
	}()

	return nil
}
