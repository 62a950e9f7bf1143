package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and applies its log_level to level.
// Other fields need a restart. onReload, when not nil, receives every config
// that loaded successfully. Watch returns once the watcher is set up; it stops
// when ctx is done.
func Watch(ctx context.Context, path string, level *slog.LevelVar, onReload func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files by renaming over them.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	name := filepath.Clean(path)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.WarnContext(ctx, "Ignoring config change", "path", path, "err", err)
					continue
				}
				l, _ := ParseLevel(cfg.LogLevel)
				if l != level.Level() {
					slog.InfoContext(ctx, "Log level changed", "level", l)
					level.Set(l)
				}
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching config", "err", err)
			}
		}
	}()
	return nil
}
