package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchConfig reloads path whenever it is written or replaced and passes the
// new config to onChange. A file that fails to load or validate is logged and
// the previous config stays active. It returns when ctx is done.
//
// The parent directory is watched rather than the file, so the watch
// survives editors that save by renaming a temporary file over path.
func watchConfig(ctx context.Context, log *slog.Logger, path string, onChange func(config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log.Debug("watching config", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename over path shows up as create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := loadConfig(path)
			if err == nil {
				err = cfg.validate()
			}
			if err != nil {
				log.Error("config reload failed, keeping previous config", "path", path, "err", err)
				continue
			}
			log.Info("config reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher error", "err", err)
		}
	}
}
