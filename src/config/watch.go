package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the .env file at path whenever it is written and passes the
// new configuration to onChange. It returns once the watcher is running and
// stops when ctx is done. Values from the file override the process
// environment on reload.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("no .env file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory so atomic-rename saves are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(reloadDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			case <-pending:
				pending = nil
				if err := godotenv.Overload(path); err != nil {
					log.Printf("config: reload of %s failed: %v", path, err)
					continue
				}
				cfg, err := LoadWithOptions(LoadOptions{EnvPath: path})
				if err != nil {
					log.Printf("config: reload of %s failed: %v", path, err)
					continue
				}
				log.Printf("config: reloaded %s (target=%s, auto_rearm=%v)", path, cfg.TargetLanguage, cfg.AutoRearm)
				onChange(cfg)
			}
		}
	}()
	return nil
}
