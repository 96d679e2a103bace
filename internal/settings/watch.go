package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads path into st whenever the file changes, until ctx is done.
// A file that fails to load or validate leaves the previous settings in
// place. The parent directory is watched so editors that replace the file
// by rename are still picked up.
func Watch(ctx context.Context, path string, st *Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	go run(ctx, w, path, st, logger)
	return nil
}

func run(ctx context.Context, w *fsnotify.Watcher, path string, st *Store, logger *zap.Logger) {
	defer w.Close()
	target := filepath.Clean(path)

	// Reload on the trailing edge so a burst of writes loads the final file.
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case <-timer.C:
			reload(path, st, logger)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("settings watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

func reload(path string, st *Store, logger *zap.Logger) {
	s, err := Load(path)
	if err != nil {
		logger.Warn("settings reload rejected, keeping previous", zap.String("path", path), zap.Error(err))
		return
	}
	st.Set(s)
	logger.Info("settings reloaded",
		zap.String("path", path),
		zap.Bool("attack_enable", s.Attack.Enable),
		zap.Bool("bash_enable", s.Bash.Enable),
		zap.Float64("chance_multiplier", s.Attack.ChanceMultiplier),
		zap.Int("max_attackers", s.MaxAttackers),
	)
}
