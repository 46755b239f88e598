package manager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads file sources when they change on disk. The watcher is set up
// before Watch returns; events are handled in the background until ctx is
// done. The returned channel yields a fatal watcher error, if any, and is
// closed when watching stops.
//
// Directories are watched rather than files so that editors replacing a file
// are noticed. Only files registered when Watch is called are reloaded.
func (m *Manager) Watch(ctx context.Context) (<-chan error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range m.Files() {
		if src, ok := m.Source(path); !ok || !src.file {
			continue
		}
		watched[path] = true
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	m.logger.Info("watching visualizer sources", zap.Int("files", len(watched)))

	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					done <- fmt.Errorf("watcher events channel closed")
					return
				}
				path := filepath.Clean(event.Name)
				if watched[path] {
					m.handle(path, event.Op)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					done <- fmt.Errorf("watcher errors channel closed")
					return
				}
				m.logger.Warn("file watcher error", zap.Error(err))
			}
		}
	}()
	return done, nil
}

func (m *Manager) handle(path string, op fsnotify.Op) {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Write):
		if err := m.Reload(path); err != nil {
			m.logger.Warn("reload failed", zap.String("path", path), zap.Error(err))
		}
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		m.logger.Warn("visualizer file removed; keeping loaded rules", zap.String("path", path))
	}
}
