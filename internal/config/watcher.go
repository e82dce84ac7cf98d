package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/clipforge/clipforge/internal/logger"
)

// FileWatcher reloads the configuration when the config file changes on disk.
// Writes are debounced because editors typically emit several events per save.
type FileWatcher struct {
	manager       *ConfigManager
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reloadMu     sync.Mutex
	pendingTimer *time.Timer
}

// NewFileWatcher creates a watcher bound to the manager's config path.
func NewFileWatcher(manager *ConfigManager) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		manager:       manager,
		watcher:       watcher,
		debounceDelay: 500 * time.Millisecond,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start begins watching the config file's directory. Watching the directory
// instead of the file survives rename-based atomic saves.
func (fw *FileWatcher) Start() error {
	path := fw.manager.ConfigPath()
	if path == "" {
		logger.Debug("No config file path set, hot reload disabled")
		return nil
	}

	if err := fw.watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.watchLoop(path)

	logger.Info("Config hot reload enabled", "path", path)
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.cancel()
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) watchLoop(path string) {
	defer fw.wg.Done()

	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fw.scheduleReload(path)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error", "error", err)
		case <-fw.ctx.Done():
			return
		}
	}
}

func (fw *FileWatcher) scheduleReload(path string) {
	fw.reloadMu.Lock()
	defer fw.reloadMu.Unlock()

	if fw.pendingTimer != nil {
		fw.pendingTimer.Stop()
	}
	fw.pendingTimer = time.AfterFunc(fw.debounceDelay, func() {
		if err := fw.manager.LoadConfig(path); err != nil {
			logger.Error("Config reload failed, keeping previous configuration", "error", err)
			return
		}
		logger.Info("Configuration reloaded", "path", path)
	})
}
