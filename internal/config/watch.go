package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/merchly/catalogmedia/internal/logger"
)

// FileWatcher reloads the configuration when the config file changes on disk.
// Editors tend to fire several write events per save, so reloads are debounced.
type FileWatcher struct {
	manager       *ConfigManager
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending *time.Timer
}

// NewFileWatcher creates a watcher for the manager's loaded config file
func NewFileWatcher(manager *ConfigManager) (*FileWatcher, error) {
	path := manager.ConfigPath()
	if path == "" {
		return nil, fmt.Errorf("no config file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the file itself: atomic saves
	// replace the inode and would silently drop a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &FileWatcher{
		manager:       manager,
		watcher:       watcher,
		debounceDelay: 500 * time.Millisecond,
	}, nil
}

// Start begins watching for config file changes
func (fw *FileWatcher) Start(ctx context.Context) {
	ctx, fw.cancel = context.WithCancel(ctx)

	fw.wg.Add(1)
	go fw.watchLoop(ctx)

	logger.Info("Config file watcher started: %s", fw.manager.ConfigPath())
}

// Stop stops the watcher and waits for the watch loop to exit
func (fw *FileWatcher) Stop() error {
	if fw.cancel != nil {
		fw.cancel()
	}
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer fw.wg.Done()

	configPath := fw.manager.ConfigPath()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fw.scheduleReload(configPath)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Config watcher error: %v", err)
		}
	}
}

func (fw *FileWatcher) scheduleReload(configPath string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.pending != nil {
		fw.pending.Stop()
	}

	fw.pending = time.AfterFunc(fw.debounceDelay, func() {
		if err := fw.manager.LoadConfig(configPath); err != nil {
			logger.Error("Config reload failed, keeping previous configuration: %v", err)
			return
		}
		logger.Info("Configuration reloaded from %s", configPath)
	})
}
