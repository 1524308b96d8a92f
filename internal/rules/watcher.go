package rules

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader re-reads the rule set from its source, typically the config file.
type Loader func() ([]Rule, error)

// FileWatcher watches the rules file and swaps a freshly loaded rule set into
// the store on change. An edit that fails to load or compile is rejected and
// the previous rules stay live.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	loader   Loader
	filePath string
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewFileWatcher creates a watcher for the given rules file.
func NewFileWatcher(store *Store, filePath string, loader Loader, logger *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWatcher{
		watcher:  watcher,
		store:    store,
		loader:   loader,
		filePath: filePath,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory containing the file (more reliable for writes)
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	return nil
}

// watch is the main watch loop.
func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fw.reload()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("rules watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// reload loads and validates the new rule set before swapping it in.
func (fw *FileWatcher) reload() {
	rules, err := fw.loader()
	if err != nil {
		fw.logger.Warn("rules file changed but failed to load", "file", fw.filePath, "error", err)
		return
	}
	if err := fw.store.SetRules(rules); err != nil {
		fw.logger.Warn("rules file changed but validation failed", "file", fw.filePath, "error", err)
		return
	}
	fw.logger.Info("rules reloaded", "file", fw.filePath, "count", len(rules))
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}
