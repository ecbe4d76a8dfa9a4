package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileHandler processes one detected file.
type FileHandler func(path string) error

// WatchOptions configures the watcher behavior.
type WatchOptions struct {
	// extensions to monitor; empty means everything
	Extensions []string

	// directory name fragments to exclude
	ExcludeDirs []string

	// min file age before processing, to avoid half-written files
	MinFileAge time.Duration

	// also watch subdirectories
	Recursive bool
}

// Watcher monitors directories and hands new or changed files to the
// handler. A processed map suppresses re-runs for a minute, which also
// keeps the watcher from chasing its own in-place rewrites.
type Watcher struct {
	watcher *fsnotify.Watcher
	dirs    []string
	options WatchOptions
	handler FileHandler
	log     *slog.Logger

	processed   map[string]time.Time
	processLock sync.Mutex

	done    chan struct{}
	running bool
}

// NewWatcher validates the directories and builds a watcher for them.
func NewWatcher(dirs []string, options WatchOptions, handler FileHandler, log *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var validDirs []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			log.Warn("skipping invalid directory", "dir", dir, "error", err)
			continue
		}
		if !info.IsDir() {
			log.Warn("skipping non-directory path", "path", dir)
			continue
		}
		validDirs = append(validDirs, dir)
	}
	if len(validDirs) == 0 {
		fsWatcher.Close()
		return nil, fmt.Errorf("no valid directories to watch")
	}

	return &Watcher{
		watcher:   fsWatcher,
		dirs:      validDirs,
		options:   options,
		handler:   handler,
		log:       log,
		processed: make(map[string]time.Time),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the configured directories.
func (w *Watcher) Start() error {
	if w.running {
		return fmt.Errorf("watcher already running")
	}

	for _, dir := range w.dirs {
		if w.options.Recursive {
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					w.log.Warn("error accessing path", "path", path, "error", err)
					return nil
				}
				if info.IsDir() {
					if w.excluded(path) {
						return filepath.SkipDir
					}
					w.addDir(path)
				}
				return nil
			})
			if err != nil {
				w.log.Error("error walking directory", "dir", dir, "error", err)
			}
		} else {
			w.addDir(dir)
		}
	}

	go w.processEvents()
	go w.periodicCleanup()

	w.running = true
	w.log.Info("file watcher started", "dirs", len(w.dirs))
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() error {
	if !w.running {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.running = false
	w.log.Info("file watcher stopped")
	return err
}

func (w *Watcher) addDir(path string) {
	if err := w.watcher.Add(path); err != nil {
		w.log.Warn("failed to watch directory", "dir", path, "error", err)
	} else {
		w.log.Debug("watching directory", "dir", path)
	}
}

func (w *Watcher) excluded(path string) bool {
	for _, exclude := range w.options.ExcludeDirs {
		if exclude != "" && strings.Contains(path, exclude) {
			return true
		}
	}
	return false
}

// shouldProcessFile filters by extension, settle age, and the recently
// processed map.
func (w *Watcher) shouldProcessFile(path string) bool {
	if len(w.options.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		matched := false
		for _, allowed := range w.options.Extensions {
			if ext == strings.ToLower(allowed) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if w.options.MinFileAge > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if time.Since(info.ModTime()) < w.options.MinFileAge {
			return false
		}
	}

	w.processLock.Lock()
	defer w.processLock.Unlock()
	if last, exists := w.processed[path]; exists && time.Since(last) < time.Minute {
		return false
	}
	return true
}

func (w *Watcher) markProcessed(path string) {
	w.processLock.Lock()
	defer w.processLock.Unlock()
	w.processed[path] = time.Now()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return // watcher closed
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := event.Name

			// a new directory in recursive mode gets watched too
			if w.options.Recursive {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !w.excluded(path) {
						w.addDir(path)
					}
					continue
				}
			}

			if !w.shouldProcessFile(path) {
				continue
			}
			// mark before the handler runs so the write events our own
			// rewrite produces do not schedule the file again
			w.markProcessed(path)
			go func(filePath string) {
				// small delay so the writer can finish
				time.Sleep(500 * time.Millisecond)
				if err := w.handler(filePath); err != nil {
					w.log.Error("failed to process file", "path", filePath, "error", err)
				}
			}(path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// periodicCleanup evicts processed entries older than an hour.
func (w *Watcher) periodicCleanup() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-1 * time.Hour)
			w.processLock.Lock()
			for path, processed := range w.processed {
				if processed.Before(cutoff) {
					delete(w.processed, path)
				}
			}
			w.processLock.Unlock()
			w.log.Debug("cleaned processed files cache")
		case <-w.done:
			return
		}
	}
}
