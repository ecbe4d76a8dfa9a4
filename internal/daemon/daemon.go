// Package daemon runs photoscrub as a background service that watches
// directories and scrubs sensitive metadata from files as they appear.
package daemon

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoscrub/core"
	"photoscrub/core/audio"
	"photoscrub/core/scrub"
	"photoscrub/internal/config"
)

// Daemon is the background service. Files are scrubbed in place, only
// when they actually carry sensitive metadata.
type Daemon struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile *os.File
	watcher *Watcher
	runID   string

	mu        sync.Mutex
	running   bool
	startTime time.Time
	processed int
	failed    int
}

// Status is a snapshot of the daemon state.
type Status struct {
	Running     bool
	RunID       string
	WatchedDirs []string
	Extensions  []string
	Processed   int
	Failed      int
	StartTime   time.Time
}

// New builds a daemon from the configuration. Logs go to the configured
// file, or stderr when none is set.
func New(cfg *config.Config) (*Daemon, error) {
	var logFile *os.File
	out := os.Stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		out = f
	}

	runID := uuid.NewString()
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	})).With("run", runID)

	return &Daemon{
		cfg:     cfg,
		log:     log,
		logFile: logFile,
		runID:   runID,
	}, nil
}

// Start begins watching and scrubbing.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("daemon already running")
	}

	options := WatchOptions{
		Extensions:  d.cfg.Watch.Extensions,
		ExcludeDirs: d.cfg.Watch.ExcludeDirs,
		MinFileAge:  time.Duration(d.cfg.Watch.MinFileAge) * time.Second,
		Recursive:   d.cfg.Watch.Recursive,
	}

	watcher, err := NewWatcher(d.cfg.Watch.Paths, options, d.handleFile, d.log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	d.watcher = watcher
	d.running = true
	d.startTime = time.Now()
	d.log.Info("daemon started", "dirs", d.cfg.Watch.Paths)
	return nil
}

// Stop halts the daemon and closes the log file.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.log.Info("stopping daemon", "processed", d.processed, "failed", d.failed)
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.log.Warn("error stopping watcher", "error", err)
		}
	}
	if d.logFile != nil {
		d.logFile.Close()
	}
	d.running = false
	return nil
}

// Status reports the current daemon state.
func (d *Daemon) Status() *Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return &Status{Running: false}
	}
	return &Status{
		Running:     true,
		RunID:       d.runID,
		WatchedDirs: d.cfg.Watch.Paths,
		Extensions:  d.cfg.Watch.Extensions,
		Processed:   d.processed,
		Failed:      d.failed,
		StartTime:   d.startTime,
	}
}

// handleFile routes one file through the right scrubber. Clean files
// are left untouched.
func (d *Daemon) handleFile(path string) error {
	job := d.log.With("job", uuid.NewString()[:8], "path", path)

	format, err := core.DetectFile(path)
	if err != nil {
		d.countFailure()
		return err
	}

	switch core.MediaTypeFor(format) {
	case "image":
		return d.scrubImage(job, path)
	case "audio":
		return d.scrubAudio(job, path)
	default:
		job.Debug("unsupported format, skipping", "format", format)
		return nil
	}
}

func (d *Daemon) scrubImage(job *slog.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		d.countFailure()
		return err
	}

	analysis := scrub.Analyze(data)
	if !analysis.HasSensitiveData {
		job.Debug("no sensitive metadata, skipping")
		return nil
	}
	job.Info("sensitive metadata found", "risk", analysis.Risk.String())

	res := scrub.Strip(data)
	if !res.Clean {
		d.countFailure()
		job.Error("scrub failed, original left untouched", "error", res.Err)
		return res.Err
	}
	if bytes.Equal(res.Data, data) {
		return nil
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, res.Data, mode); err != nil {
		d.countFailure()
		return err
	}
	d.countSuccess()
	job.Info("scrubbed in place", "summary", res.Analysis.Summary)
	return nil
}

func (d *Daemon) scrubAudio(job *slog.Logger, path string) error {
	report, err := audio.Inspect(path)
	if err != nil {
		d.countFailure()
		return err
	}
	if !report.Sensitive {
		job.Debug("no identifying tags, skipping")
		return nil
	}
	if err := audio.StripFile(path, path); err != nil {
		d.countFailure()
		job.Error("tag removal failed", "error", err)
		return err
	}
	d.countSuccess()
	job.Info("tags removed", "fields", len(report.Fields))
	return nil
}

func (d *Daemon) countSuccess() {
	d.mu.Lock()
	d.processed++
	d.mu.Unlock()
}

func (d *Daemon) countFailure() {
	d.mu.Lock()
	d.failed++
	d.mu.Unlock()
}
