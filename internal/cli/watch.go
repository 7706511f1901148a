package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/RyanBlaney/sonido-delivery/delivery"
	"github.com/RyanBlaney/sonido-delivery/logging"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// ReportSuffix replaces the audio extension in the written report name.
const ReportSuffix = ".delivery.json"

// Watcher analyses audio files created in a directory and writes a
// <name>.delivery.json report next to each one. Files are analysed once
// they have been quiet for the settle period, one at a time.
type Watcher struct {
	engine *delivery.Engine
	source transcript.Source
	logger logging.Logger
	exts   map[string]bool
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}

	// Processed, when set, is called after each file with the report path
	// or the error. Used by tests.
	Processed func(audioPath, reportPath string, err error)
}

// NewWatcher creates a watcher. Extensions are matched case-insensitively
// and may be given with or without the leading dot.
func NewWatcher(engine *delivery.Engine, source transcript.Source, logger logging.Logger, extensions []string, settle time.Duration) *Watcher {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Watcher{
		engine:  engine,
		source:  source,
		logger:  logger.WithFields(logging.Component("watcher")),
		exts:    exts,
		settle:  settle,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 16),
		done:    make(chan struct{}),
	}
}

// IsAudio reports whether path has one of the watched extensions.
func (w *Watcher) IsAudio(path string) bool {
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// ReportPath returns where the report for audioPath is written.
func ReportPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ReportSuffix
}

// Run watches dir until ctx is done. It returns nil on cancellation. A
// Watcher runs once.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.logger.Error(err, "Failed to close watcher")
		}
	}()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("Watching for recordings", logging.Fields{"dir": dir})

	defer close(w.done)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.IsAudio(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case path := <-w.ready:
			w.process(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err, "File watcher error")
		}
	}
}

// schedule (re)starts the settle timer for path so that a file still being
// written is analysed only after its last write.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// process analyses one file and writes its report.
func (w *Watcher) process(ctx context.Context, audioPath string) {
	ctx = logging.ContextWithFields(ctx, logging.Fields{logging.KeyFile: filepath.Base(audioPath)})
	logger := w.logger.WithContext(ctx)

	reportPath, err := w.Process(ctx, audioPath)
	if err != nil {
		logger.Error(err, "Analysis failed")
	} else {
		logger.Info("Report written", logging.Fields{"report": reportPath})
	}
	if w.Processed != nil {
		w.Processed(audioPath, reportPath, err)
	}
}

// Process analyses audioPath and writes the JSON report beside it.
func (w *Watcher) Process(ctx context.Context, audioPath string) (string, error) {
	report, err := analyzeFile(ctx, w.engine, w.source, audioPath)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	reportPath := ReportPath(audioPath)
	tmp := reportPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, reportPath); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return reportPath, nil
}
