// Package watch rebuilds a site whenever its sources change and, optionally,
// on a cron schedule so date-stamped output such as sitemap lastmod stays
// current. Every rebuild is a complete build.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
)

// BuildFunc performs one complete build.
type BuildFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively. New subdirectories are picked up.
	Dirs []string
	// Debounce is the quiet period after the last change before a rebuild.
	Debounce time.Duration
	// Schedule is an optional cron expression (5 fields, or 6 with seconds).
	Schedule string
}

// Watcher drives rebuilds.
type Watcher struct {
	build  BuildFunc
	opts   Options
	status buildStatus
}

// New returns a Watcher calling build.
func New(build BuildFunc, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	return &Watcher{build: build, opts: opts}
}

// buildStatus tracks the outcome of the latest build.
type buildStatus struct {
	mu        sync.RWMutex
	lastError error
	builds    int
}

func (bs *buildStatus) record(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	bs.builds++
}

// Status returns the number of builds run so far and the error of the latest one.
func (w *Watcher) Status() (builds int, lastErr error) {
	w.status.mu.RLock()
	defer w.status.mu.RUnlock()
	return w.status.builds, w.status.lastError
}

// Run builds once, then rebuilds on change or schedule until ctx is done.
// Failed builds are logged and do not stop watching.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := w.setupFileWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	rebuildReq, trigger := newDebouncer(w.opts.Debounce)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildWorker(ctx, rebuildReq)
	}()

	if w.opts.Schedule != "" {
		sched, err := w.startScheduler(rebuildReq)
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	requestRebuild(rebuildReq)
	slog.Info("Watching for changes", slog.Any("dirs", w.opts.Dirs), slog.Duration("debounce", w.opts.Debounce))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watch")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) setupFileWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create file watcher").Build()
	}
	for _, dir := range w.opts.Dirs {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			_ = watcher.Close()
			return nil, ferrors.ValidationError("watched directory not found").WithContext("path", dir).Build()
		}
		addDirsRecursive(watcher, dir)
	}
	return watcher, nil
}

func (w *Watcher) startScheduler(rebuildReq chan struct{}) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	withSeconds := len(strings.Fields(w.opts.Schedule)) == 6
	_, err = s.NewJob(
		gocron.CronJob(w.opts.Schedule, withSeconds),
		gocron.NewTask(func() {
			slog.Info("Scheduled rebuild")
			requestRebuild(rebuildReq)
		}),
		gocron.WithName("scheduled-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid watch schedule").
			WithContext("schedule", w.opts.Schedule).Build()
	}
	s.Start()
	return s, nil
}

// newDebouncer returns the rebuild request channel and a trigger that
// sends one request after d has passed without further triggers.
func newDebouncer(d time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() { requestRebuild(rebuildReq) })
	}
	return rebuildReq, trigger
}

// requestRebuild queues a rebuild unless one is already queued.
func requestRebuild(rebuildReq chan struct{}) {
	select {
	case rebuildReq <- struct{}{}:
	default:
	}
}

// rebuildWorker runs builds one at a time. Requests arriving during a build
// collapse into the single queued request.
func (w *Watcher) rebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			start := time.Now()
			err := w.build(ctx)
			w.status.record(err)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("Rebuild failed", logfields.Error(err))
				continue
			}
			slog.Info("Rebuild finished", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		}
	}
}

// handleFileEvent adds new directories to the watch and triggers a rebuild
// for relevant changes.
func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(watcher, ev.Name)
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldIgnoreEvent(path) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for hidden, editor temp and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913":
		return true
	}
	return false
}
