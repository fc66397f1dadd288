package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/site/src/index.html", false},
		{"/site/src/img/hero.jpg", false},
		{"/site/src/.index.html.swp", true},
		{"/site/src/index.html~", true},
		{"/site/src/#index.html#", true},
		{"/site/src/.DS_Store", true},
		{"/site/src/4913", true},
		{"/site/src/notes.swx", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIgnoreEvent(tt.path))
		})
	}
}

func TestDebouncerCoalescesTriggers(t *testing.T) {
	req, trigger := newDebouncer(30 * time.Millisecond)
	for range 5 {
		trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-req:
	case <-time.After(time.Second):
		t.Fatal("expected a rebuild request")
	}
	select {
	case <-req:
		t.Fatal("expected a single rebuild request")
	case <-time.After(100 * time.Millisecond):
	}
}

// waitForBuilds polls until the build counter reaches n.
func waitForBuilds(t *testing.T, builds *atomic.Int32, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return builds.Load() >= n }, 5*time.Second, 10*time.Millisecond)
}

func TestRun_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("v1"), 0o644))

	var builds atomic.Int32
	w := New(func(context.Context) error {
		builds.Add(1)
		return nil
	}, Options{Dirs: []string{dir}, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForBuilds(t, &builds, 1)

	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitForBuilds(t, &builds, 2)

	// give the watcher time to register the new directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "post.html"), []byte("hello"), 0o644))
	waitForBuilds(t, &builds, 3)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	n, lastErr := w.Status()
	assert.GreaterOrEqual(t, n, 3)
	assert.NoError(t, lastErr)
}

func TestRun_FailedBuildKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	var builds atomic.Int32
	w := New(func(context.Context) error {
		builds.Add(1)
		return errors.New("cyclic inclusion")
	}, Options{Dirs: []string{dir}, Debounce: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForBuilds(t, &builds, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o644))
	waitForBuilds(t, &builds, 2)

	cancel()
	require.NoError(t, <-done)
	_, lastErr := w.Status()
	assert.EqualError(t, lastErr, "cyclic inclusion")
}

func TestRun_ScheduledRebuild(t *testing.T) {
	var builds atomic.Int32
	w := New(func(context.Context) error {
		builds.Add(1)
		return nil
	}, Options{Dirs: []string{t.TempDir()}, Schedule: "* * * * * *"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitForBuilds(t, &builds, 2)
	cancel()
	require.NoError(t, <-done)
}

func TestRun_Errors(t *testing.T) {
	noop := func(context.Context) error { return nil }

	err := New(noop, Options{Dirs: []string{filepath.Join(t.TempDir(), "missing")}}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	err = New(noop, Options{Dirs: []string{t.TempDir()}, Schedule: "not a cron"}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}
