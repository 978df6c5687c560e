package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestChangeEventGone(t *testing.T) {
	assert.True(t, ChangeEvent{Type: EventTypeDeleted}.Gone())
	assert.True(t, ChangeEvent{Type: EventTypeRenamed}.Gone())
	assert.False(t, ChangeEvent{Type: EventTypeCreated}.Gone())
	assert.False(t, ChangeEvent{Type: EventTypeModified}.Gone())
}

func TestFilters(t *testing.T) {
	tests := map[string]struct {
		filter   FileFilter
		path     string
		expected bool
	}{
		"extension match":         {ExtensionFilter(".wxml"), "pages/index.wxml", true},
		"extension case":          {ExtensionFilter(".wxml"), "pages/INDEX.WXML", true},
		"extension mismatch":      {ExtensionFilter(".wxml"), "pages/index.jsx", false},
		"extension none":          {ExtensionFilter(".wxml"), "Makefile", false},
		"test file":               {NoTestFilter, "pages/index_test.wxml", false},
		"regular file":            {NoTestFilter, "pages/index.wxml", true},
		"test in name":            {NoTestFilter, "pages/testing.wxml", true},
		"vendor dir":              {NoVendorFilter, "vendor/pkg/a.wxml", false},
		"nested vendor":           {NoVendorFilter, "/src/vendor/a.wxml", false},
		"node modules":            {NoVendorFilter, "web/node_modules/x/a.wxml", false},
		"vendor prefix in name":   {NoVendorFilter, "vendored/a.wxml", true},
		"git dir":                 {NoGitFilter, ".git/HEAD", false},
		"nested git":              {NoGitFilter, "/repo/.git/objects/ab", false},
		"svn dir":                 {NoGitFilter, "a/.svn/entries", false},
		"github dir":              {NoGitFilter, ".github/workflows/ci.wxml", true},
		"hidden swap file":        {NoHiddenFilter, "pages/.index.wxml.swp", false},
		"visible file":            {NoHiddenFilter, "pages/index.wxml", true},
		"hidden dir visible file": {NoHiddenFilter, ".config/index.wxml", true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter(tt.path))
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(ExtensionFilter(".wxml"))
	watcher.AddFilter(NoGitFilter)
	assert.Len(t, watcher.filters, 2)
	assert.True(t, watcher.accept("a.wxml"))
	assert.False(t, watcher.accept(".git/a.wxml"))
	assert.False(t, watcher.accept("a.jsx"))
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	assert.NoError(t, watcher.AddPath(dir))
	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, watcher.AddPath("../outside"))
	assert.Error(t, watcher.AddPath(""))
}

func TestAddRecursiveSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"pages/detail", ".git/objects", "node_modules/pkg", "components"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, watcher.AddRecursive(root))

	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "components"),
		filepath.Join(root, "pages"),
		filepath.Join(root, "pages", "detail"),
	}, watcher.WatchList())
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.True(t, d.Add(ChangeEvent{Type: EventTypeCreated, Path: "b.wxml"}))
	require.True(t, d.Add(ChangeEvent{Type: EventTypeCreated, Path: "a.wxml"}))
	require.True(t, d.Add(ChangeEvent{Type: EventTypeModified, Path: "b.wxml"}))

	select {
	case batch := <-d.Batches():
		require.Len(t, batch, 2)
		assert.Equal(t, "a.wxml", batch[0].Path)
		assert.Equal(t, "b.wxml", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type, "the last event per path wins")
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}

	select {
	case batch := <-d.Batches():
		t.Fatalf("unexpected second batch: %v", batch)
	case <-time.After(100 * time.Millisecond):
	}

	require.True(t, d.Add(ChangeEvent{Type: EventTypeDeleted, Path: "a.wxml"}))
	select {
	case batch := <-d.Batches():
		require.Len(t, batch, 1)
		assert.True(t, batch[0].Gone())
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush a later event")
	}
}

func TestDebouncerQueueFull(t *testing.T) {
	d := NewDebouncer(time.Millisecond)

	for i := 0; i < queueSize; i++ {
		require.True(t, d.Add(ChangeEvent{Path: fmt.Sprintf("%d.wxml", i)}))
	}
	assert.False(t, d.Add(ChangeEvent{Path: "overflow.wxml"}))
}

func TestDebouncerStopsOnCancel(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	d.Add(ChangeEvent{Path: "a.wxml"})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEventTypeFromOp(t *testing.T) {
	tests := map[string]struct {
		op   fsnotify.Op
		want EventType
	}{
		"create":       {fsnotify.Create, EventTypeCreated},
		"write":        {fsnotify.Write, EventTypeModified},
		"chmod":        {fsnotify.Chmod, EventTypeModified},
		"remove":       {fsnotify.Remove, EventTypeDeleted},
		"rename":       {fsnotify.Rename, EventTypeRenamed},
		"create write": {fsnotify.Create | fsnotify.Write, EventTypeCreated},
		"write remove": {fsnotify.Write | fsnotify.Remove, EventTypeDeleted},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, eventType(tt.op))
		})
	}
}

func TestFileWatcherReportsChanges(t *testing.T) {
	root := t.TempDir()

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(ExtensionFilter(".wxml"))
	require.NoError(t, watcher.AddRecursive(root))

	var mu sync.Mutex
	seen := map[string]EventType{}
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			seen[e.Path] = e.Type
		}
		return nil
	})
	watcher.AddHandler(func([]ChangeEvent) error {
		return fmt.Errorf("handler errors are logged, not fatal")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	page := filepath.Join(root, "index.wxml")
	require.NoError(t, os.WriteFile(page, []byte("<view/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, ok := seen[page]
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	_, txt := seen[filepath.Join(root, "notes.txt")]
	mu.Unlock()
	assert.False(t, txt, "filtered files are not reported")
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()

	watcher, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	require.NoError(t, watcher.AddRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	sub := filepath.Join(root, "pages")
	require.NoError(t, os.Mkdir(sub, 0o755))

	assert.Eventually(t, func() bool {
		for _, path := range watcher.WatchList() {
			if path == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func BenchmarkFilters(b *testing.B) {
	filters := []FileFilter{ExtensionFilter(".wxml"), NoTestFilter, NoVendorFilter, NoGitFilter}
	paths := []string{"pages/index.wxml", "vendor/a.wxml", ".git/HEAD", "a/b/c/d_test.wxml"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range paths {
			for _, f := range filters {
				if !f(path) {
					break
				}
			}
		}
	}
}
