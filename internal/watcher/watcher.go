// Package watcher reports debounced batches of file changes below a set of
// watched directories.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/validation"
)

// queueSize bounds the events waiting for the debouncer.
const queueSize = 256

// ignoredDirs are never descended into.
var ignoredDirs = []string{".git", ".hg", ".svn", "node_modules", "vendor"}

// EventType is the kind of change seen for a path.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

var eventNames = [...]string{"created", "modified", "deleted", "renamed"}

func (e EventType) String() string {
	if e < EventTypeCreated || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// ChangeEvent is one file change. ModTime and Size are zero when the file
// no longer exists.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// Gone reports whether the path no longer exists after the event.
func (e ChangeEvent) Gone() bool {
	return e.Type == EventTypeDeleted || e.Type == EventTypeRenamed
}

// FileFilter reports whether a path should be reported.
type FileFilter func(path string) bool

// ChangeHandler receives each debounced batch. Errors are logged.
type ChangeHandler func(events []ChangeEvent) error

// Debouncer coalesces events per path. Once no event has arrived for the
// delay it emits the pending events as one batch sorted by path; the last
// event for a path wins.
type Debouncer struct {
	delay time.Duration
	in    chan ChangeEvent
	out   chan []ChangeEvent
}

// NewDebouncer creates a Debouncer. Call Run to start it.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
		in:    make(chan ChangeEvent, queueSize),
		out:   make(chan []ChangeEvent),
	}
}

// Add queues an event. It reports false when the queue is full.
func (d *Debouncer) Add(event ChangeEvent) bool {
	select {
	case d.in <- event:
		return true
	default:
		return false
	}
}

// Batches delivers the debounced batches.
func (d *Debouncer) Batches() <-chan []ChangeEvent {
	return d.out
}

// Run debounces until ctx is done. Pending events are discarded then.
func (d *Debouncer) Run(ctx context.Context) {
	pending := make(map[string]ChangeEvent)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event := <-d.in:
			pending[event.Path] = event
			if timer == nil {
				timer = time.NewTimer(d.delay)
			} else {
				timer.Reset(d.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			batch := sortedBatch(pending)
			clear(pending)
			select {
			case d.out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func sortedBatch(pending map[string]ChangeEvent) []ChangeEvent {
	batch := make([]ChangeEvent, 0, len(pending))
	for _, event := range pending {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

// FileWatcher turns fsnotify events below its directories into debounced
// ChangeEvent batches. Directories created while watching are added
// automatically.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    logging.Logger

	mu       sync.RWMutex
	filters  []FileFilter
	handlers []ChangeHandler
	cancel   context.CancelFunc
}

// NewFileWatcher creates a watcher that waits debounceDelay after the last
// change before reporting. A nil logger discards output.
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIO(err, errors.CodeReadFailed, "failed to create file watcher")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	return &FileWatcher{
		watcher:   w,
		debouncer: NewDebouncer(debounceDelay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter. A path is reported only if every filter accepts
// it.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mu.Lock()
	fw.filters = append(fw.filters, filter)
	fw.mu.Unlock()
}

// AddHandler adds a batch handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mu.Lock()
	fw.handlers = append(fw.handlers, handler)
	fw.mu.Unlock()
}

// AddPath watches a single directory.
func (fw *FileWatcher) AddPath(path string) error {
	if err := validation.ValidatePath(path); err != nil {
		return errors.WrapConfig(err, "invalid watch path")
	}
	if err := fw.watcher.Add(filepath.Clean(path)); err != nil {
		return errors.WrapIO(err, errors.CodeReadFailed, "failed to watch "+path)
	}
	return nil
}

// AddRecursive watches root and every directory below it except version
// control and dependency directories.
func (fw *FileWatcher) AddRecursive(root string) error {
	if err := validation.ValidatePath(root); err != nil {
		return errors.WrapConfig(err, "invalid watch root")
	}

	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case path != root && slices.Contains(ignoredDirs, d.Name()):
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return errors.WrapIO(err, errors.CodeReadFailed, "failed to watch "+path)
		}
		return nil
	})
}

// WatchList returns the watched directories, sorted.
func (fw *FileWatcher) WatchList() []string {
	list := fw.watcher.WatchList()
	sort.Strings(list)
	return list
}

// Start begins watching in the background and returns immediately.
// Watching ends when ctx is cancelled or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	fw.mu.Lock()
	fw.cancel = cancel
	fw.mu.Unlock()

	go fw.debouncer.Run(ctx)
	go fw.dispatch(ctx)
	go fw.receive(ctx)
	return nil
}

// Stop ends watching and releases the fsnotify watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.cancel != nil {
		fw.cancel()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

// receive translates fsnotify events and queues the accepted ones.
func (fw *FileWatcher) receive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "file watcher error")
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			change, ok := fw.translate(ctx, event)
			if ok && !fw.debouncer.Add(change) {
				fw.logger.Warn(ctx, nil, "dropping file event, queue full", "path", change.Path)
			}
		}
	}
}

// translate converts an fsnotify event. Directory events are consumed here:
// new directories are watched and nothing is reported for them.
func (fw *FileWatcher) translate(ctx context.Context, event fsnotify.Event) (ChangeEvent, bool) {
	info, statErr := os.Stat(event.Name)
	if statErr == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && !slices.Contains(ignoredDirs, filepath.Base(event.Name)) {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "failed to watch new directory", "path", event.Name)
			}
		}
		return ChangeEvent{}, false
	}
	if !fw.accept(event.Name) {
		return ChangeEvent{}, false
	}

	change := ChangeEvent{Type: eventType(event.Op), Path: event.Name}
	if statErr == nil {
		change.ModTime = info.ModTime()
		change.Size = info.Size()
	}
	return change, true
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

// dispatch hands each batch to every handler in order.
func (fw *FileWatcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-fw.debouncer.Batches():
			fw.mu.RLock()
			handlers := slices.Clone(fw.handlers)
			fw.mu.RUnlock()

			for _, handler := range handlers {
				if err := handler(batch); err != nil {
					fw.logger.Error(ctx, err, "change handler failed", "events", len(batch))
				}
			}
		}
	}
}

// eventType picks the most significant operation of a combined fsnotify op.
func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

// ExtensionFilter accepts files with the given extension, ignoring case.
func ExtensionFilter(ext string) FileFilter {
	return func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), ext)
	}
}

// NoTestFilter rejects *_test files of any extension.
func NoTestFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), "_test")
}

// NoVendorFilter rejects paths inside vendor or node_modules directories.
func NoVendorFilter(path string) bool {
	return !underAny(path, "vendor", "node_modules")
}

// NoGitFilter rejects paths inside version control directories.
func NoGitFilter(path string) bool {
	return !underAny(path, ".git", ".hg", ".svn")
}

// NoHiddenFilter rejects dotfiles such as editor swap files.
func NoHiddenFilter(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".")
}

// underAny reports whether a directory component of path is one of dirs.
func underAny(path string, dirs ...string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if slices.Contains(dirs, part) {
			return true
		}
	}
	return false
}
