// Package watcher reports debounced batches of file system changes under a
// project root. The dev server uses it to recompile component templates and
// reload the manifest while the page stays open.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/unobtrusive/internal/errors"
	"github.com/conneroisu/unobtrusive/internal/logging"
)

// DefaultDebounce groups editor save bursts into one batch.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches directories and hands debounced change batches to its
// handlers.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	root      string
	logger    logging.Logger

	mutex    sync.RWMutex
	filters  []FileFilter
	handlers []ChangeHandler
}

// ChangeEvent is one changed file in a batch.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType is the kind of change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a path is of interest.
type FileFilter func(path string) bool

// ChangeHandler receives a batch of changes sorted by path.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithRoot restricts watched paths to dir. The default is the working
// directory.
func WithRoot(dir string) Option {
	return func(fw *FileWatcher) { fw.root = dir }
}

// WithLogger sets the logger for watcher and handler errors.
func WithLogger(l logging.Logger) Option {
	return func(fw *FileWatcher) { fw.logger = l }
}

// New creates a watcher whose batches close after debounce of quiet.
func New(debounce time.Duration, opts ...Option) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileRead, "create file watcher")
	}

	fw := &FileWatcher{
		watcher:   w,
		debouncer: newDebouncer(debounce),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(fw)
	}
	if fw.root == "" {
		if fw.root, err = os.Getwd(); err != nil {
			w.Close()
			return nil, errors.WrapIO(err, errors.ErrCodeFileRead, "resolve working directory")
		}
	}
	if fw.root, err = filepath.Abs(fw.root); err != nil {
		w.Close()
		return nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolve watch root").WithFile(fw.root)
	}
	fw.logger = fw.logger.WithComponent("watcher")
	return fw, nil
}

// AddFilter adds a filter. A path must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a batch handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single file or directory.
func (fw *FileWatcher) AddPath(path string) error {
	clean, err := fw.validatePath(path)
	if err != nil {
		return err
	}
	if err := fw.watcher.Add(clean); err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileRead, "watch path").WithFile(path)
	}
	return nil
}

// AddRecursive watches dir and every directory below it, skipping hidden,
// vendor and node_modules directories.
func (fw *FileWatcher) AddRecursive(dir string) error {
	clean, err := fw.validatePath(dir)
	if err != nil {
		return err
	}

	return filepath.WalkDir(clean, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.WrapIO(err, errors.ErrCodeFileRead, "walk watch directory").WithFile(path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != clean && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return errors.WrapIO(err, errors.ErrCodeFileRead, "watch directory").WithFile(path)
		}
		return nil
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

// validatePath resolves path and rejects anything outside the root.
func (fw *FileWatcher) validatePath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeInvalidPath, "resolve path").WithFile(path)
	}
	rel, err := filepath.Rel(fw.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ErrPathTraversal(path)
	}
	return abs, nil
}

// Start runs the watcher until ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.run(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
	return nil
}

// Stop releases the underlying watcher. Pending changes are dropped.
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "file watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if !fw.accept(event.Name) {
		return
	}

	change := ChangeEvent{Type: eventType(event.Op), Path: event.Name}
	if info, err := os.Stat(event.Name); err == nil {
		change.ModTime = info.ModTime()
		change.Size = info.Size()
	}
	fw.debouncer.add(change)
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.dispatch(ctx, events)
		}
	}
}

func (fw *FileWatcher) dispatch(ctx context.Context, events []ChangeEvent) {
	fw.mutex.RLock()
	handlers := append([]ChangeHandler(nil), fw.handlers...)
	fw.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, events); err != nil {
			fw.logger.Error(ctx, err, "change handler failed", "changes", len(events))
		}
	}
}

// debouncer collects changes until delay passes without a new one.
type debouncer struct {
	delay  time.Duration
	events chan ChangeEvent
	output chan []ChangeEvent

	mutex   sync.Mutex
	timer   *time.Timer
	pending map[string]ChangeEvent
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make(map[string]ChangeEvent),
	}
}

func (d *debouncer) add(e ChangeEvent) {
	select {
	case d.events <- e:
	default:
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case e := <-d.events:
			d.schedule(e)
		}
	}
}

func (d *debouncer) schedule(e ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// Last change to a path wins.
	d.pending[e.Path] = e
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}
	events := make([]ChangeEvent, 0, len(d.pending))
	for _, e := range d.pending {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	clear(d.pending)

	select {
	case d.output <- events:
	default:
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// TemplateFilter accepts component template files.
func TemplateFilter(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".html")
}

// ManifestFilter accepts YAML files, the manifest among them.
func ManifestFilter(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// NoHiddenFilter rejects dot files and editor swap files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}

// AnyOf accepts a path that passes at least one filter.
func AnyOf(filters ...FileFilter) FileFilter {
	return func(path string) bool {
		for _, f := range filters {
			if f(path) {
				return true
			}
		}
		return false
	}
}
