package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/persona/internal/dispatcher/hook"
)

// Watcher errors.
var (
	ErrWatcherClosed   = errors.New("catalog: watcher is closed")
	ErrAlreadyWatching = errors.New("catalog: path is already being watched")
)

// Op is the kind of change applied to a catalog.
type Op uint8

const (
	// OpLoad indicates a script was compiled and its role registered.
	OpLoad Op = iota + 1
	// OpRemove indicates a script disappeared and its role was dropped.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpLoad:
		return "LOAD"
	case OpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event reports one applied change. Err is set when a script failed to
// compile; the previous version of its role stays registered.
type Event struct {
	Path      string
	Role      string
	Op        Op
	Err       error
	Timestamp time.Time
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a path must stay quiet before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithBufferSize sets the event channel capacity.
func WithBufferSize(n int) WatcherOption {
	return func(w *Watcher) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// WithWatchLogger logs every applied change.
func WithWatchLogger(l hook.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// Watcher keeps a Scripts catalog in sync with script directories.
// Rapid changes to one file are coalesced into a single reload.
type Watcher struct {
	mu sync.Mutex

	fsw     *fsnotify.Watcher
	scripts *Scripts
	logger  hook.Logger

	delay   time.Duration
	bufSize int
	dirs    map[string]bool
	pending map[string]*time.Timer

	events   chan Event
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewWatcher creates a watcher feeding scripts. Call Watch to add
// directories and Close to stop.
func NewWatcher(scripts *Scripts, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		scripts: scripts,
		delay:   100 * time.Millisecond,
		bufSize: 100,
		dirs:    make(map[string]bool),
		pending: make(map[string]*time.Timer),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	w.events = make(chan Event, w.bufSize)

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch starts watching a script directory.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if w.dirs[abs] {
		return ErrAlreadyWatching
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("catalog: %s is not a directory", dir)
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.dirs[abs] = true
	return nil
}

// Events returns the channel of applied changes. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops watching and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	err := w.fsw.Close()

	// Serialize with in-flight timer callbacks before closing events.
	w.mu.Lock()
	close(w.events)
	w.mu.Unlock()
	return err
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !IsScript(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
				ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				w.schedule(ev.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Error("script watch error", "error", err)
			}
		}
	}
}

// schedule debounces a reload of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.delay)
		return
	}
	w.pending[path] = time.AfterFunc(w.delay, func() {
		w.apply(path)
	})
}

// apply reloads or removes path depending on whether it still exists.
func (w *Watcher) apply(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	ev := Event{Path: path, Timestamp: time.Now()}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		name, ok := w.scripts.Remove(path)
		if !ok {
			return
		}
		ev.Op, ev.Role = OpRemove, name
	} else {
		ev.Op = OpLoad
		ev.Role, ev.Err = w.scripts.Load(path)
	}

	if w.logger != nil {
		if ev.Err != nil {
			w.logger.Error("script reload failed", "path", path, "error", ev.Err)
		} else {
			w.logger.Info("script reloaded", "path", path, "role", ev.Role, "op", ev.Op.String())
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		// Channel full, drop event
	}
}
