package palette

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatchpath/internal/image"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to the textures of a palette directory. Bursts of
// events are collapsed into one callback.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	debounce func(func())
	onChange func()
	logger   hclog.Logger
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = debounce.New(d) }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l hclog.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher watches root and its subdirectories. onChange runs on the
// debounce goroutine.
func NewWatcher(root string, onChange func(), opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		fs:       fw,
		debounce: debounce.New(DefaultDebounce),
		onChange: onChange,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.onChange == nil {
		w.onChange = func() {}
	}

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run dispatches events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch queue overflowed, reloading", "root", w.root)
				w.debounce(w.onChange)
				continue
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if err := w.addTree(ev.Name); err != nil {
			w.logger.Debug("failed to watch new directory", "path", ev.Name, "error", err)
		}
	}
	if !image.IsImageFile(ev.Name) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("palette changed", "path", ev.Name, "op", ev.Op.String())
	w.debounce(w.onChange)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
