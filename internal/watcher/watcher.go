package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mgpai22/verbatim/internal/logging"
)

// Handler is called once per burst of changes to the watched file.
type Handler func(ctx context.Context, path string) error

// DefaultDebounce collapses the several events editors emit per save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher follows a single file. It watches the parent directory so that
// editors replacing the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	handler  Handler
	logger   *logging.Logger
	watcher  *fsnotify.Watcher
}

func New(path string, debounce time.Duration, handler Handler, logger *logging.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher needs a handler")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Nop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		handler:  handler,
		logger:   logger.With("file", abs),
		watcher:  fw,
	}, nil
}

func (w *Watcher) Path() string {
	return w.path
}

// Start blocks until ctx is done or the underlying watcher fails. Handler
// errors are logged and do not stop the watch.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Infow("watching for changes", "debounce", w.debounce)

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
			w.logger.Debugw("watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debugw("file event", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.handler(ctx, w.path); err != nil {
				w.logger.Errorw("handler failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Errorw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
