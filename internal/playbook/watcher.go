package playbook

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"luna/internal/logging"
)

// Watcher reloads a library when definition files in its directory change.
// Reloads are debounced because editors commonly fire several events per
// save.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	lib      *Library
	dir      string
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the given library and directory.
func NewWatcher(lib *Library, dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		lib:      lib,
		dir:      dir,
		debounce: 300 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Close or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	log := logging.Get(logging.CategoryPlaybook)
	if err := w.watcher.Add(w.dir); err != nil {
		// Directory may not exist yet; the library keeps its builtins.
		log.Warnw("playbook watch failed", "dir", w.dir, "error", err)
	} else {
		log.Debugw("watching playbook directory", "dir", w.dir)
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryPlaybook)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			if err := w.lib.LoadDir(w.dir); err != nil {
				log.Warnw("playbook reload failed", "dir", w.dir, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("playbook watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
