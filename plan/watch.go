package plan

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// layoutReloadDelay is the quiet period after the last file event before the
// layout is reloaded. Editors often write a file in several steps.
const layoutReloadDelay = 100 * time.Millisecond

// LayoutWatcher reloads a layout file into a session whenever it changes on
// disk. A file that fails to load leaves the session as it was.
type LayoutWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	session *Session
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchLayout starts watching path. The containing directory is watched so
// files replaced by rename are still picked up.
func WatchLayout(path string, session *Session) (*LayoutWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving layout path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	lw := &LayoutWatcher{
		watcher: w,
		path:    abs,
		session: session,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go lw.run()
	logger().Infow("watching layout file", "path", abs)
	return lw, nil
}

// Close stops watching and waits for the watch loop to exit
func (w *LayoutWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *LayoutWatcher) run() {
	defer close(w.done)

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(layoutReloadDelay)
			} else {
				timer.Reset(layoutReloadDelay)
			}
			reload = timer.C
		case <-reload:
			reload = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger().Warnw("layout watcher error", "err", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *LayoutWatcher) reload() {
	layout, err := LoadLayout(w.path, w.session.Config())
	if err != nil {
		logger().Warnw("layout reload failed, keeping current layout", "path", w.path, "err", err)
		return
	}
	if layout.Room != nil {
		if err := w.session.SetConfig(*layout.Room); err != nil {
			logger().Warnw("layout room rejected", "path", w.path, "err", err)
			return
		}
	}
	if err := w.session.ReplaceFurniture(layout.Furniture); err != nil {
		logger().Warnw("layout furniture rejected", "path", w.path, "err", err)
		return
	}
	logger().Infow("layout reloaded", "path", w.path, "items", len(layout.Furniture))
}
