// Package watch symbolicates crash reports as they appear in a folder
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a report must stay unmodified before it is processed
const DefaultSettle = 500 * time.Millisecond

// Handler processes one report
type Handler func(ctx context.Context, report string) error

// Watcher runs Handler once for every new or changed report under Dir
type Watcher struct {
	Dir     string
	Match   func(path string) bool
	Handler Handler
	Cache   SeenCache
	Settle  time.Duration
	// OnError reports a report that failed (logs it when nil)
	OnError func(report string, err error)
}

func (w *Watcher) failed(report string, err error) {
	if w.OnError != nil {
		w.OnError(report, err)
		return
	}
	log.WithError(err).WithField("report", report).Error("failed to symbolicate")
}

func (w *Watcher) settle() time.Duration {
	if w.Settle <= 0 {
		return DefaultSettle
	}
	return w.Settle
}

func (w *Watcher) match(path string) bool {
	return w.Match == nil || w.Match(path)
}

// Process runs the handler on path unless this version of it was already handled.
// A handler error leaves the report unmarked so a later change retries it.
func (w *Watcher) Process(ctx context.Context, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !fi.Mode().IsRegular() || !w.match(path) {
		return nil
	}

	stamp := Stamp(fi)
	if w.Cache != nil && w.Cache.Has(path, stamp) {
		log.WithField("report", path).Debug("already symbolicated")
		return nil
	}

	if err := w.Handler(ctx, path); err != nil {
		return err
	}

	if w.Cache != nil {
		w.Cache.Add(path, stamp)
	}
	return nil
}

// Scan processes the reports already present under dir
func (w *Watcher) Scan(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Errorf("failed to walk path: %v", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !w.match(path) {
			return nil
		}
		if err := w.Process(ctx, path); err != nil {
			w.failed(path, err)
		}
		return nil
	})
}

func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

// Watch scans Dir and then handles reports as they are written until ctx is done
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addTree(watcher, w.Dir); err != nil {
		return err
	}

	log.WithField("dir", w.Dir).Info("Watching for crash reports")

	if err := w.Scan(ctx, w.Dir); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						log.WithError(err).Error("failed to watch new folder")
					}
					if err := w.Scan(ctx, event.Name); err != nil && ctx.Err() != nil {
						return nil
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.match(event.Name) {
				continue
			}
			name := event.Name
			if t, ok := timers[name]; ok {
				t.Reset(w.settle())
				continue
			}
			timers[name] = time.AfterFunc(w.settle(), func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
		case name := <-ready:
			delete(timers, name)
			if err := w.Process(ctx, name); err != nil {
				w.failed(name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("watcher error")
		}
	}
}
