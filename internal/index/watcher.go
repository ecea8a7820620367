package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/thoughtmap/internal/checksum"
	"github.com/starford/thoughtmap/internal/storage"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// reconcileDelay debounces the vault rescan that follows a rename.
const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

// watcher keeps the index in step with thought documents changed outside the
// service. Documents whose checksum already matches the index were written by
// the service itself and are not reported again; the same holds for removals
// of documents the index no longer has.
type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch follows the vault with fsnotify until ctx is cancelled, reindexing
// changed documents and calling cb (if non-nil) for each index change.
// Directories created later are followed too. A rename is reported as a
// removal of the old path; the new path arrives as its own create, and a
// debounced rescan catches anything fsnotify missed.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := follow(fw, vaultRoot); err != nil {
		return err
	}
	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var rescan *time.Timer
	var rescanCh <-chan time.Time
	defer func() {
		if rescan != nil {
			rescan.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			w.reconcile()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && isDir(ev.Name) {
				if err := follow(fw, ev.Name); err != nil {
					logger.Warn("watcher: follow dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
				}
				w.indexDir(ev.Name)
				continue
			}
			if !w.handle(ev) {
				continue
			}
			if rescan == nil {
				rescan = time.NewTimer(reconcileDelay)
				rescanCh = rescan.C
			} else {
				rescan.Reset(reconcileDelay)
			}
		}
	}
}

// handle applies one file event and reports whether a rescan is due.
func (w *watcher) handle(ev fsnotify.Event) bool {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return false
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		w.refresh(rel, kind)
	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)
	case ev.Op&fsnotify.Rename != 0:
		w.remove(rel)
		return true
	}
	return false
}

// rel maps an absolute event path to a vault-relative document path.
func (w *watcher) rel(abs string) (string, bool) {
	if !storage.IsDocument(abs) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// refresh reindexes rel when its content differs from the index.
func (w *watcher) refresh(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if cs, _ := w.db.GetChecksum(rel); cs == checksum.Sum(data) {
		return
	}
	if err := IndexFile(w.db, rel, data, time.Now().UTC()); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

// remove drops rel from the index if it is still there.
func (w *watcher) remove(rel string) {
	if cs, _ := w.db.GetChecksum(rel); cs == "" {
		return
	}
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(EventDeleted, rel)
}

// reconcile compares the whole vault with the index in two batch lookups.
func (w *watcher) reconcile() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		if indexed[m.Path] != m.Checksum {
			w.refresh(m.Path, EventCreated)
		}
	}
	for p := range indexed {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
}

// indexDir picks up documents that were already inside a new directory when
// it started being followed.
func (w *watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(p); ok {
			w.refresh(rel, EventCreated)
		}
		return nil
	})
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// follow adds root and every directory below it to fw.
func follow(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(p)
		}
		return nil
	})
}
