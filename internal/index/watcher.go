package index

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tessera/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the documents directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Rename events trigger a debounced reconciliation pass that removes stale
// index entries and indexes documents that appeared under a new name.
func Watch(ctx context.Context, db DocumentIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind, id string) {
		if cb != nil {
			cb(kind, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			id, isDoc := storage.IDFromPath(ev.Name)
			if !isDoc {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(id)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", readErr.Error()))
					continue
				}
				cs, _ := db.GetChecksum(id)
				updated := time.Now()
				if info, statErr := os.Stat(ev.Name); statErr == nil {
					updated = info.ModTime()
				}
				if idxErr := Put(db, id, data, updated); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("id", id), slog.String("error", idxErr.Error()))
					continue
				}
				newCS, _ := db.GetChecksum(id)
				if cs == newCS {
					// Our own write, already indexed.
					continue
				}
				kind := "updated"
				if cs == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("id", id), slog.String("op", kind))
				notify(kind, id)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteDocument(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("id", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("id", id))
				notify("deleted", id)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old name only; the new name arrives
				// as a separate Create.
				if delErr := db.DeleteDocument(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("id", id), slog.String("error", delErr.Error()))
				} else {
					notify("deleted", id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file and indexes files whose
// checksum differs from the index.
func reconcile(db DocumentIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.ID] = m.Checksum
	}

	for id := range checksums {
		if _, ok := disk[id]; ok {
			continue
		}
		if delErr := db.DeleteDocument(id); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("id", id))
			if cb != nil {
				cb("deleted", id)
			}
		}
	}

	for _, m := range metas {
		if checksums[m.ID] == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.ID)
		if readErr != nil {
			continue
		}
		if idxErr := Put(db, m.ID, data, m.UpdatedAt); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("id", m.ID))
			if cb != nil {
				cb("created", m.ID)
			}
		}
	}
}
