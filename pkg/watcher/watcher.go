package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/graph-explorer/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeWrite covers writes, creates and atomic rename-into-place
	ChangeTypeWrite ChangeType = iota
	// ChangeTypeRemove means the snapshot file is gone
	ChangeTypeRemove
)

func (t ChangeType) String() string {
	if t == ChangeTypeRemove {
		return "remove"
	}
	return "write"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches a snapshot file. The parent directory is watched
// rather than the file itself, so editors and producers that replace the
// file by renaming a temporary one are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a new file system watcher for a snapshot file
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching. Events stop and the channel closes when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		fw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("watching snapshot", "path", fw.path)
	go fw.processEvents(ctx)
	return nil
}

// classify maps an fsnotify event on the snapshot file to a change type
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if filepath.Clean(event.Name) != fw.path {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return ChangeTypeWrite, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeTypeRemove, true
	default:
		return 0, false
	}
}

// processEvents batches events by type so a burst of writes is one event
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	var writes, removes []string

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	send := func(event ChangeEvent) bool {
		select {
		case fw.events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	flush := func() bool {
		// Removes go first so a remove followed by a create ends with a reload
		if len(removes) > 0 {
			if !send(ChangeEvent{Type: ChangeTypeRemove, Paths: removes, Timestamp: time.Now()}) {
				return false
			}
			removes = nil
		}
		if len(writes) > 0 {
			if !send(ChangeEvent{Type: ChangeTypeWrite, Paths: writes, Timestamp: time.Now()}) {
				return false
			}
			writes = nil
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			changeType, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("snapshot file event", "op", event.Op.String(), "path", event.Name)
			if changeType == ChangeTypeRemove {
				removes = append(removes, event.Name)
			} else {
				writes = append(writes, event.Name)
			}
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Path returns the absolute path being watched
func (fw *FileWatcher) Path() string {
	return fw.path
}
