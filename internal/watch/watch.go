// Package watch uploads recordings dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"meetnote/internal/logging"
	"meetnote/internal/service"
)

// UploadedDir is the subdirectory successful uploads are moved into.
const UploadedDir = "uploaded"

// Uploader runs the upload flow for one file.
type Uploader interface {
	UploadAndProcess(ctx context.Context, localPath string) (*service.UploadResult, error)
}

// ResultFunc is told about every file the watcher handled.
type ResultFunc func(path string, res *service.UploadResult, err error)

// Watcher uploads new .m4a files one at a time. A file is picked up once it has seen no
// write for the settle period, so recordings still being copied in are not uploaded early.
type Watcher struct {
	dir      string
	uploader Uploader
	settle   time.Duration
	onResult ResultFunc
	log      *slog.Logger

	pending map[string]time.Time
}

func New(dir string, uploader Uploader, settle time.Duration, onResult ResultFunc, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	if onResult == nil {
		onResult = func(string, *service.UploadResult, error) {}
	}
	return &Watcher{
		dir:      dir,
		uploader: uploader,
		settle:   settle,
		onResult: onResult,
		log:      log.With(slog.String("component", "watch"), slog.String("dir", dir)),
		pending:  make(map[string]time.Time),
	}
}

// Run blocks until ctx is done or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.InfoContext(ctx, "watch_started")

	tick := time.NewTicker(w.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isRecording(event) {
				w.pending[event.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.ErrorContext(ctx, "watch_error", logging.Err(err))

		case now := <-tick.C:
			w.flush(ctx, now)
		}
	}
}

func isRecording(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(e.Name), ".m4a")
}

// flush uploads every settled file, sequentially.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, last := range w.pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(w.pending, path)
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, path)
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	res, err := w.uploader.UploadAndProcess(ctx, path)
	if err != nil {
		w.log.ErrorContext(ctx, "watch_upload_failed", slog.String("file", path), logging.Err(err))
		w.onResult(path, nil, err)
		return
	}

	w.log.InfoContext(ctx, "watch_uploaded",
		slog.String("file", path),
		slog.String("meeting_id", res.MeetingID),
		slog.Bool("partial", res.Partial()),
	)
	if err := w.archive(path); err != nil {
		w.log.WarnContext(ctx, "watch_archive_failed", slog.String("file", path), logging.Err(err))
	}
	w.onResult(path, res, nil)
}

func (w *Watcher) archive(path string) error {
	dst := filepath.Join(w.dir, UploadedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dst, filepath.Base(path)))
}
