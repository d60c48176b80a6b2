package gen

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event
// before regenerating.
const DefaultDebounce = 200 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Dirs are watched recursively in addition to the directories of the
	// files the previous run depended on.
	Dirs []string

	// Debounce overrides DefaultDebounce.
	Debounce time.Duration

	// OnResult is called after every run, including the first and those
	// that failed or were skipped as unchanged.
	OnResult func(*Result, error)
}

// Watch runs the generator, then reruns it whenever a .go or .yaml file
// changes in a watched directory. Each rerun skips writing if its input
// key matches the last successful run, so output written into a watched
// directory does not trigger a loop. Watch returns when ctx is done.
func (g *Generator) Watch(ctx context.Context, opts WatchOptions) error {
	logger := g.log()
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	add := func(dir string) {
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			logger.WarnContext(ctx, "watch failed", slog.String("dir", dir), slog.Any("error", err))
			return
		}
		watched[dir] = true
	}
	for _, root := range opts.Dirs {
		dirs, err := walkDirs(root)
		if err != nil {
			logger.WarnContext(ctx, "watch failed", slog.String("dir", root), slog.Any("error", err))
		}
		for _, dir := range dirs {
			add(dir)
		}
	}

	run := func() {
		res, err := g.Run(ctx)
		if err == nil {
			g.skipKey = res.Key
			for _, f := range res.Sources {
				add(filepath.Dir(f))
			}
		}
		if opts.OnResult != nil {
			opts.OnResult(res, err)
		}
		if err != nil {
			logger.ErrorContext(ctx, "generation failed", slog.Any("error", err))
		}
	}
	run()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watcher error", slog.Any("error", err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.DebugContext(ctx, "source changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case <-timerChan(timer):
			timer = nil
			run()
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch filepath.Ext(base) {
	case ".go", ".yaml", ".yml":
		return true
	}
	return false
}

// walkDirs returns root and its subdirectories, skipping hidden
// directories, vendor and testdata. Only an unreadable root is an error.
func walkDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
