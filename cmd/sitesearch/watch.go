package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/log"
)

// watchSettle is how long the content directory must be quiet before a
// rebuild starts. Editors often write a file in several steps.
var watchSettle = 500 * time.Millisecond

// watchContent calls rebuild after changes to any source file in dir
// until ctx is done. Rebuild failures are logged, not returned.
func watchContent(ctx context.Context, dir string, files indexing.SourceFiles, rebuild func() error) error {
	logger := log.ForService("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close watcher: %v", err)
		}
	}()

	// Watch the directory rather than the files so atomic renames and
	// newly created sources are seen.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	watched := make(map[string]bool)
	for _, t := range indexing.DocTypes {
		watched[filepath.Base(files.For(t))] = true
	}
	logger.Infof("Watching %s for changes (Ctrl+C to stop)", dir)

	// A rebuild can outlast the settle delay; the next one waits for it
	// since both write the same temporary artifact paths.
	rebuild = oneAtATime(rebuild)

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		wg.Add(1)
		timer = time.AfterFunc(watchSettle, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := rebuild(); err != nil {
				logger.Errorf("rebuild failed: %v", err)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Debugf("%s: %s", event.Name, event.Op)
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watcher error: %v", err)
		}
	}
}

// oneAtATime wraps f so concurrent calls run one after another.
func oneAtATime(f func() error) func() error {
	var mu sync.Mutex
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return f()
	}
}
