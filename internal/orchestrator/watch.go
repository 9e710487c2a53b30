package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/convoindex/convoindex/internal/connector"
	"github.com/convoindex/convoindex/internal/logx"
)

// RunIncremental watches every detected connector's declared roots for
// changes and re-scans only the connector whose roots changed, advancing
// watch_state.json to the scan's start time after each successful
// ingest. Blocks until ctx is cancelled.
func (o *Orchestrator) RunIncremental(ctx context.Context, statePath string, debounce time.Duration) error {
	ws, err := LoadWatchState(statePath)
	if err != nil {
		return err
	}

	detected, err := o.detectAll(ctx)
	if err != nil {
		return err
	}
	if len(detected) == 0 {
		logx.Warn("watch mode: no connector sources detected")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	slugForPath, err := o.addWatchRoots(ctx, watcher, detected)
	if err != nil {
		return err
	}

	coalescer := newPathCoalescer(debounce, func(slug string, paths []string) {
		o.rescanSlug(ctx, detected, slug, paths, ws)
	})
	defer coalescer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if slug, ok := matchSlug(slugForPath, ev.Name); ok {
				coalescer.Add(slug, ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logx.Warn("fsnotify error: %v", err)
		}
	}
}

// addWatchRoots registers every detected connector's reported roots with
// watcher and returns a root-path -> slug map so an incoming event can
// be attributed back to its connector by longest-prefix match.
func (o *Orchestrator) addWatchRoots(ctx context.Context, watcher *fsnotify.Watcher, detected []connector.Connector) (map[string]string, error) {
	slugForPath := make(map[string]string)
	for _, c := range detected {
		res, err := c.Detect(ctx)
		if err != nil || !res.Present {
			continue
		}
		for _, root := range res.Roots {
			if err := watcher.Add(root); err != nil {
				logx.Debug("watch %s: cannot watch root %s: %v", c.Slug(), root, err)
				continue
			}
			slugForPath[root] = c.Slug()
		}
	}
	return slugForPath, nil
}

// matchSlug finds the slug whose registered root is the longest prefix
// of path.
func matchSlug(slugForPath map[string]string, path string) (string, bool) {
	var best string
	var bestLen int
	for root, slug := range slugForPath {
		if len(root) > bestLen && hasPrefix(path, root) {
			best = slug
			bestLen = len(root)
		}
	}
	return best, bestLen > 0
}

func hasPrefix(path, root string) bool {
	return len(path) >= len(root) && path[:len(root)] == root
}

// rescanSlug re-scans the single connector identified by slug, restricted
// to the changed paths, and advances its watch-state watermark to the
// scan's start time on success.
func (o *Orchestrator) rescanSlug(ctx context.Context, detected []connector.Connector, slug string, paths []string, ws *WatchState) {
	var target connector.Connector
	for _, c := range detected {
		if c.Slug() == slug {
			target = c
			break
		}
	}
	if target == nil {
		return
	}

	scanStart := time.Now()
	sc := connector.ScanContext{SinceTS: ws.LastScanFor(slug), PathFilter: paths}
	if _, err := o.ingestOne(ctx, target, sc); err != nil {
		logx.Warn("watch rescan %s: %v", slug, err)
		return
	}
	if err := o.Writer.Flush(); err != nil {
		logx.Warn("watch flush ftsindex for %s: %v", slug, err)
		return
	}
	if err := ws.Advance(slug, scanStart); err != nil {
		logx.Warn("advance watch state for %s: %v", slug, err)
	}
}
