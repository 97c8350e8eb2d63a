package cache

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/lightningralf/ontology-engine/internal/debug"
)

// Seeder resolves a warm-cache seed identifier into the same operation
// the orchestrator would run, so Warm can populate the cache exactly
// the way a real request would.
type Seeder func(ctx context.Context, identifier string) error

// Warm runs each seed through resolve at initialize() time. Errors are
// logged and skipped — a failed warm seed must never block startup.
func (c *ResultCache) Warm(ctx context.Context, seeds []string, resolve Seeder) {
	for _, seed := range seeds {
		if seed == "" {
			continue
		}
		if err := resolve(ctx, seed); err != nil {
			debug.Printf("[cache] warm seed %q failed: %v", seed, err)
		}
	}
}

// WatchInvalidation starts an fsnotify watcher over root and invalidates
// the cache entries registered for the changed file's path whenever a
// write, remove or rename event fires. It runs until ctx is cancelled. This
// is for long-lived engine processes (editor sessions); one-shot CLI
// invocations never need it.
func (c *ResultCache) WatchInvalidation(ctx context.Context, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					c.InvalidateFile(event.Name)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debug.Printf("[cache] watch error: %v", werr)
			}
		}
	}()
	return nil
}

// InvalidateFile drops every cached entry registered for exactly this
// path. The cache key is an opaque hash, so this relies on a
// companion reverse index maintained by the orchestrator
// (RegisterKeyURI); with no index present it is a no-op, which is safe
// — stale entries still expire via TTL.
func (c *ResultCache) InvalidateFile(path string) int {
	c.mu.Lock()
	uris, ok := c.reverseIndex[path]
	c.mu.Unlock()
	if !ok || len(uris) == 0 {
		return 0
	}
	return c.InvalidateByKeys(uris)
}

// RegisterKeyURI records that cache key corresponds to requests scoped
// to uriPath, so a later file-change event can find it. Idempotent:
// registering the same pair twice is a no-op beyond a redundant append
// guarded by a membership check.
func (c *ResultCache) RegisterKeyURI(key uint64, uriPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reverseIndex == nil {
		c.reverseIndex = make(map[string][]uint64)
	}
	for _, k := range c.reverseIndex[uriPath] {
		if k == key {
			return
		}
	}
	c.reverseIndex[uriPath] = append(c.reverseIndex[uriPath], key)
}
