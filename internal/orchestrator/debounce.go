package orchestrator

import (
	"sync"
	"time"
)

// pathCoalescer buffers fsnotify events per connector slug and fires
// onFire once no new event for that slug has arrived within window — the
// same timer-reset-on-new-event shape as internal/query.Warmer.loop,
// generalized from one pending string to a per-slug set of paths.
type pathCoalescer struct {
	mu      sync.Mutex
	window  time.Duration
	onFire  func(slug string, paths []string)
	pending map[string]map[string]struct{}
	timers  map[string]*time.Timer
}

func newPathCoalescer(window time.Duration, onFire func(slug string, paths []string)) *pathCoalescer {
	return &pathCoalescer{
		window:  window,
		onFire:  onFire,
		pending: make(map[string]map[string]struct{}),
		timers:  make(map[string]*time.Timer),
	}
}

// Add records a changed path for slug and (re)starts that slug's
// debounce timer.
func (c *pathCoalescer) Add(slug, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.pending[slug]
	if !ok {
		set = make(map[string]struct{})
		c.pending[slug] = set
	}
	set[path] = struct{}{}

	if t, ok := c.timers[slug]; ok {
		t.Stop()
	}
	c.timers[slug] = time.AfterFunc(c.window, func() { c.fire(slug) })
}

func (c *pathCoalescer) fire(slug string) {
	c.mu.Lock()
	set := c.pending[slug]
	delete(c.pending, slug)
	delete(c.timers, slug)
	c.mu.Unlock()

	if len(set) == 0 {
		return
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	c.onFire(slug, paths)
}

// Stop cancels every pending timer without firing it, used on shutdown.
func (c *pathCoalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = make(map[string]*time.Timer)
	c.pending = make(map[string]map[string]struct{})
}
