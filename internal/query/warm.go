package query

import (
	"context"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// Warmer runs one debounced background worker per Engine: each call to
// Suggest replaces whatever query is currently pending (the channel has
// buffer 1, so a send when full drops the old value), and after
// debounce elapses with no newer suggestion, it issues a minimal 1-doc
// search purely to prime the OS page cache for the real query that is
// expected to follow.
type Warmer struct {
	pending  chan string
	debounce time.Duration
	searcher func(ctx context.Context, q string) error
	done     chan struct{}
}

// NewWarmer starts the warm worker. searcher is called with the
// debounced query; engine.go passes a closure that runs a cheap 1-field
// bleve search against the live index.
func NewWarmer(debounce time.Duration, searcher func(ctx context.Context, q string) error) *Warmer {
	if debounce <= 0 {
		debounce = 120 * time.Millisecond
	}
	w := &Warmer{
		pending:  make(chan string, 1),
		debounce: debounce,
		searcher: searcher,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Suggest queues query to be warmed after the debounce window, dropping
// any not-yet-fired prior suggestion.
func (w *Warmer) Suggest(query string) {
	select {
	case w.pending <- query:
	default:
		// a suggestion is already queued; replace it non-blockingly
		select {
		case <-w.pending:
		default:
		}
		select {
		case w.pending <- query:
		default:
		}
	}
}

func (w *Warmer) loop() {
	var timer *time.Timer
	var latest string
	var armed bool

	for {
		select {
		case q, ok := <-w.pending:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			latest = q
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			armed = true
		case <-w.timerC(timer, armed):
			armed = false
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = w.searcher(ctx, latest)
			cancel()
		}
	}
}

// timerC returns t.C when armed, or a nil channel (which blocks
// forever in a select) otherwise — avoids a nil-timer panic on the very
// first loop iteration before any suggestion has arrived.
func (w *Warmer) timerC(t *time.Timer, armed bool) <-chan time.Time {
	if !armed || t == nil {
		return nil
	}
	return t.C
}

// Stop terminates the warm worker.
func (w *Warmer) Stop() {
	close(w.pending)
}

// warmSearch is the minimal 1-doc/1-field search engine.go's default
// searcher closure runs; factored out so it's easy to see exactly how
// cheap the warm query is.
func warmSearch(idx bleve.Index) func(ctx context.Context, q string) error {
	return func(ctx context.Context, q string) error {
		mq := bleve.NewMatchQuery(q)
		mq.SetField("content")
		req := bleve.NewSearchRequest(mq)
		req.Size = 1
		req.Fields = nil
		_, err := idx.SearchInContext(ctx, req)
		return err
	}
}
