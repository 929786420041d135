package viewer

import (
	"context"
	"sync"
)

// Loader owns the current Document. Each load supersedes the previous one:
// the earlier load's context is cancelled and, should it still finish, its
// result is closed and reported as ErrStale.
//
// A load is split in two so the caller can fix its order. Begin reserves
// the generation synchronously, Finish does the slow part.
type Loader struct {
	source DocumentSource

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current Document
	closed  bool
}

// LoadTicket is a load reserved by Begin and not yet finished.
type LoadTicket struct {
	ctx  context.Context
	seq  uint64
	src  string
	prev Document
}

// Generation is the generation the ticket reserved.
func (t *LoadTicket) Generation() uint64 { return t.seq }

func NewLoader(source DocumentSource) *Loader {
	return &Loader{source: source}
}

// Begin starts a new generation for src: the load in flight is cancelled
// and the current document is detached. The detached document is closed by
// Finish. Returns ErrStale once the loader is closed.
func (l *Loader) Begin(ctx context.Context, src string) (*LoadTicket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrStale
	}
	l.seq++
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	t := &LoadTicket{ctx: ctx, seq: l.seq, src: src, prev: l.current}
	l.current = nil
	return t, nil
}

// Finish loads the ticket's source. An empty source only unloads and
// returns (nil, nil). Failures are returned as *LoadError, and a ticket
// superseded by a later Begin yields ErrStale.
func (l *Loader) Finish(t *LoadTicket) (Document, error) {
	if t.prev != nil {
		t.prev.Close()
	}
	if t.src == "" {
		return nil, nil
	}

	doc, err := l.source.Load(t.ctx, t.src)

	l.mu.Lock()
	defer l.mu.Unlock()
	if t.seq != l.seq || l.closed {
		if doc != nil {
			doc.Close()
		}
		return nil, ErrStale
	}
	if err != nil {
		return nil, &LoadError{Src: t.src, Err: err}
	}
	l.current = doc
	return doc, nil
}

// Load is Begin followed by Finish.
func (l *Loader) Load(ctx context.Context, src string) (Document, error) {
	t, err := l.Begin(ctx, src)
	if err != nil {
		return nil, err
	}
	return l.Finish(t)
}

// Current returns the loaded document, or nil, with the generation it
// belongs to.
func (l *Loader) Current() (Document, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.seq
}

// Generation increments with every Begin. Work started against an older
// generation is stale.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// IfCurrent runs fn under the loader's lock when gen is still the current
// generation, so no Begin can slip in between the check and fn. fn must
// not call back into the Loader.
func (l *Loader) IfCurrent(gen uint64, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.seq || l.closed {
		return false
	}
	fn()
	return true
}

// Close cancels any load in flight and closes the current document.
func (l *Loader) Close() error {
	l.mu.Lock()
	l.closed = true
	l.seq++
	if l.cancel != nil {
		l.cancel()
	}
	doc := l.current
	l.current = nil
	l.mu.Unlock()

	if doc != nil {
		return doc.Close()
	}
	return nil
}
