package viewer

import (
	"context"
	"errors"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/model"
)

var (
	errClosedDoc  = errors.New("document closed")
	errBrokenPage = errors.New("broken page")
)

// fakeSource serves fakeDocs by name. A gate makes Load block until it is
// closed, regardless of the context, so tests can finish loads out of order.
type fakeSource struct {
	mu    sync.Mutex
	docs  map[string]*fakeDoc
	gates map[string]chan struct{}
	fail  map[string]error
	loads atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs:  map[string]*fakeDoc{},
		gates: map[string]chan struct{}{},
		fail:  map[string]error{},
	}
}

func (s *fakeSource) add(src string, doc *fakeDoc) *fakeDoc {
	s.mu.Lock()
	s.docs[src] = doc
	s.mu.Unlock()
	return doc
}

func (s *fakeSource) gate(src string) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[src] = ch
	s.mu.Unlock()
	return ch
}

func (s *fakeSource) Load(ctx context.Context, src string) (Document, error) {
	s.loads.Add(1)
	s.mu.Lock()
	gate, doc, err := s.gates[src], s.docs[src], s.fail[src]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("not found: " + src)
	}
	return doc, nil
}

type fakeDoc struct {
	pages         int
	width, height float64

	// renderGate, if set, blocks every Render until closed.
	renderGate chan struct{}
	started    chan int

	// broken is a page index whose Page call fails.
	broken atomic.Int32

	closed   atomic.Bool
	mu       sync.Mutex
	rendered []model.Viewport
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{pages: pages, width: 600, height: 800, started: make(chan int, 64)}
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) Page(ctx context.Context, index int) (Page, error) {
	if d.closed.Load() {
		return nil, errClosedDoc
	}
	if index < 1 || index > d.pages {
		return nil, ErrPageRange
	}
	if int32(index) == d.broken.Load() {
		return nil, errBrokenPage
	}
	return &fakePage{doc: d, index: index}, nil
}

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *fakeDoc) renders() []model.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Viewport(nil), d.rendered...)
}

type fakePage struct {
	doc   *fakeDoc
	index int
}

func (p *fakePage) Viewport(scale float64, rotation int) model.Viewport {
	w, h := p.doc.width, p.doc.height
	rotation = normalizeRotation(rotation)
	if rotation%180 != 0 {
		w, h = h, w
	}
	return model.Viewport{Width: w * scale, Height: h * scale, Scale: scale, Rotation: rotation}
}

func (p *fakePage) Render(ctx context.Context, dst draw.Image, vp model.Viewport) error {
	p.doc.started <- p.index
	if p.doc.renderGate != nil {
		<-p.doc.renderGate
	}
	p.doc.mu.Lock()
	p.doc.rendered = append(p.doc.rendered, vp)
	p.doc.mu.Unlock()
	return nil
}

// record subscribes to every event on bus.
func record(bus *events.Bus) <-chan events.Event {
	ch := make(chan events.Event, 64)
	bus.Subscribe(events.All, func(e events.Event) { ch <- e })
	return ch
}

func waitEvent[T events.Event](t *testing.T, ch <-chan events.Event) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if got, ok := e.(T); ok {
				return got
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// expectQuiet fails if an event of type T arrives within d.
func expectQuiet[T events.Event](t *testing.T, ch <-chan events.Event, d time.Duration) {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case e := <-ch:
			if _, ok := e.(T); ok {
				t.Fatalf("unexpected event %#v", e)
			}
		case <-timeout:
			return
		}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestViewer(t *testing.T, src *fakeSource) (*Viewer, *Canvas, <-chan events.Event) {
	t.Helper()
	canvas := NewCanvas()
	bus := events.NewBus()
	evs := record(bus)
	v := New(Options{Source: src, Surface: canvas, Bus: bus, ResizeDebounce: 5 * time.Millisecond})
	t.Cleanup(func() { v.Close() })
	return v, canvas, evs
}
