// Package viewer renders one page of a paginated document into a resizable
// surface and keeps page, scale and rotation in a single authoritative
// state that property setters, wheel input and toolbar events all feed.
package viewer

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/google/uuid"
)

// Options configures a Viewer. Source is required.
type Options struct {
	Source  DocumentSource
	Surface Surface
	Bus     *events.Bus
	Logger  observability.Logger

	// ResizeDebounce defaults to DefaultResizeDebounce.
	ResizeDebounce time.Duration
	// ScrollbarAllowance defaults to DefaultScrollbarAllowance. Use a
	// negative value for none.
	ScrollbarAllowance float64
}

// Viewer composes the state, loader and scheduler and exposes the property
// and event surface.
type Viewer struct {
	id        string
	state     *ViewportState
	loader    *Loader
	scheduler *Scheduler
	surface   Surface
	bus       *events.Bus
	log       observability.Logger
	allowance float64

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
	unsub  []func()

	mu        sync.Mutex
	container model.Size
	closed    bool
}

func New(opts Options) *Viewer {
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger{}
	}
	switch {
	case opts.ScrollbarAllowance == 0:
		opts.ScrollbarAllowance = DefaultScrollbarAllowance
	case opts.ScrollbarAllowance < 0:
		opts.ScrollbarAllowance = 0
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	v := &Viewer{
		id:        id,
		state:     NewViewportState(),
		loader:    NewLoader(opts.Source),
		surface:   opts.Surface,
		bus:       opts.Bus,
		log:       opts.Logger.With(observability.String("viewer", id)),
		allowance: opts.ScrollbarAllowance,
		ctx:       ctx,
		cancel:    cancel,
	}
	v.scheduler = NewScheduler(v.render, opts.ResizeDebounce)
	v.scheduler.OnError = func(err error) {
		if !errors.Is(err, ErrStale) {
			v.log.Debug("render pass failed", observability.Error("err", err))
		}
	}
	v.state.OnChange(v.onChange)

	v.unsub = append(v.unsub,
		v.bus.Subscribe(events.NameScaleChange, func(e events.Event) {
			if sc, ok := e.(events.ScaleChange); ok {
				v.SetScale(ParseScale(sc.Scale))
			}
		}),
		v.bus.Subscribe(events.NameRotationChange, func(e events.Event) {
			if rc, ok := e.(events.RotationChange); ok {
				if err := v.SetRotation(rc.Rotation); err != nil {
					v.log.Warn("ignoring rotation change", observability.Int("rotation", rc.Rotation), observability.Error("err", err))
				}
			}
		}),
	)
	return v
}

// ID identifies the viewer in logs and event payloads.
func (v *Viewer) ID() string { return v.id }

func (v *Viewer) Bus() *events.Bus { return v.bus }

func (v *Viewer) Src() string { return v.state.Snapshot().Src }

// SetSrc starts loading src. An empty src unloads the current document.
func (v *Viewer) SetSrc(src string) { v.state.SetSource(src) }

func (v *Viewer) Scale() Scale { return v.state.Snapshot().Scale }

func (v *Viewer) SetScale(s Scale) { v.state.SetScale(s) }

// Page returns the requested page as set, which may be out of range.
func (v *Viewer) Page() int { return v.state.Snapshot().Page }

func (v *Viewer) SetPage(page int) { v.state.SetPage(page) }

func (v *Viewer) Rotation() int { return v.state.Snapshot().Rotation }

func (v *Viewer) SetRotation(deg int) error {
	_, err := v.state.SetRotation(deg)
	return err
}

// ValidPage returns the page that is rendered: Page clamped to the document.
func (v *Viewer) ValidPage() int { return v.state.ValidPage() }

// Document returns the loaded document, or nil.
func (v *Viewer) Document() Document {
	doc, _ := v.loader.Current()
	return doc
}

func (v *Viewer) PageCount() (int, bool) {
	st := v.state.Snapshot()
	return st.PageCount, st.HasPageCount
}

// Viewport returns the geometry of the last committed render.
func (v *Viewer) Viewport() (model.Viewport, bool) {
	st := v.state.Snapshot()
	return st.Viewport, st.HasViewport
}

func (v *Viewer) State() State { return v.state.Snapshot() }

// OnChange registers fn to observe state changes.
func (v *Viewer) OnChange(fn func(Change)) { v.state.OnChange(fn) }

// Resize records the container size and schedules a debounced render.
func (v *Viewer) Resize(size model.Size) {
	v.mu.Lock()
	if v.closed || v.container == size {
		v.mu.Unlock()
		return
	}
	v.container = size
	v.mu.Unlock()
	v.scheduler.RequestDebounced()
}

func (v *Viewer) ContainerSize() model.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.container
}

// Close stops rendering, drops any load in flight and closes the document.
func (v *Viewer) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()

	for _, unsubscribe := range v.unsub {
		unsubscribe()
	}
	v.cancel()
	v.scheduler.Close()
	err := v.loader.Close()
	v.loads.Wait()
	return err
}

func (v *Viewer) onChange(c Change) {
	switch c.Field {
	case FieldSource:
		v.startLoad(c.State.Src)
	case FieldPage, FieldScale, FieldRotation, FieldPageCount:
		v.scheduler.Request()
	}
}

func (v *Viewer) startLoad(src string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.loads.Add(1)
	v.mu.Unlock()

	// The generation is reserved here, in change order, so the last
	// source set wins no matter how the loads are scheduled.
	ticket, err := v.loader.Begin(v.ctx, src)
	if err != nil {
		v.loads.Done()
		return
	}

	go func() {
		defer v.loads.Done()
		v.log.Debug("loading document", observability.String("src", src))
		start := time.Now()

		doc, err := v.loader.Finish(ticket)
		switch {
		case errors.Is(err, ErrStale):
			v.log.Debug("dropped stale load", observability.String("src", src))
		case err != nil:
			v.log.Error("load failed", observability.String("src", src), observability.Error("err", err))
			v.bus.Publish(events.ErrorEvent{Viewer: v.id, Err: err})
		case doc == nil:
			v.log.Debug("document unloaded")
		default:
			v.log.Info("document loaded",
				observability.String("src", src),
				observability.Int("pages", doc.PageCount()),
				observability.Any("took", time.Since(start)))
			v.state.setPageCount(src, doc.PageCount())
		}
	}()
}

// render is one render pass. It is only ever run by the scheduler.
func (v *Viewer) render(ctx context.Context) error {
	doc, gen := v.loader.Current()
	if doc == nil || v.surface == nil {
		return nil
	}

	pageNum := v.state.ValidPage()
	page, err := doc.Page(ctx, pageNum)
	if err != nil {
		return v.renderFailed(gen, pageNum, err)
	}

	st := v.state.Snapshot()
	intrinsic := page.Viewport(1, 0).Size()
	scale := Resolve(st.Scale, intrinsic, st.Rotation, v.ContainerSize(), v.allowance)
	vp := page.Viewport(scale, st.Rotation)

	img := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(vp.Width)), int(math.Ceil(vp.Height))))
	if err := page.Render(ctx, img, vp); err != nil {
		return v.renderFailed(gen, pageNum, err)
	}

	if !v.loader.IfCurrent(gen, func() { v.surface.Commit(img) }) {
		v.log.Debug("dropped stale render", observability.Int("page", pageNum))
		return ErrStale
	}
	v.state.setViewport(vp)
	v.log.Debug("render complete",
		observability.Int("page", pageNum),
		observability.Float("scale", vp.Scale),
		observability.Int("rotation", vp.Rotation))
	v.bus.Publish(events.RenderComplete{Viewer: v.id, Page: pageNum, Viewport: vp})
	return nil
}

func (v *Viewer) renderFailed(gen uint64, page int, err error) error {
	if v.loader.Generation() != gen || v.ctx.Err() != nil {
		return ErrStale
	}
	rerr := &RenderError{Page: page, Err: err}
	v.log.Error("render failed", observability.Int("page", page), observability.Error("err", err))
	v.bus.Publish(events.ErrorEvent{Viewer: v.id, Err: rerr})
	return rerr
}
