package viewer

import (
	"sync"

	"github.com/AOShei/pdf-viewer/pkg/model"
)

// Field identifies the part of the state a Change touched.
type Field int

const (
	FieldSource Field = iota
	FieldPage
	FieldScale
	FieldRotation
	FieldPageCount
	FieldViewport
)

func (f Field) String() string {
	switch f {
	case FieldSource:
		return "src"
	case FieldPage:
		return "page"
	case FieldScale:
		return "scale"
	case FieldRotation:
		return "rotation"
	case FieldPageCount:
		return "pageCount"
	case FieldViewport:
		return "viewport"
	}
	return "unknown"
}

// State is a copy of the viewer's externally visible state.
type State struct {
	Src      string
	Page     int
	Scale    Scale
	Rotation int

	PageCount    int
	HasPageCount bool

	Viewport    model.Viewport
	HasViewport bool
}

// ValidPage clamps Page into [1, PageCount], or returns 1 without a known
// page count.
func (s State) ValidPage() int {
	if !s.HasPageCount || s.PageCount < 1 {
		return 1
	}
	return min(s.PageCount, max(1, s.Page))
}

// Change describes one accepted mutation and the state right after it.
type Change struct {
	Field Field
	State State
}

// ViewportState holds the authoritative src, page, scale and rotation.
// Accepted mutations are announced to OnChange observers in the order they
// were applied. Observers run without the state lock held and may mutate
// the state again; such nested changes are delivered after the current one.
type ViewportState struct {
	mu          sync.Mutex
	cur         State
	observers   []func(Change)
	pending     []Change
	dispatching bool
}

func NewViewportState() *ViewportState {
	return &ViewportState{cur: State{Page: 1, Scale: Cover}}
}

// OnChange registers fn to observe accepted mutations.
func (s *ViewportState) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *ViewportState) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *ViewportState) ValidPage() int {
	return s.Snapshot().ValidPage()
}

// SetSource changes the document source. The known page count and viewport
// are invalidated together with it.
func (s *ViewportState) SetSource(src string) bool {
	return s.update(FieldSource, func(st *State) bool {
		if st.Src == src {
			return false
		}
		st.Src = src
		st.PageCount, st.HasPageCount = 0, false
		st.Viewport, st.HasViewport = model.Viewport{}, false
		return true
	})
}

// SetPage stores page as is; ValidPage clamps it on read.
func (s *ViewportState) SetPage(page int) bool {
	return s.update(FieldPage, func(st *State) bool {
		if st.Page == page {
			return false
		}
		st.Page = page
		return true
	})
}

func (s *ViewportState) SetScale(scale Scale) bool {
	if scale.IsNumeric() {
		scale = Numeric(scale.Value())
	}
	return s.update(FieldScale, func(st *State) bool {
		if st.Scale == scale {
			return false
		}
		st.Scale = scale
		return true
	})
}

// SetRotation accepts any multiple of 90 and stores it normalised into
// [0, 360). Other values return ErrInvalidRotation.
func (s *ViewportState) SetRotation(deg int) (bool, error) {
	if deg%90 != 0 {
		return false, ErrInvalidRotation
	}
	deg = normalizeRotation(deg)
	return s.update(FieldRotation, func(st *State) bool {
		if st.Rotation == deg {
			return false
		}
		st.Rotation = deg
		return true
	}), nil
}

// setPageCount records the page count of the document loaded from src. It
// is ignored when the source has changed in the meantime.
func (s *ViewportState) setPageCount(src string, n int) bool {
	return s.update(FieldPageCount, func(st *State) bool {
		if st.Src != src || (st.HasPageCount && st.PageCount == n) {
			return false
		}
		st.PageCount, st.HasPageCount = n, true
		return true
	})
}

func (s *ViewportState) setViewport(vp model.Viewport) bool {
	return s.update(FieldViewport, func(st *State) bool {
		if st.HasViewport && st.Viewport == vp {
			return false
		}
		st.Viewport, st.HasViewport = vp, true
		return true
	})
}

func (s *ViewportState) update(field Field, mutate func(*State) bool) bool {
	s.mu.Lock()
	if !mutate(&s.cur) {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, Change{Field: field, State: s.cur})
	if s.dispatching {
		s.mu.Unlock()
		return true
	}
	s.dispatching = true

	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		observers := s.observers
		s.mu.Unlock()

		for _, fn := range observers {
			fn(c)
		}

		s.mu.Lock()
	}
	s.pending = nil
	s.dispatching = false
	s.mu.Unlock()
	return true
}
