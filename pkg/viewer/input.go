package viewer

import "math"

const (
	// WheelZoomFactor converts wheel delta units into scale units.
	WheelZoomFactor = 0.001

	MinScale = 0.05
	MaxScale = 10
)

// WheelEvent is the subset of a pointer wheel event the viewer consumes.
type WheelEvent struct {
	DeltaY float64 `json:"deltaY"`
	Ctrl   bool    `json:"ctrlKey"`
	Meta   bool    `json:"metaKey"`
}

// HandleWheel zooms when Ctrl or Meta is held and reports whether the event
// was consumed; the caller must then suppress its default handling. A fit
// mode is replaced by the numeric scale it currently resolves to, and there
// is no way back other than setting the mode again.
func (v *Viewer) HandleWheel(e WheelEvent) bool {
	if !e.Ctrl && !e.Meta {
		return false
	}
	next := v.currentScale() - e.DeltaY*WheelZoomFactor
	next = math.Max(MinScale, math.Min(MaxScale, next))
	v.state.SetScale(Numeric(next))
	return true
}

// currentScale is the numeric scale of the current state: the fixed factor,
// or the last resolved one for fit modes.
func (v *Viewer) currentScale() float64 {
	st := v.state.Snapshot()
	if st.Scale.IsNumeric() {
		return st.Scale.Value()
	}
	if st.HasViewport && st.Viewport.Scale > 0 {
		return st.Viewport.Scale
	}
	return 1
}

// NextPage advances one page, wrapping from the last page to the first.
// Without a known page count it just increments.
func (v *Viewer) NextPage() {
	st := v.state.Snapshot()
	if !st.HasPageCount || st.PageCount < 1 {
		v.state.SetPage(st.Page + 1)
		return
	}
	next := st.ValidPage() + 1
	if next > st.PageCount {
		next = 1
	}
	v.state.SetPage(next)
}

// PrevPage goes back one page, wrapping from the first page to the last.
// Without a known page count it stops at 1.
func (v *Viewer) PrevPage() {
	st := v.state.Snapshot()
	if !st.HasPageCount || st.PageCount < 1 {
		if st.Page > 1 {
			v.state.SetPage(st.Page - 1)
		}
		return
	}
	prev := st.ValidPage() - 1
	if prev < 1 {
		prev = st.PageCount
	}
	v.state.SetPage(prev)
}
