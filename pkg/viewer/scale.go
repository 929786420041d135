package viewer

import (
	"math"
	"strconv"
	"strings"

	"github.com/AOShei/pdf-viewer/pkg/model"
)

// DefaultScrollbarAllowance is the space, in pixels per axis, reserved for
// scrollbars when a cover fit overflows the container.
const DefaultScrollbarAllowance = 20

type scaleMode uint8

const (
	modeNumeric scaleMode = iota
	modeCover
	modeContain
)

// Scale is either a positive zoom factor or a fit mode resolved against
// the container on every render.
type Scale struct {
	mode  scaleMode
	value float64
}

var (
	Cover   = Scale{mode: modeCover}
	Contain = Scale{mode: modeContain}
)

// Numeric returns the scale v. Values that are not finite and positive
// become 1.
func Numeric(v float64) Scale {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		v = 1
	}
	return Scale{mode: modeNumeric, value: v}
}

// ParseScale reads "cover", "contain" or a number. Anything else yields 1.
func ParseScale(s string) Scale {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cover":
		return Cover
	case "contain":
		return Contain
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Numeric(1)
	}
	return Numeric(v)
}

// IsNumeric reports whether s is a fixed zoom factor.
func (s Scale) IsNumeric() bool { return s.mode == modeNumeric }

// Value returns the zoom factor of a numeric scale, 0 for fit modes.
func (s Scale) Value() float64 {
	if s.mode != modeNumeric {
		return 0
	}
	if s.value == 0 {
		return 1
	}
	return s.value
}

func (s Scale) String() string {
	switch s.mode {
	case modeCover:
		return "cover"
	case modeContain:
		return "contain"
	}
	return strconv.FormatFloat(s.Value(), 'g', -1, 64)
}

func (s Scale) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scale) UnmarshalText(b []byte) error {
	*s = ParseScale(string(b))
	return nil
}

// Resolve returns the numeric scale for drawing a page of intrinsic size,
// rotated by rotation degrees, into container. Numeric scales are returned
// unchanged. Degenerate sizes resolve to 1.
//
// intrinsic is the unrotated page size in PDF points; container and
// scrollbarAllowance are in output pixels. One point maps to one pixel at
// scale 1, with no 96/72 correction, so a 600pt wide page fills a 600px
// wide container at scale 1.
func Resolve(scale Scale, intrinsic model.Size, rotation int, container model.Size, scrollbarAllowance float64) float64 {
	if scale.IsNumeric() {
		return scale.Value()
	}
	if intrinsic.Empty() || container.Empty() {
		return 1
	}

	w, h := intrinsic.Width, intrinsic.Height
	if normalizeRotation(rotation)%180 != 0 {
		w, h = h, w
	}
	fitW, fitH := container.Width/w, container.Height/h

	if scale.mode == modeContain {
		return math.Min(fitW, fitH)
	}

	fit := math.Max(fitW, fitH)
	if fit <= 1 {
		return fit
	}
	// The page overflows one axis, so leave room for the scrollbars.
	cw, ch := container.Width-scrollbarAllowance, container.Height-scrollbarAllowance
	if cw <= 0 || ch <= 0 {
		return fit
	}
	return math.Max(cw/w, ch/h)
}

func normalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}
