package events

import "github.com/AOShei/pdf-viewer/pkg/model"

const (
	NameError          = "error"
	NameRenderComplete = "renderComplete"
	NameScaleChange    = "scaleChange"
	NameRotationChange = "rotationChange"
)

// ErrorEvent reports a load or render failure.
type ErrorEvent struct {
	Viewer string
	Err    error
}

func (ErrorEvent) Name() string { return NameError }

// RenderComplete is published after a page has been committed to the
// surface.
type RenderComplete struct {
	Viewer   string         `json:"viewer,omitempty"`
	Page     int            `json:"page"`
	Viewport model.Viewport `json:"viewport"`
}

func (RenderComplete) Name() string { return NameRenderComplete }

// ScaleChange requests a new scale: "cover", "contain" or a number such as
// "0.5".
type ScaleChange struct {
	Scale string `json:"scale"`
}

func (ScaleChange) Name() string { return NameScaleChange }

// RotationChange requests a rotation in degrees.
type RotationChange struct {
	Rotation int `json:"rotation"`
}

func (RotationChange) Name() string { return NameRotationChange }
