package viewer

import "github.com/AOShei/pdf-viewer/pkg/events"

// ScalePreset is a toolbar button that requests a scale.
type ScalePreset struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var ScalePresets = []ScalePreset{
	{Label: "cover", Value: "cover"},
	{Label: "contain", Value: "contain"},
	{Label: "20%", Value: "0.2"},
	{Label: "50%", Value: "0.5"},
	{Label: "80%", Value: "0.8"},
	{Label: "100%", Value: "1"},
}

var RotationPresets = []int{0, 90, 180, 270}

// Toolbar publishes scale and rotation requests on a bus. It has no
// reference to the viewer; any viewer subscribed to the same bus follows.
type Toolbar struct {
	bus *events.Bus
}

func NewToolbar(bus *events.Bus) *Toolbar {
	return &Toolbar{bus: bus}
}

// SetScale requests scale, given as "cover", "contain" or a number.
func (t *Toolbar) SetScale(scale string) {
	t.bus.Publish(events.ScaleChange{Scale: scale})
}

func (t *Toolbar) SetRotation(deg int) {
	t.bus.Publish(events.RotationChange{Rotation: deg})
}

// Press activates the scale preset with the given label. It reports false
// for unknown labels.
func (t *Toolbar) Press(label string) bool {
	for _, p := range ScalePresets {
		if p.Label == label {
			t.SetScale(p.Value)
			return true
		}
	}
	return false
}
