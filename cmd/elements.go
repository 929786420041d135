package main

import (
	"fmt"

	"github.com/AOShei/pdf-viewer/pkg/config"
	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/loader"
	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/registry"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

// session holds the components built for one command run. Components
// share the bus, so a toolbar drives any viewer in the same session.
type session struct {
	cfg     *config.Config
	log     observability.Logger
	bus     *events.Bus
	canvas  *viewer.Canvas
	viewer  *viewer.Viewer
	toolbar *viewer.Toolbar
}

type constructor func(*session) error

var elements = registry.New[constructor]()

func init() {
	elements.DefineIfAbsent("pdf-viewer", func(s *session) error {
		src, err := loader.New(s.cfg.Backend, loader.Options{Logger: s.log})
		if err != nil {
			return err
		}
		s.canvas = viewer.NewCanvas()
		s.viewer = viewer.New(viewer.Options{
			Source:             src,
			Surface:            s.canvas,
			Bus:                s.bus,
			Logger:             s.log,
			ResizeDebounce:     s.cfg.ResizeDebounce,
			ScrollbarAllowance: s.cfg.ScrollbarAllowance,
		})
		return nil
	})
	elements.DefineIfAbsent("pdf-viewer-toolbar", func(s *session) error {
		s.toolbar = viewer.NewToolbar(s.bus)
		return nil
	})
}

// newSession validates cfg and builds the named components in order.
func newSession(cfg *config.Config, log observability.Logger, names ...string) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &session{cfg: cfg, log: log, bus: events.NewBus()}
	for _, name := range names {
		build, ok := elements.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown component %q", name)
		}
		if err := build(s); err != nil {
			s.Close()
			return nil, fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return s, nil
}

// apply pushes the configured viewport settings into the viewer.
func (s *session) apply() error {
	s.viewer.Resize(s.containerSize())
	s.viewer.SetScale(s.cfg.ViewerScale())
	s.viewer.SetPage(s.cfg.Page)
	return s.viewer.SetRotation(s.cfg.Rotation)
}

func (s *session) containerSize() model.Size {
	return model.Size{Width: s.cfg.Width, Height: s.cfg.Height}
}

func (s *session) Close() error {
	if s.viewer != nil {
		return s.viewer.Close()
	}
	return nil
}
