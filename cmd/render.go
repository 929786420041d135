package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/observability"
)

var renderOpts struct {
	output  string
	preset  string
	timeout time.Duration
}

var renderCmd = &cobra.Command{
	Use:   "render <path_or_url>",
	Short: "Render one page to a PNG file",
	Long: `Loads the document into a viewer sized from the config (or flags),
waits for the first completed render and writes the surface as PNG.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("scale") {
			cfg.Scale, _ = flags.GetString("scale")
		}
		if flags.Changed("page") {
			cfg.Page, _ = flags.GetInt("page")
		}
		if flags.Changed("rotation") {
			cfg.Rotation, _ = flags.GetInt("rotation")
		}
		if flags.Changed("width") {
			cfg.Width, _ = flags.GetFloat64("width")
		}
		if flags.Changed("height") {
			cfg.Height, _ = flags.GetFloat64("height")
		}

		s, err := newSession(cfg, logger, "pdf-viewer", "pdf-viewer-toolbar")
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), renderOpts.timeout)
		defer cancel()

		done := make(chan error, 1)
		report := func(err error) {
			select {
			case done <- err:
			default:
			}
		}
		s.bus.Subscribe(events.NameRenderComplete, func(e events.Event) {
			rc := e.(events.RenderComplete)
			logger.Info("rendered page",
				observability.Int("page", rc.Page),
				observability.Float("scale", rc.Viewport.Scale),
				observability.Int("rotation", rc.Viewport.Rotation))
			report(nil)
		})
		s.bus.Subscribe(events.NameError, func(e events.Event) {
			report(e.(events.ErrorEvent).Err)
		})

		if err := s.apply(); err != nil {
			return err
		}
		if renderOpts.preset != "" && !s.toolbar.Press(renderOpts.preset) {
			return fmt.Errorf("unknown scale preset %q", renderOpts.preset)
		}
		s.viewer.SetSrc(args[0])

		select {
		case err := <-done:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for render: %w", ctx.Err())
		}

		f, err := os.Create(renderOpts.output)
		if err != nil {
			return err
		}
		if err := s.canvas.EncodePNG(f); err != nil {
			f.Close()
			return fmt.Errorf("encoding %s: %w", renderOpts.output, err)
		}
		return f.Close()
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.output, "output", "o", "page.png", "output PNG file")
	f.StringVar(&renderOpts.preset, "preset", "", "toolbar scale preset (cover, contain, 20%, 50%, 80%, 100%)")
	f.DurationVar(&renderOpts.timeout, "timeout", 30*time.Second, "give up after this long")
	f.String("scale", "", "cover, contain or a number (overrides config)")
	f.Int("page", 1, "1-based page number (overrides config)")
	f.Int("rotation", 0, "clockwise rotation in degrees (overrides config)")
	f.Float64("width", 0, "container width in pixels (overrides config)")
	f.Float64("height", 0, "container height in pixels (overrides config)")
	rootCmd.AddCommand(renderCmd)
}
