//go:build fitz

package loader

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/gen2brain/go-fitz"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

func init() {
	Register("fitz", func(o Options) viewer.DocumentSource {
		return &Fitz{Options: o}
	})
}

// Fitz rasterises with MuPDF through go-fitz.
type Fitz struct {
	Options
}

func (f *Fitz) Load(ctx context.Context, src string) (viewer.Document, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := fetch(ctx, f.Client, src, limit)
	if err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("fitz: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// fitzDocument serialises access to the MuPDF context, which is not safe
// for concurrent use.
type fitzDocument struct {
	mu     sync.Mutex
	doc    *fitz.Document
	closed bool
}

func (d *fitzDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(ctx context.Context, index int) (viewer.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if index < 1 || index > d.doc.NumPage() {
		return nil, fmt.Errorf("page %d of %d: %w", index, d.doc.NumPage(), viewer.ErrPageRange)
	}
	bound, err := d.doc.Bound(index - 1)
	if err != nil {
		return nil, err
	}
	return &fitzPage{doc: d, index: index - 1, width: float64(bound.Dx()), height: float64(bound.Dy())}, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.doc.Close()
}

// fitzPage sizes are in points with the page's own rotation applied by
// MuPDF.
type fitzPage struct {
	doc           *fitzDocument
	index         int
	width, height float64
}

func (p *fitzPage) Viewport(scale float64, rotation int) model.Viewport {
	rotation = ((rotation % 360) + 360) % 360
	w, h := p.width*scale, p.height*scale
	if rotation%180 != 0 {
		w, h = h, w
	}
	return model.Viewport{Width: w, Height: h, Scale: scale, Rotation: rotation}
}

func (p *fitzPage) Render(ctx context.Context, dst draw.Image, vp model.Viewport) error {
	p.doc.mu.Lock()
	if p.doc.closed {
		p.doc.mu.Unlock()
		return ErrClosed
	}
	src, err := p.doc.doc.ImageDPI(p.index, 72*vp.Scale)
	p.doc.mu.Unlock()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Transform(dst, rotationTransform(src.Bounds(), dst.Bounds(), vp.Rotation), src, src.Bounds(), draw.Over, nil)
	return nil
}

// rotationTransform maps src pixels onto dst turned clockwise by rotation
// degrees, stretched to fill dst.
func rotationTransform(src, dst image.Rectangle, rotation int) f64.Aff3 {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(dst.Dx()), float64(dst.Dy())
	ox, oy := float64(dst.Min.X), float64(dst.Min.Y)
	switch rotation {
	case 90:
		kx, ky := dw/sh, dh/sw
		return f64.Aff3{0, -kx, kx*sh + ox, ky, 0, oy}
	case 180:
		kx, ky := dw/sw, dh/sh
		return f64.Aff3{-kx, 0, kx*sw + ox, 0, -ky, ky*sh + oy}
	case 270:
		kx, ky := dw/sh, dh/sw
		return f64.Aff3{0, kx, ox, -ky, 0, ky*sw + oy}
	}
	return f64.Aff3{dw / sw, 0, ox, 0, dh / sh, oy}
}
