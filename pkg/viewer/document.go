package viewer

import (
	"context"
	"image"
	"image/draw"

	"github.com/AOShei/pdf-viewer/pkg/model"
)

// DocumentSource turns a source identifier (path or URL) into a Document.
// Load may block; it should return promptly once ctx is cancelled.
type DocumentSource interface {
	Load(ctx context.Context, src string) (Document, error)
}

// Document is a loaded, paginated document.
type Document interface {
	PageCount() int
	// Page returns the page with the 1-based index.
	Page(ctx context.Context, index int) (Page, error)
	Close() error
}

// Page is one page of a Document.
type Page interface {
	// Viewport returns the page geometry at scale with rotation (clockwise
	// degrees) applied. Viewport(1, 0) is the intrinsic size.
	Viewport(scale float64, rotation int) model.Viewport
	// Render rasterises the page into dst, whose bounds match vp.
	Render(ctx context.Context, dst draw.Image, vp model.Viewport) error
}

// Surface receives finished frames. Commit replaces size and pixels in one
// step; img is not modified after the call. Commit runs while the viewer
// holds its document lock and must not call back into the Viewer.
type Surface interface {
	Commit(img *image.RGBA)
}
