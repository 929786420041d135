package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/pdf"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

// DefaultMaxBytes caps how much of a source is read.
const DefaultMaxBytes = 256 << 20

var (
	ErrEncrypted = errors.New("encrypted documents are not supported")
	ErrClosed    = errors.New("document is closed")
	ErrTooLarge  = errors.New("document exceeds size limit")
)

// Native opens PDFs with the pure-Go reader in pkg/pdf. Sources may be
// local paths, file:// URLs or http(s) URLs.
type Native struct {
	Client   *http.Client
	MaxBytes int64
	Logger   observability.Logger
}

// Load fetches and parses src.
func (n *Native) Load(ctx context.Context, src string) (viewer.Document, error) {
	doc, err := n.open(ctx, src)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (n *Native) open(ctx context.Context, src string) (*Document, error) {
	log := n.logger()
	start := time.Now()

	data, err := fetch(ctx, n.Client, src, n.maxBytes())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf reader: %w", err)
	}
	if reader.Encrypted() {
		return nil, ErrEncrypted
	}

	log.Debug("parsed document",
		observability.String("src", src),
		observability.Int("bytes", len(data)),
		observability.Int("pages", reader.NumPages()),
		observability.Any("took", time.Since(start)))
	return &Document{src: src, reader: reader}, nil
}

func (n *Native) maxBytes() int64 {
	if n.MaxBytes > 0 {
		return n.MaxBytes
	}
	return DefaultMaxBytes
}

func (n *Native) logger() observability.Logger {
	if n.Logger == nil {
		return observability.NopLogger{}
	}
	return n.Logger
}

// LoadPDF returns the metadata and page sizes of src using a default Native
// source.
func LoadPDF(ctx context.Context, src string) (*model.Document, error) {
	return (&Native{}).Info(ctx, src)
}

// Info opens src and returns its metadata and page sizes.
func (n *Native) Info(ctx context.Context, src string) (*model.Document, error) {
	doc, err := n.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.Info()
}

// fetch reads src into memory, honouring ctx for remote sources.
func fetch(ctx context.Context, client *http.Client, src string, limit int64) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
		}
		return readLimited(resp.Body, limit)

	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, err
		}
		src = u.Path
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Document is a PDF opened by Native. The underlying reader caches objects
// and is not safe for concurrent use, so every access is serialised.
type Document struct {
	src string

	mu     sync.Mutex
	reader *pdf.Reader
	closed bool
}

func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	return d.reader.NumPages()
}

// Page returns the page with the 1-based index.
func (d *Document) Page(ctx context.Context, index int) (viewer.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if index < 1 || index > d.reader.NumPages() {
		return nil, fmt.Errorf("page %d of %d: %w", index, d.reader.NumPages(), viewer.ErrPageRange)
	}
	dict, err := d.reader.GetPage(index - 1)
	if err != nil {
		return nil, err
	}
	return &Page{
		doc:    d,
		number: index,
		dict:   dict,
		box:    d.reader.PageBox(dict),
		rotate: d.reader.PageRotate(dict),
	}, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.reader = nil
	return nil
}

// Info returns the document metadata and the size of every page in points,
// with the page's own rotation applied.
func (d *Document) Info() (*model.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	reader := d.reader

	meta := model.Metadata{Encrypted: reader.Encrypted()}
	if info, err := reader.GetInfo(); err == nil && info != nil {
		meta.Title = pdf.TextString(reader.Resolve(info["/Title"]))
		meta.Author = pdf.TextString(reader.Resolve(info["/Author"]))
		meta.Creator = pdf.TextString(reader.Resolve(info["/Creator"]))
		meta.Producer = pdf.TextString(reader.Resolve(info["/Producer"]))
	}

	doc := &model.Document{
		Source:   d.src,
		Metadata: meta,
		Pages:    make([]model.Page, 0, reader.NumPages()),
	}
	for i := 0; i < reader.NumPages(); i++ {
		dict, err := reader.GetPage(i)
		if err != nil {
			return nil, err
		}
		rotate := reader.PageRotate(dict)
		_, width, height := pdf.ViewportTransform(reader.PageBox(dict), 1, rotate)
		doc.Pages = append(doc.Pages, model.Page{
			PageNumber: i + 1,
			Width:      width,
			Height:     height,
			Rotate:     rotate,
		})
	}
	return doc, nil
}

// Page is one page of a Document.
type Page struct {
	doc    *Document
	number int
	dict   pdf.DictionaryObject
	box    pdf.Rectangle
	rotate int
}

// Viewport composes the page's /Rotate with rotation.
func (p *Page) Viewport(scale float64, rotation int) model.Viewport {
	_, w, h := pdf.ViewportTransform(p.box, scale, p.rotate+rotation)
	return model.Viewport{
		Width:    w,
		Height:   h,
		Scale:    scale,
		Rotation: ((rotation % 360) + 360) % 360,
	}
}

// Render paints the page onto a white background in dst.
func (p *Page) Render(ctx context.Context, dst draw.Image, vp model.Viewport) error {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if p.doc.closed {
		return ErrClosed
	}
	device, _, _ := pdf.ViewportTransform(p.box, vp.Scale, p.rotate+vp.Rotation)
	if err := pdf.NewPainter(p.doc.reader, p.dict, dst, device).Paint(ctx); err != nil {
		return fmt.Errorf("page %d: %w", p.number, err)
	}
	return nil
}
