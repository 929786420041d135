package loader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/pdf"
	"github.com/AOShei/pdf-viewer/pkg/pdf/pdftest"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
	"github.com/google/go-cmp/cmp"
)

func writePDF(t *testing.T, doc pdftest.Doc) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, doc.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInfo(t *testing.T) {
	path := writePDF(t, pdftest.Doc{
		Info: map[string]string{"Title": "Quarterly Report", "Author": "Finance"},
		Pages: []pdftest.Page{
			{},
			{MediaBox: [4]float64{0, 0, 842, 595}},
			{Rotate: 90},
		},
	})

	got, err := LoadPDF(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := &model.Document{
		Source:   path,
		Metadata: model.Metadata{Title: "Quarterly Report", Author: "Finance"},
		Pages: []model.Page{
			{PageNumber: 1, Width: 612, Height: 792},
			{PageNumber: 2, Width: 842, Height: 595},
			{PageNumber: 3, Width: 792, Height: 612, Rotate: 90},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Info mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSources(t *testing.T) {
	data := pdftest.Doc{Pages: []pdftest.Page{{}, {}}}.Bytes()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/doc.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	n := &Native{}
	for _, src := range []string{path, "file://" + path, srv.URL + "/doc.pdf"} {
		doc, err := n.Load(context.Background(), src)
		if err != nil {
			t.Errorf("Load(%q): %v", src, err)
			continue
		}
		if doc.PageCount() != 2 {
			t.Errorf("Load(%q): %d pages, want 2", src, doc.PageCount())
		}
		doc.Close()
	}

	if _, err := n.Load(context.Background(), srv.URL+"/missing.pdf"); err == nil {
		t.Error("Load of a 404 URL succeeded")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.txt")
	os.WriteFile(notPDF, []byte("hello"), 0o644)
	encrypted := writePDF(t, pdftest.Doc{Pages: []pdftest.Page{{}}, Encrypt: true})

	ctx := context.Background()
	n := &Native{}
	if _, err := n.Load(ctx, filepath.Join(dir, "missing.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := n.Load(ctx, notPDF); !errors.Is(err, pdf.ErrNotPDF) {
		t.Errorf("non-PDF error = %v", err)
	}
	if _, err := n.Load(ctx, encrypted); !errors.Is(err, ErrEncrypted) {
		t.Errorf("encrypted error = %v", err)
	}
	small := &Native{MaxBytes: 16}
	if _, err := small.Load(ctx, encrypted); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := n.Load(cancelled, encrypted); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled load error = %v", err)
	}
}

func TestPageViewportAndRender(t *testing.T) {
	path := writePDF(t, pdftest.Doc{
		Compress: true,
		Pages: []pdftest.Page{
			{MediaBox: [4]float64{0, 0, 200, 100}, Content: "1 0 0 rg 0 0 100 100 re f"},
			{MediaBox: [4]float64{0, 0, 200, 100}, Rotate: 90},
		},
	})
	doc, err := (&Native{}).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	ctx := context.Background()
	page, err := doc.Page(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		scale    float64
		rotation int
		want     model.Viewport
	}{
		{1, 0, model.Viewport{Width: 200, Height: 100, Scale: 1}},
		{2, 0, model.Viewport{Width: 400, Height: 200, Scale: 2}},
		{1, 90, model.Viewport{Width: 100, Height: 200, Scale: 1, Rotation: 90}},
		{1, -90, model.Viewport{Width: 100, Height: 200, Scale: 1, Rotation: 270}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, page.Viewport(tt.scale, tt.rotation)); diff != "" {
			t.Errorf("Viewport(%v, %d) mismatch (-want +got):\n%s", tt.scale, tt.rotation, diff)
		}
	}

	vp := page.Viewport(1, 0)
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	if err := page.Render(ctx, img, vp); err != nil {
		t.Fatal(err)
	}
	// The red square covers the left half; the rest stays white.
	if got := img.RGBAAt(50, 50); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("left half pixel = %v, want red", got)
	}
	if got := img.RGBAAt(150, 50); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("right half pixel = %v, want white", got)
	}

	rotated, err := doc.Page(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := rotated.Viewport(1, 0); got.Width != 100 || got.Height != 200 || got.Rotation != 0 {
		t.Errorf("page /Rotate not applied: %+v", got)
	}
	if got := rotated.Viewport(1, 90); got.Width != 200 || got.Height != 100 {
		t.Errorf("page /Rotate not composed with user rotation: %+v", got)
	}

	if _, err := doc.Page(ctx, 3); !errors.Is(err, viewer.ErrPageRange) {
		t.Errorf("Page(3) error = %v", err)
	}
	doc.Close()
	if err := page.Render(ctx, img, vp); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close error = %v", err)
	}
}

func TestBackends(t *testing.T) {
	src, err := New("native", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Native); !ok {
		t.Errorf("native backend is %T", src)
	}
	if _, err := New("nope", Options{}); err == nil {
		t.Error("unknown backend accepted")
	}
	if Register("native", nil) {
		t.Error("native backend registered twice")
	}
}

func TestViewerEndToEnd(t *testing.T) {
	path := writePDF(t, pdftest.Doc{Pages: []pdftest.Page{
		{MediaBox: [4]float64{0, 0, 300, 400}, Content: "0 0 1 rg 0 0 300 400 re f"},
	}})
	canvas := viewer.NewCanvas()
	v := viewer.New(viewer.Options{Source: &Native{}, Surface: canvas})
	defer v.Close()

	done := make(chan struct{}, 4)
	v.Bus().Subscribe(events.NameRenderComplete, func(events.Event) { done <- struct{}{} })
	v.SetScale(viewer.Numeric(0.5))
	v.SetSrc(path)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("document never rendered")
	}

	img := canvas.Image()
	if img.Bounds().Dx() != 150 || img.Bounds().Dy() != 200 {
		t.Fatalf("surface %v, want 150x200", img.Bounds())
	}
	if got := img.RGBAAt(75, 100); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("centre pixel = %v, want blue", got)
	}
}
