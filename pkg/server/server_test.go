package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/loader"
	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/pdf/pdftest"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

type fixture struct {
	srv      *httptest.Server
	viewer   *viewer.Viewer
	path     string
	rendered chan events.RenderComplete
}

func setup(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	data := pdftest.Doc{Pages: []pdftest.Page{
		{Content: "1 0 0 rg 0 0 612 792 re f"},
		{},
		{},
	}}.Bytes()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	canvas := viewer.NewCanvas()
	v := viewer.New(viewer.Options{Source: &loader.Native{}, Surface: canvas, ResizeDebounce: 5 * time.Millisecond})
	t.Cleanup(func() { v.Close() })

	f := &fixture{viewer: v, path: path, rendered: make(chan events.RenderComplete, 64)}
	v.Bus().Subscribe(events.NameRenderComplete, func(e events.Event) {
		f.rendered <- e.(events.RenderComplete)
	})

	f.srv = httptest.NewServer(New(Config{}, v, canvas, nil).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, stateResponse) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, rd)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var st stateResponse
	json.NewDecoder(resp.Body).Decode(&st)
	return resp, st
}

// waitRender returns the first render with the given scale.
func (f *fixture) waitRender(t *testing.T, scale float64) events.RenderComplete {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case rc := <-f.rendered:
			if rc.Viewport.Scale == scale {
				return rc
			}
		case <-timeout:
			t.Fatalf("no render at scale %v", scale)
		}
	}
}

func (f *fixture) load(t *testing.T, scale string) {
	t.Helper()
	resp, _ := f.do(t, http.MethodPatch, "/api/state", map[string]any{"src": f.path, "scale": scale})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH /api/state: %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	resp, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestStateAndSurface(t *testing.T) {
	f := setup(t)

	resp, err := http.Get(f.srv.URL + "/api/surface.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("surface before render: %d, want 404", resp.StatusCode)
	}

	f.load(t, "0.5")
	f.waitRender(t, 0.5)

	_, st := f.do(t, http.MethodGet, "/api/state", nil)
	if st.Src != f.path || st.PageCount == nil || *st.PageCount != 3 {
		t.Errorf("state after load: %+v", st)
	}
	if st.Viewport == nil || st.Viewport.Width != 306 || st.Viewport.Height != 396 {
		t.Errorf("viewport = %+v, want 306x396", st.Viewport)
	}
	if st.Scale != viewer.Numeric(0.5) {
		t.Errorf("scale = %v", st.Scale)
	}

	resp, err = http.Get(f.srv.URL + "/api/surface.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 306 || b.Dy() != 396 {
		t.Errorf("surface %v, want 306x396", b)
	}
	if r, g, b, _ := img.At(150, 200).RGBA(); r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("surface pixel = %d,%d,%d, want red", r>>8, g>>8, b>>8)
	}
}

func TestPatchValidation(t *testing.T) {
	f := setup(t)
	for _, body := range []any{
		map[string]any{"rotation": 45},
		"not an object",
	} {
		resp, _ := f.do(t, http.MethodPatch, "/api/state", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("PATCH %v: %d, want 400", body, resp.StatusCode)
		}
	}

	f.load(t, "1")
	f.waitRender(t, 1)
	for _, page := range []int{0, -3} {
		resp, st := f.do(t, http.MethodPatch, "/api/state", map[string]any{"page": page})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PATCH page %d: %d, want 200", page, resp.StatusCode)
		}
		if st.Page != page || st.ValidPage != 1 {
			t.Errorf("PATCH page %d: page/validPage = %d/%d, want %d/1", page, st.Page, st.ValidPage, page)
		}
	}
	_, st := f.do(t, http.MethodPatch, "/api/state", map[string]any{"rotation": -90})
	if st.Rotation != 270 {
		t.Errorf("rotation = %d, want 270", st.Rotation)
	}
}

func TestPageNavigation(t *testing.T) {
	f := setup(t)
	f.load(t, "1")
	f.waitRender(t, 1)

	steps := []struct {
		path string
		want int
	}{
		{"/api/page/next", 2},
		{"/api/page/prev", 1},
		{"/api/page/prev", 3},
		{"/api/page/next", 1},
	}
	for _, s := range steps {
		_, st := f.do(t, http.MethodPost, s.path, nil)
		if st.Page != s.want {
			t.Errorf("%s: page %d, want %d", s.path, st.Page, s.want)
		}
	}
}

func TestResizeAndWheel(t *testing.T) {
	f := setup(t)
	f.load(t, "cover")

	resp, st := f.do(t, http.MethodPost, "/api/resize", map[string]any{"width": 306, "height": 100})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("resize: %d", resp.StatusCode)
	}
	if st.Container.Width != 306 {
		t.Errorf("container = %+v", st.Container)
	}
	// cover fits the wider axis: 306 / 612
	f.waitRender(t, 0.5)

	var out struct {
		Consumed bool          `json:"consumed"`
		State    stateResponse `json:"state"`
	}
	post := func(ev viewer.WheelEvent) {
		b, _ := json.Marshal(ev)
		resp, err := http.Post(f.srv.URL+"/api/wheel", "application/json", bytes.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		json.NewDecoder(resp.Body).Decode(&out)
	}

	post(viewer.WheelEvent{DeltaY: -100})
	if out.Consumed {
		t.Error("plain wheel consumed")
	}
	post(viewer.WheelEvent{DeltaY: -100, Ctrl: true})
	if !out.Consumed || out.State.Scale != viewer.Numeric(0.6) {
		t.Errorf("ctrl wheel: consumed=%v scale=%v, want true 0.6", out.Consumed, out.State.Scale)
	}
}

func TestPresets(t *testing.T) {
	f := setup(t)
	resp, _ := f.do(t, http.MethodPost, "/api/presets/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown preset: %d", resp.StatusCode)
	}
	f.do(t, http.MethodPost, "/api/presets/contain", nil)

	deadline := time.Now().Add(2 * time.Second)
	for f.viewer.Scale() != viewer.Contain {
		if time.Now().After(deadline) {
			t.Fatalf("scale = %v, want contain", f.viewer.Scale())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketEvents(t *testing.T) {
	f := setup(t)
	f.load(t, "1")
	f.waitRender(t, 1)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	readUntil := func(match func(message) bool) message {
		t.Helper()
		for {
			var m message
			if err := conn.ReadJSON(&m); err != nil {
				t.Fatalf("read: %v", err)
			}
			if match(m) {
				return m
			}
		}
	}

	if err := conn.WriteJSON(message{Type: events.NameScaleChange, Scale: "0.25"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := readUntil(func(m message) bool {
		return m.Type == events.NameRenderComplete && m.Viewport != nil && m.Viewport.Scale == 0.25
	})
	if m.Viewer != f.viewer.ID() || m.Page != 1 {
		t.Errorf("renderComplete = %+v", m)
	}

	conn.WriteJSON(message{Type: "bogus"})
	m = readUntil(func(m message) bool { return m.Type == events.NameError })
	if !strings.Contains(m.Error, "unknown message type") {
		t.Errorf("error message = %q", m.Error)
	}

	f.do(t, http.MethodPatch, "/api/state", map[string]any{"src": filepath.Join(t.TempDir(), "missing.pdf")})
	m = readUntil(func(m message) bool { return m.Type == events.NameError })
	if m.Viewer != f.viewer.ID() || !strings.Contains(m.Error, "missing.pdf") {
		t.Errorf("load error = %+v", m)
	}
}

type recordingLogger struct {
	observability.NopLogger
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Warn(msg string, _ ...observability.Field) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

// brokenWriter fails every body write, like a client that went away.
type brokenWriter struct{ header http.Header }

func (w *brokenWriter) Header() http.Header       { return w.header }
func (w *brokenWriter) WriteHeader(int)           {}
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteFailuresAreLogged(t *testing.T) {
	logger := &recordingLogger{}
	canvas := viewer.NewCanvas()
	canvas.Commit(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	s := &Server{canvas: canvas, log: logger}

	s.writeJSON(&brokenWriter{header: http.Header{}}, http.StatusOK, map[string]int{"page": 1})
	req := httptest.NewRequest(http.MethodGet, "/api/surface", nil)
	s.handleSurface(&brokenWriter{header: http.Header{}}, req)

	want := []string{"writing response", "writing surface"}
	if diff := cmp.Diff(want, logger.messages()); diff != "" {
		t.Errorf("logged messages mismatch (-want +got):\n%s", diff)
	}
}
