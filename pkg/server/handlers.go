package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

type stateResponse struct {
	ID        string          `json:"id"`
	Src       string          `json:"src"`
	Page      int             `json:"page"`
	ValidPage int             `json:"validPage"`
	Scale     viewer.Scale    `json:"scale"`
	Rotation  int             `json:"rotation"`
	PageCount *int            `json:"pageCount,omitempty"`
	Viewport  *model.Viewport `json:"viewport,omitempty"`
	Container model.Size      `json:"container"`
}

// stateRequest holds the properties to change; absent fields are left
// alone.
type stateRequest struct {
	Src      *string `json:"src"`
	Page     *int    `json:"page"`
	Scale    *string `json:"scale"`
	Rotation *int    `json:"rotation"`
}

func (s *Server) state() stateResponse {
	st := s.viewer.State()
	resp := stateResponse{
		ID:        s.viewer.ID(),
		Src:       st.Src,
		Page:      st.Page,
		ValidPage: st.ValidPage(),
		Scale:     st.Scale,
		Rotation:  st.Rotation,
		Container: s.viewer.ContainerSize(),
	}
	if st.HasPageCount {
		n := st.PageCount
		resp.PageCount = &n
	}
	if st.HasViewport {
		vp := st.Viewport
		resp.Viewport = &vp
	}
	return resp
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handlePatchState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Rotation != nil && *req.Rotation%90 != 0 {
		s.writeError(w, http.StatusBadRequest, viewer.ErrInvalidRotation.Error())
		return
	}

	if req.Src != nil {
		s.viewer.SetSrc(*req.Src)
	}
	// Any page is stored as sent; the rendered page is clamped to the
	// document.
	if req.Page != nil {
		s.viewer.SetPage(*req.Page)
	}
	if req.Scale != nil {
		s.viewer.SetScale(viewer.ParseScale(*req.Scale))
	}
	if req.Rotation != nil {
		if err := s.viewer.SetRotation(*req.Rotation); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var size model.Size
	if err := json.NewDecoder(r.Body).Decode(&size); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if size.Width < 0 || size.Height < 0 {
		s.writeError(w, http.StatusBadRequest, "size must be non-negative")
		return
	}
	s.viewer.Resize(size)
	s.writeJSON(w, http.StatusAccepted, s.state())
}

func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	s.viewer.NextPage()
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	s.viewer.PrevPage()
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleWheel(w http.ResponseWriter, r *http.Request) {
	var ev viewer.WheelEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	consumed := s.viewer.HandleWheel(ev)
	s.writeJSON(w, http.StatusOK, map[string]any{"consumed": consumed, "state": s.state()})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"scales":    viewer.ScalePresets,
		"rotations": viewer.RotationPresets,
	})
}

func (s *Server) handlePressPreset(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if !s.toolbar.Press(label) {
		s.writeError(w, http.StatusNotFound, "unknown preset "+label)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.canvas.EncodePNG(&buf); err != nil {
		if errors.Is(err, viewer.ErrNoDocument) {
			s.writeError(w, http.StatusNotFound, "nothing rendered yet")
			return
		}
		s.log.Error("encoding surface", observability.Error("err", err))
		s.writeError(w, http.StatusInternalServerError, "encoding surface")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Warn("writing surface", observability.Error("err", err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("writing response", observability.Int("status", status), observability.Error("err", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
