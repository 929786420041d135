package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/AOShei/pdf-viewer/pkg/events"
	"github.com/AOShei/pdf-viewer/pkg/model"
	"github.com/AOShei/pdf-viewer/pkg/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sendBuffer bounds the events queued for one client; a client that falls
// further behind loses events.
const sendBuffer = 32

// message is the websocket frame in both directions. Type is an event name.
type message struct {
	Type     string          `json:"type"`
	Viewer   string          `json:"viewer,omitempty"`
	Scale    string          `json:"scale,omitempty"`
	Rotation *int            `json:"rotation,omitempty"`
	Page     int             `json:"page,omitempty"`
	Viewport *model.Viewport `json:"viewport,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func toMessage(e events.Event) (message, bool) {
	switch ev := e.(type) {
	case events.RenderComplete:
		vp := ev.Viewport
		return message{Type: ev.Name(), Viewer: ev.Viewer, Page: ev.Page, Viewport: &vp}, true
	case events.ErrorEvent:
		m := message{Type: ev.Name(), Viewer: ev.Viewer}
		if ev.Err != nil {
			m.Error = ev.Err.Error()
		}
		return m, true
	}
	return message{}, false
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", observability.Error("err", err))
		return
	}
	defer conn.Close()

	// All writes go through out so only one goroutine writes to conn.
	out := make(chan message, sendBuffer)
	send := func(m message) {
		select {
		case out <- m:
		default:
			s.log.Warn("dropping event for slow websocket client", observability.String("type", m.Type))
		}
	}
	bus := s.viewer.Bus()
	forward := func(e events.Event) {
		if m, ok := toMessage(e); ok {
			send(m)
		}
	}
	unsubRender := bus.Subscribe(events.NameRenderComplete, forward)
	unsubError := bus.Subscribe(events.NameError, forward)
	defer unsubRender()
	defer unsubError()

	stop := make(chan struct{})
	written := make(chan struct{})
	go func() {
		defer close(written)
		for {
			select {
			case m := <-out:
				if err := conn.WriteJSON(m); err != nil {
					s.log.Debug("websocket write", observability.Error("err", err))
					return
				}
			case <-stop:
				return
			}
		}
	}()
	defer func() {
		close(stop)
		conn.Close()
		<-written
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read", observability.Error("err", err))
			}
			return
		}

		var req message
		if err := json.Unmarshal(data, &req); err != nil {
			send(message{Type: events.NameError, Error: "invalid message format"})
			continue
		}
		switch req.Type {
		case events.NameScaleChange:
			s.toolbar.SetScale(req.Scale)
		case events.NameRotationChange:
			if req.Rotation == nil {
				send(message{Type: events.NameError, Error: "rotation is required"})
				continue
			}
			s.toolbar.SetRotation(*req.Rotation)
		default:
			send(message{Type: events.NameError, Error: "unknown message type: " + req.Type})
		}
	}
}
