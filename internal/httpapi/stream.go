package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/monitor"
)

const streamWriteTimeout = 5 * time.Second

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// streamEvent is one websocket frame: a full status snapshot right after
// the upgrade, then one frame per confirmed transition.
type streamEvent struct {
	Kind       string                 `json:"kind"`
	Status     []monitor.TargetStatus `json:"status,omitempty"`
	Transition *domain.Transition     `json:"transition,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	events, cancel := s.Monitor.Subscribe()
	defer cancel()

	s.Logger.Debug("stream_opened", zap.String("remote", r.RemoteAddr))
	s.serveStream(conn, events)
	s.Logger.Debug("stream_closed", zap.String("remote", r.RemoteAddr))
}

func (s *Server) serveStream(conn *websocket.Conn, events <-chan domain.Transition) {
	defer conn.Close()

	if err := writeStreamEvent(conn, streamEvent{Kind: "status", Status: s.Monitor.Status()}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case tr := <-events:
			if err := writeStreamEvent(conn, streamEvent{Kind: "transition", Transition: &tr}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeStreamEvent(conn *websocket.Conn, ev streamEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(ev)
}
