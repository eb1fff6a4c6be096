package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/eventbus"
)

const (
	watcherBuffer = 64
	writeTimeout  = 5 * time.Second
)

// handleEvents upgrades to a websocket and streams entity change events
// until the client goes away. The optional entity_type_id query parameter
// restricts the stream to one entity type.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "event stream is not enabled")
		return
	}
	typeFilter := r.URL.Query().Get("entity_type_id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// The feed is one-way; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())

	ch := make(chan eventbus.Event, watcherBuffer)
	unsubscribe := s.events.Subscribe("websocket:"+r.RemoteAddr, eventbus.HandlerFunc(
		func(_ context.Context, evt eventbus.Event) error {
			if typeFilter != "" && evt.EntityTypeID != typeFilter {
				return nil
			}
			select {
			case ch <- evt:
			default:
				s.logger.Warn("event watcher lagging, dropping event",
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("entity_id", evt.EntityID),
				)
			}
			return nil
		}))
	defer unsubscribe()

	s.metrics.watchers.Inc()
	defer s.metrics.watchers.Dec()
	s.logger.Debug("event watcher connected", zap.String("remote_addr", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-ch:
			if err := s.sendEvent(ctx, conn, evt); err != nil {
				s.logger.Debug("event watcher write failed",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func (s *Server) sendEvent(ctx context.Context, conn *websocket.Conn, evt eventbus.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, evt)
}
