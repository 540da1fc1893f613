package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard clients connect from arbitrary local origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is the wire envelope for live records.
type streamMessage struct {
	Category string `json:"category"`
	Record   any    `json:"record"`
}

// handleEventStream upgrades to WebSocket and forwards live records from all
// four categories. Delivery is best-effort: the subscription buffers are
// bounded, so a slow client loses records instead of stalling ingestion.
func (s *Server) handleEventStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	tools, cancelTools := s.engine.SubscribeToolCalls()
	defer cancelTools()
	resources, cancelResources := s.engine.SubscribeResourceAccesses()
	defer cancelResources()
	prompts, cancelPrompts := s.engine.SubscribePromptCalls()
	defer cancelPrompts()
	errors, cancelErrors := s.engine.SubscribeErrors()
	defer cancelErrors()

	// Read pump: discard client frames, detect disconnect.
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
		var msg streamMessage
		select {
		case rec := <-tools:
			msg = streamMessage{Category: "tool", Record: rec}
		case rec := <-resources:
			msg = streamMessage{Category: "resource", Record: rec}
		case rec := <-prompts:
			msg = streamMessage{Category: "prompt", Record: rec}
		case rec := <-errors:
			msg = streamMessage{Category: "error", Record: rec}
		case <-done:
			return nil
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("event stream write failed: %v", err)
			return nil
		}
	}
}
