package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dinner-ticketing/internal/auth"
	"dinner-ticketing/internal/logger"
	"dinner-ticketing/internal/sse"
)

const heartbeatInterval = 25 * time.Second

// SSEHandler streams order lifecycle events to the admin dashboard
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.OrderEventEmitter
}

func NewSSEHandler(log *logger.Logger, emitter *sse.OrderEventEmitter) *SSEHandler {
	return &SSEHandler{
		Logger:       log,
		EventEmitter: emitter,
	}
}

// HandleOrderEvents streams every order event until the client disconnects.
func (h *SSEHandler) HandleOrderEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Debug("SSE", fmt.Sprintf("Could not clear write deadline: %v", err))
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.EventEmitter.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	if err := rc.Flush(); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Streaming unsupported: %v", err))
		return
	}

	staff := auth.UserID(ctx)
	h.Logger.Info("SSE", fmt.Sprintf("Staff %s connected to order events (%d clients)", staff, h.EventEmitter.ClientCount()))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize order event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			rc.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			rc.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Staff %s disconnected from order events", staff))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
