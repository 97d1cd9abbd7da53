package browser

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chatgrove/chatgrove/internal/domain"
	"github.com/chatgrove/chatgrove/internal/linker"
	"github.com/chatgrove/chatgrove/internal/provider"
	"github.com/chatgrove/chatgrove/internal/tabs"
	"github.com/coder/websocket"
)

// TabEvents receives tab lifecycle events from the extension.
type TabEvents interface {
	HandleUpdate(ctx context.Context, ev tabs.TabEvent) error
	HandleRemoved(ctx context.Context, tabID int64) error
}

// Detector processes full-page conversation detections.
type Detector interface {
	HandleDetection(ctx context.Context, tabID int64, snap *provider.PageSnapshot) (linker.DetectionResult, error)
}

// WebSocketHandler upgrades the extension connection and dispatches
// its messages to the tab observer and the link coordinator.
type WebSocketHandler struct {
	bridge        *Bridge
	events        TabEvents
	detector      Detector
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(bridge *Bridge, events TabEvents, detector Detector, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		bridge:        bridge,
		events:        events,
		detector:      detector,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage covers every message type the extension sends.
type wsMessage struct {
	Type  string                 `json:"type"`
	ID    string                 `json:"id,omitempty"`
	TabID int64                  `json:"tab_id,omitempty"`
	URL   string                 `json:"url,omitempty"`
	Title string                 `json:"title,omitempty"`
	Error string                 `json:"error,omitempty"`
	Page  *provider.PageSnapshot `json:"page,omitempty"`
}

// linkResultMessage tells the content script whether its tab got
// adopted by a pending link.
type linkResultMessage struct {
	Type   string          `json:"type"`
	TabID  int64           `json:"tab_id"`
	Linked bool            `json:"linked"`
	Kind   domain.LinkKind `json:"link_type,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("Browser connection request", "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	h.bridge.Register(ws)
	defer h.bridge.Unregister(ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws)
	slog.Info("Browser session ended")
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client")
			} else {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Unparseable browser message", "error", err)
			continue
		}

		h.dispatch(ctx, ws, msg)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, ws *websocket.Conn, msg wsMessage) {
	switch msg.Type {
	case "ping":
		if err := h.bridge.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
			slog.Debug("Failed to send pong", "error", err)
		}
	case "open_tab_result":
		h.bridge.ResolveOpenTab(msg.ID, msg.TabID, msg.Error)
	case "tab_updated":
		ev := tabs.TabEvent{TabID: msg.TabID, URL: msg.URL, Title: msg.Title}
		if err := h.events.HandleUpdate(ctx, ev); err != nil {
			slog.Error("Failed to handle tab update", "error", err, "tab_id", msg.TabID)
		}
	case "tab_removed":
		if err := h.events.HandleRemoved(ctx, msg.TabID); err != nil {
			slog.Error("Failed to handle tab removal", "error", err, "tab_id", msg.TabID)
		}
	case "conversation_detected":
		if msg.Page == nil {
			slog.Warn("Detection without page snapshot", "tab_id", msg.TabID)
			return
		}
		res, err := h.detector.HandleDetection(ctx, msg.TabID, msg.Page)
		if err != nil {
			slog.Error("Failed to handle detection", "error", err, "tab_id", msg.TabID)
			return
		}
		reply := linkResultMessage{Type: "link_result", TabID: msg.TabID, Linked: res.Linked, Kind: res.Kind}
		if err := h.bridge.writeJSON(ctx, ws, reply); err != nil {
			slog.Debug("Failed to send link result", "error", err, "tab_id", msg.TabID)
		}
		if res.Linked || res.Saved {
			h.bridge.NotifyDataChanged()
		}
	default:
		slog.Debug("Unknown browser message", "type", msg.Type)
	}
}
