// Package browser maintains the WebSocket channel to the extension:
// the daemon's only way to open tabs and hear about tab lifecycle.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// wsConn is the subset of *websocket.Conn the bridge writes through.
type wsConn interface {
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// openTabResult is the extension's answer to an open_tab command.
type openTabResult struct {
	tabID int64
	err   string
}

// Bridge holds the single active extension connection and correlates
// open-tab commands with their responses. A reconnecting extension
// replaces the previous connection.
type Bridge struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	active  wsConn
	waiters map[string]chan openTabResult
	nextID  atomic.Int64
	timeout time.Duration
}

// NewBridge creates a bridge with the given open-tab response timeout.
func NewBridge(timeout time.Duration) *Bridge {
	return &Bridge{
		waiters: make(map[string]chan openTabResult),
		timeout: timeout,
	}
}

// Register installs a new extension connection, closing any previous
// one.
func (b *Bridge) Register(conn wsConn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil && b.active != conn {
		_ = b.active.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	b.active = conn
	slog.Info("Browser connected")
}

// Unregister removes a connection if it is still the active one.
func (b *Bridge) Unregister(conn wsConn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == conn {
		b.active = nil
		slog.Info("Browser disconnected")
	}
}

// Connected reports whether an extension connection is active.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// openTabCommand is sent to the extension; tabs open in the
// background so the user's current page keeps focus.
type openTabCommand struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// OpenTab asks the browser to open url in a background tab and returns
// the browser-assigned tab id. Fails when no extension is connected or
// the response does not arrive within the bridge timeout.
func (b *Bridge) OpenTab(ctx context.Context, url string) (int64, error) {
	id := "cmd-" + strconv.FormatInt(b.nextID.Add(1), 10)
	ch := make(chan openTabResult, 1)

	b.mu.Lock()
	if b.active == nil {
		b.mu.Unlock()
		return 0, fmt.Errorf("no browser connected")
	}
	b.waiters[id] = ch
	conn := b.active
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
	}()

	if err := b.writeJSON(ctx, conn, openTabCommand{Type: "open_tab", ID: id, URL: url}); err != nil {
		return 0, fmt.Errorf("send open_tab: %w", err)
	}

	select {
	case res := <-ch:
		if res.err != "" {
			return 0, fmt.Errorf("browser failed to open tab: %s", res.err)
		}
		return res.tabID, nil
	case <-time.After(b.timeout):
		return 0, fmt.Errorf("open_tab timed out after %s", b.timeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ResolveOpenTab delivers an open_tab_result to its waiting caller.
// Late responses (after timeout cleanup) are dropped.
func (b *Bridge) ResolveOpenTab(id string, tabID int64, errMsg string) {
	b.mu.Lock()
	ch, ok := b.waiters[id]
	if ok {
		delete(b.waiters, id)
	}
	b.mu.Unlock()

	if !ok {
		slog.Debug("Dropping late open_tab result", "id", id, "tab_id", tabID)
		return
	}
	ch <- openTabResult{tabID: tabID, err: errMsg}
}

// NotifyDataChanged tells the extension to reload the tree. Best
// effort: a disconnected browser just refetches on reconnect.
func (b *Bridge) NotifyDataChanged() {
	b.mu.Lock()
	conn := b.active
	b.mu.Unlock()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.writeJSON(ctx, conn, map[string]string{"type": "data_changed"}); err != nil {
		slog.Debug("Failed to send data_changed", "error", err)
	}
}

// writeJSON serializes writes: the websocket library allows only one
// concurrent writer.
func (b *Bridge) writeJSON(ctx context.Context, conn wsConn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}
