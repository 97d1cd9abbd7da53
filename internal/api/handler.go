// Package api exposes the sidepanel's message protocol as HTTP routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatgrove/chatgrove/internal/linker"
	"github.com/chatgrove/chatgrove/internal/provider"
	"github.com/chatgrove/chatgrove/internal/store"
)

// TabOpener opens a browser tab through the extension bridge and
// returns the browser-assigned tab id.
type TabOpener interface {
	OpenTab(ctx context.Context, url string) (int64, error)
}

// Handler provides common handler dependencies.
type Handler struct {
	repo      store.Repository
	links     *linker.Registry
	coord     *linker.Coordinator
	providers *provider.Registry
	browser   TabOpener
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, links *linker.Registry, coord *linker.Coordinator, providers *provider.Registry, browser TabOpener) *Handler {
	return &Handler{
		repo:      repo,
		links:     links,
		coord:     coord,
		providers: providers,
		browser:   browser,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "error": message})
}

// decodeJSON decodes a JSON request body and closes it.
func decodeJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
