package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TreeHandler handles the organizer tree endpoints: folders, chats,
// subchats, settings, and the pending-link routes.
type TreeHandler struct {
	*Handler
}

// NewTreeHandler creates a new tree handler.
func NewTreeHandler(base *Handler) *TreeHandler {
	return &TreeHandler{Handler: base}
}

// RegisterRoutes registers all tree routes under /api.
func (h *TreeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/data", h.GetAllData)

		r.Post("/folders", h.CreateFolder)
		r.Delete("/folders/{folderID}", h.DeleteFolder)
		r.Post("/folders/{folderID}/chats", h.CreateChatInFolder)
		r.Post("/folders/{folderID}/open", h.OpenFolderChat)

		r.Delete("/chats/{chatID}", h.DeleteChat)
		r.Patch("/chats/{chatID}", h.RenameChat)
		r.Post("/chats/{chatID}/subchats", h.CreateSubchat)

		r.Post("/links/check", h.CheckPendingLinks)
		r.Get("/links/pending", h.ListPendingLinks)

		r.Put("/settings", h.UpdateSettings)
	})
}

// GetAllData returns the full organizer state for the sidepanel.
func (h *TreeHandler) GetAllData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	folders, err := h.repo.ListFolders(ctx)
	if err != nil {
		slog.Error("Failed to list folders", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	chats, err := h.repo.ListChats(ctx)
	if err != nil {
		slog.Error("Failed to list chats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	settings, err := h.repo.GetSettings(ctx)
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load data")
		return
	}

	JSON(w, http.StatusOK, domain.TreeData{Folders: folders, Chats: chats, Settings: settings})
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// CreateFolder creates a folder record, opens a default-provider tab,
// and registers a folder pending link for it. The steps are not
// transactional: if the tab cannot be opened the folder still exists
// without a linked conversation and no pending link is registered.
func (h *TreeHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "folder name is required")
		return
	}

	ctx := r.Context()
	if req.ParentID != "" {
		parent, err := h.repo.GetFolder(ctx, req.ParentID)
		if err != nil {
			slog.Error("Failed to look up parent folder", "error", err, "parent_id", req.ParentID)
			Error(w, http.StatusInternalServerError, "failed to create folder")
			return
		}
		if parent == nil {
			Error(w, http.StatusNotFound, "parent folder not found")
			return
		}
	}

	folder := &domain.Folder{
		ID:        uuid.NewString(),
		Name:      req.Name,
		ParentID:  req.ParentID,
		Expanded:  true,
		CreatedAt: time.Now(),
	}
	if err := h.repo.InsertFolder(ctx, folder); err != nil {
		slog.Error("Failed to insert folder", "error", err, "name", req.Name)
		Error(w, http.StatusInternalServerError, "failed to create folder")
		return
	}
	slog.Info("Folder created", "folder_id", folder.ID, "name", folder.Name)

	// Default provider for folder creation; the pending link adopts
	// whatever conversation the user starts in the opened tab.
	adapter := h.providers.ByKey("")
	h.openAndRegister(ctx, domain.LinkKindFolder, folder.ID, adapter.ChatURL(), "", "")

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "folder": folder})
}

// DeleteFolder removes a folder and cascades to every chat whose
// folder_id matches. Chats anchored only by parent_chat_id survive.
func (h *TreeHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	if folderID == domain.RootFolderID {
		Error(w, http.StatusBadRequest, "cannot delete the root folder")
		return
	}

	chatsDeleted, err := h.repo.DeleteFolder(r.Context(), folderID)
	if err != nil {
		slog.Error("Failed to delete folder", "error", err, "folder_id", folderID)
		Error(w, http.StatusInternalServerError, "failed to delete folder")
		return
	}

	slog.Info("Folder deleted", "folder_id", folderID, "chats_deleted", chatsDeleted)
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "chats_deleted": chatsDeleted})
}

type createChatRequest struct {
	Title string `json:"title"`
	LLM   string `json:"llm,omitempty"`
}

// CreateChatInFolder creates a chat record in a folder, opens a tab at
// the chosen provider, and registers a chat pending link.
func (h *TreeHandler) CreateChatInFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")

	var req createChatRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		Error(w, http.StatusBadRequest, "chat title is required")
		return
	}

	ctx := r.Context()
	folder, err := h.repo.GetFolder(ctx, folderID)
	if err != nil {
		slog.Error("Failed to look up folder", "error", err, "folder_id", folderID)
		Error(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	if folder == nil {
		Error(w, http.StatusNotFound, "folder not found")
		return
	}

	adapter := h.providers.ByKey(req.LLM)
	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.NewString(),
		Title:     req.Title,
		FolderID:  folder.ID,
		LLM:       adapter.Key(),
		LLMName:   adapter.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.InsertChat(ctx, chat); err != nil {
		slog.Error("Failed to insert chat", "error", err, "folder_id", folderID)
		Error(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	slog.Info("Chat created", "chat_id", chat.ID, "folder_id", folder.ID, "llm", chat.LLM)

	h.openAndRegister(ctx, domain.LinkKindChat, chat.ID, adapter.ChatURL(), chat.Title, chat.LLM)

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "chat": chat})
}

// CreateSubchat creates a chat anchored under a parent chat. The
// subchat inherits the parent's folder at creation time.
func (h *TreeHandler) CreateSubchat(w http.ResponseWriter, r *http.Request) {
	parentChatID := chi.URLParam(r, "chatID")

	var req createChatRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		Error(w, http.StatusBadRequest, "chat title is required")
		return
	}

	ctx := r.Context()
	parent, err := h.repo.GetChat(ctx, parentChatID)
	if err != nil {
		slog.Error("Failed to look up parent chat", "error", err, "chat_id", parentChatID)
		Error(w, http.StatusInternalServerError, "failed to create subchat")
		return
	}
	if parent == nil {
		Error(w, http.StatusNotFound, "parent chat not found")
		return
	}

	adapter := h.providers.ByKey(req.LLM)
	now := time.Now()
	chat := &domain.Chat{
		ID:           uuid.NewString(),
		Title:        req.Title,
		FolderID:     parent.FolderID,
		ParentChatID: parent.ID,
		LLM:          adapter.Key(),
		LLMName:      adapter.Name(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.repo.InsertChat(ctx, chat); err != nil {
		slog.Error("Failed to insert subchat", "error", err, "parent_chat_id", parentChatID)
		Error(w, http.StatusInternalServerError, "failed to create subchat")
		return
	}
	slog.Info("Subchat created", "chat_id", chat.ID, "parent_chat_id", parent.ID, "llm", chat.LLM)

	h.openAndRegister(ctx, domain.LinkKindSubchat, chat.ID, adapter.ChatURL(), chat.Title, chat.LLM)

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "chat": chat})
}

// DeleteChat removes a single chat record.
func (h *TreeHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := h.repo.DeleteChat(r.Context(), chatID); err != nil {
		slog.Error("Failed to delete chat", "error", err, "chat_id", chatID)
		Error(w, http.StatusInternalServerError, "failed to delete chat")
		return
	}

	slog.Info("Chat deleted", "chat_id", chatID)
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type renameChatRequest struct {
	NewTitle string `json:"new_title"`
}

// RenameChat updates a chat's title. A missing chat is logged by the
// store, never surfaced as an error.
func (h *TreeHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req renameChatRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.NewTitle = strings.TrimSpace(req.NewTitle)
	if req.NewTitle == "" {
		Error(w, http.StatusBadRequest, "new title is required")
		return
	}

	if err := h.repo.RenameChat(r.Context(), chatID, req.NewTitle); err != nil {
		slog.Error("Failed to rename chat", "error", err, "chat_id", chatID)
		Error(w, http.StatusInternalServerError, "failed to rename chat")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// OpenFolderChat opens the folder's linked conversation in a new tab.
func (h *TreeHandler) OpenFolderChat(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	ctx := r.Context()

	folder, err := h.repo.GetFolder(ctx, folderID)
	if err != nil {
		slog.Error("Failed to look up folder", "error", err, "folder_id", folderID)
		Error(w, http.StatusInternalServerError, "failed to open folder chat")
		return
	}
	if folder == nil {
		Error(w, http.StatusNotFound, "folder not found")
		return
	}
	if !folder.HasLinkedChat() {
		Error(w, http.StatusConflict, "folder has no linked conversation")
		return
	}

	tabID, err := h.browser.OpenTab(ctx, folder.ChatURL)
	if err != nil {
		slog.Error("Failed to open folder chat tab", "error", err, "folder_id", folderID)
		Error(w, http.StatusBadGateway, "failed to open browser tab")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "tab_id": tabID})
}

type checkLinksRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	TabID int64  `json:"tab_id"`
}

type checkLinksResponse struct {
	Success bool            `json:"success"`
	Linked  bool            `json:"linked"`
	Kind    domain.LinkKind `json:"type,omitempty"`
}

// CheckPendingLinks resolves a reporting tab against the pending links.
func (h *TreeHandler) CheckPendingLinks(w http.ResponseWriter, r *http.Request) {
	var req checkLinksRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		Error(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := h.coord.ResolveTab(r.Context(), req.URL, req.Title, req.TabID)
	if err != nil {
		slog.Error("Failed to resolve tab", "error", err, "tab_id", req.TabID)
		Error(w, http.StatusInternalServerError, "failed to check pending links")
		return
	}

	JSON(w, http.StatusOK, checkLinksResponse{Success: true, Linked: res.Linked, Kind: res.Kind})
}

// ListPendingLinks returns the current pending links (diagnostics).
func (h *TreeHandler) ListPendingLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.PeekAll(r.Context())
	if err != nil {
		slog.Error("Failed to list pending links", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list pending links")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "links": links})
}

// UpdateSettings replaces the stored settings.
func (h *TreeHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(r, &settings); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.UpdateSettings(r.Context(), settings); err != nil {
		slog.Error("Failed to update settings", "error", err)
		Error(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	slog.Info("Settings updated", "auto_capture", settings.AutoCapture, "theme", settings.Theme)
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "settings": settings})
}

// openAndRegister opens a background tab for a creation flow and
// registers the pending link keyed by the new tab's id. A bridge
// failure leaves the freshly created record URL-less with no pending
// link; the error is logged, not retried, and not surfaced.
func (h *TreeHandler) openAndRegister(ctx context.Context, kind domain.LinkKind, targetID, url, title, llm string) {
	tabID, err := h.browser.OpenTab(ctx, url)
	if err != nil {
		slog.Error("Failed to open tab for creation flow", "error", err, "kind", kind, "target_id", targetID)
		return
	}
	if err := h.links.Register(ctx, kind, targetID, tabID, title, llm); err != nil {
		slog.Error("Failed to register pending link", "error", err, "kind", kind, "target_id", targetID)
	}
}
