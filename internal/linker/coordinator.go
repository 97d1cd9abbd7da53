package linker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
	"github.com/chatgrove/chatgrove/internal/provider"
	"github.com/chatgrove/chatgrove/internal/store"
	"github.com/google/uuid"
)

const (
	fallbackChatTitle = "New Chat"
	maxPreviewLen     = 200
)

// LinkResult reports how a tab event was resolved.
type LinkResult struct {
	Linked bool            `json:"linked"`
	Kind   domain.LinkKind `json:"type,omitempty"`
}

// DetectionResult extends LinkResult for the content-script path,
// where an unlinked detection may fall through to standalone capture.
type DetectionResult struct {
	LinkResult
	Saved  bool   `json:"saved,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// Coordinator consumes extractor reports and registry entries, applies
// the kind-specific store mutation, and clears the consumed intent.
type Coordinator struct {
	repo      store.Repository
	registry  *Registry
	providers *provider.Registry
}

// NewCoordinator creates a linking coordinator.
func NewCoordinator(repo store.Repository, registry *Registry, providers *provider.Registry) *Coordinator {
	return &Coordinator{repo: repo, registry: registry, providers: providers}
}

// ResolveTab matches a reporting tab against pending links in fixed
// priority order (folder, subchat, chat) and applies the first match's
// mutation. At most one mutation happens per invocation. A missing
// mutation target is logged, never escalated: the tab-event path must
// not fail because a record has since been deleted.
func (c *Coordinator) ResolveTab(ctx context.Context, url, title string, tabID int64) (LinkResult, error) {
	for _, kind := range domain.LinkKinds {
		link, err := c.registry.Consume(ctx, kind, tabID)
		if err != nil {
			return LinkResult{}, err
		}
		if link == nil {
			continue
		}

		if kind == domain.LinkKindFolder {
			err = c.linkFolder(ctx, link, url, title)
		} else {
			err = c.linkChat(ctx, link, url)
		}
		if err != nil {
			return LinkResult{}, err
		}

		slog.Info("Tab linked", "kind", kind, "target_id", link.TargetID, "tab_id", tabID, "url", url)
		return LinkResult{Linked: true, Kind: kind}, nil
	}

	return LinkResult{}, nil
}

// linkFolder attaches the conversation URL to the folder and
// materializes a chat record for it.
func (c *Coordinator) linkFolder(ctx context.Context, link *domain.PendingLink, url, title string) error {
	folder, err := c.repo.GetFolder(ctx, link.TargetID)
	if err != nil {
		return err
	}
	if folder == nil {
		slog.Warn("Folder not found for pending link", "folder_id", link.TargetID)
		return nil
	}

	if err := c.repo.SetFolderChatURL(ctx, folder.ID, url); err != nil {
		return err
	}

	if title == "" {
		title = fallbackChatTitle
	}
	now := time.Now()
	return c.repo.InsertChat(ctx, &domain.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       url,
		FolderID:  folder.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// linkChat fills in the URL of the chat or subchat the tab was opened
// for.
func (c *Coordinator) linkChat(ctx context.Context, link *domain.PendingLink, url string) error {
	chat, err := c.repo.GetChat(ctx, link.TargetID)
	if err != nil {
		return err
	}
	if chat == nil {
		slog.Warn("Chat not found for pending link", "chat_id", link.TargetID, "kind", link.Kind)
		return nil
	}
	return c.repo.SetChatURL(ctx, chat.ID, url)
}

// HandleDetection processes a conversation report from a page's
// content script. Re-detection on repeated title mutations is safe:
// consume is one-shot, so only the first report of a pending tab
// mutates anything, and standalone capture only fires while the page
// still resolves to not-linked.
func (c *Coordinator) HandleDetection(ctx context.Context, tabID int64, snap *provider.PageSnapshot) (DetectionResult, error) {
	adapter, _ := c.providers.ForURL(snap.URL)
	if adapter == nil {
		return DetectionResult{}, nil
	}
	if !adapter.IsConversation(snap) {
		return DetectionResult{}, nil
	}

	title, ok := adapter.Title(snap)
	if !ok {
		return DetectionResult{}, nil
	}

	res, err := c.ResolveTab(ctx, snap.URL, title, tabID)
	if err != nil {
		return DetectionResult{}, err
	}
	if res.Linked {
		return DetectionResult{LinkResult: res}, nil
	}

	settings, err := c.repo.GetSettings(ctx)
	if err != nil {
		return DetectionResult{}, err
	}
	if !settings.AutoCapture {
		return DetectionResult{}, nil
	}

	// No pending intent matched: persist the conversation as a
	// standalone chat under the root folder.
	now := time.Now()
	chat := &domain.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       snap.URL,
		FolderID:  domain.RootFolderID,
		LLM:       adapter.Key(),
		LLMName:   adapter.Name(),
		Preview:   previewFrom(snap),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.repo.InsertChat(ctx, chat); err != nil {
		return DetectionResult{}, err
	}

	slog.Info("Standalone chat captured", "chat_id", chat.ID, "title", title, "llm", chat.LLM)
	return DetectionResult{Saved: true, ChatID: chat.ID}, nil
}

// previewFrom extracts a short preview from the first substantial
// message on the page.
func previewFrom(snap *provider.PageSnapshot) string {
	for _, m := range snap.Messages {
		text := strings.TrimSpace(m)
		if len(text) <= 10 {
			continue
		}
		if len(text) > maxPreviewLen {
			return text[:maxPreviewLen] + "..."
		}
		return text
	}
	return ""
}
