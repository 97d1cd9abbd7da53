// Package linker implements the pending-link protocol: the mechanism
// that retroactively associates a folder/chat creation with the
// conversation URL its opened tab eventually reports.
package linker

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
	"github.com/chatgrove/chatgrove/internal/store"
)

// Registry holds at most one pending intent per link kind. A second
// registration of the same kind overwrites the first, which becomes
// permanently orphaned; its tab's eventual report resolves to
// not-linked.
type Registry struct {
	repo store.Repository
}

// NewRegistry creates a pending-link registry over the repository.
func NewRegistry(repo store.Repository) *Registry {
	return &Registry{repo: repo}
}

// Register stores a pending link for the given kind, last write wins.
func (r *Registry) Register(ctx context.Context, kind domain.LinkKind, targetID string, tabID int64, title, llm string) error {
	link := &domain.PendingLink{
		Kind:      kind,
		TargetID:  targetID,
		TabID:     tabID,
		Title:     title,
		LLM:       llm,
		CreatedAt: time.Now(),
	}
	if err := r.repo.UpsertPendingLink(ctx, link); err != nil {
		return err
	}
	slog.Info("Pending link registered", "kind", kind, "target_id", targetID, "tab_id", tabID)
	return nil
}

// Consume returns and deletes the pending link of the given kind if it
// references tabID. One-shot: a second call returns nil.
func (r *Registry) Consume(ctx context.Context, kind domain.LinkKind, tabID int64) (*domain.PendingLink, error) {
	return r.repo.ConsumePendingLink(ctx, kind, tabID)
}

// PeekAll returns the current pending links of all kinds (diagnostics).
func (r *Registry) PeekAll(ctx context.Context) ([]*domain.PendingLink, error) {
	return r.repo.ListPendingLinks(ctx)
}

// CancelTab drops any pending links waiting on a tab that no longer
// exists.
func (r *Registry) CancelTab(ctx context.Context, tabID int64) error {
	deleted, err := r.repo.DeletePendingLinksForTab(ctx, tabID)
	if err != nil {
		return err
	}
	if deleted > 0 {
		slog.Info("Pending links cancelled for closed tab", "tab_id", tabID, "count", deleted)
	}
	return nil
}
