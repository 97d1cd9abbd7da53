// Package tabs turns raw browser tab events into linking decisions.
package tabs

import (
	"context"
	"log/slog"

	"github.com/chatgrove/chatgrove/internal/linker"
	"github.com/chatgrove/chatgrove/internal/provider"
)

// TabEvent is a browser tab navigation or title change.
type TabEvent struct {
	TabID int64  `json:"tab_id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// TabResolver resolves a reporting tab against pending links.
type TabResolver interface {
	ResolveTab(ctx context.Context, url, title string, tabID int64) (linker.LinkResult, error)
}

// LinkCanceller drops pending links waiting on a tab.
type LinkCanceller interface {
	CancelTab(ctx context.Context, tabID int64) error
}

// Observer filters tab events to recognized AI-provider conversation
// pages and hands them to the linking coordinator. Title-only changes
// arrive as regular events and are re-evaluated: SPA routing does not
// always produce a navigation.
type Observer struct {
	providers *provider.Registry
	resolver  TabResolver
	canceller LinkCanceller
}

// NewObserver creates a tab lifecycle observer.
func NewObserver(providers *provider.Registry, resolver TabResolver, canceller LinkCanceller) *Observer {
	return &Observer{providers: providers, resolver: resolver, canceller: canceller}
}

// HandleUpdate processes a tab URL/title change. Non-provider and
// non-conversation URLs are a no-op; malformed URLs are treated as
// non-provider.
func (o *Observer) HandleUpdate(ctx context.Context, ev TabEvent) error {
	adapter, u := o.providers.ForURL(ev.URL)
	if adapter == nil {
		return nil
	}
	if !adapter.IsConversationURL(u) {
		return nil
	}

	slog.Debug("Conversation URL on tab", "tab_id", ev.TabID, "url", ev.URL, "provider", adapter.Key())

	res, err := o.resolver.ResolveTab(ctx, ev.URL, ev.Title, ev.TabID)
	if err != nil {
		return err
	}
	if res.Linked {
		slog.Info("Tab event resolved pending link", "tab_id", ev.TabID, "kind", res.Kind)
	}
	return nil
}

// HandleRemoved cancels any pending links waiting on a closed tab.
func (o *Observer) HandleRemoved(ctx context.Context, tabID int64) error {
	return o.canceller.CancelTab(ctx, tabID)
}
