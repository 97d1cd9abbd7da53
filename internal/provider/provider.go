// Package provider holds per-provider heuristics for recognizing and
// titling AI conversations. Provider SPA routing is inconsistent (some
// providers path-route conversations, Gemini fragment-routes), so each
// provider ships its own adapter instead of one shared URL pattern.
package provider

import (
	"net/url"
)

// PageSnapshot is the content script's serialized view of a provider
// page: the raw material for conversation validation and title
// extraction.
type PageSnapshot struct {
	URL       string   `json:"url"`
	DocTitle  string   `json:"doc_title"`
	Headings  []string `json:"headings,omitempty"`
	Messages  []string `json:"messages,omitempty"`
	InputText string   `json:"input_text,omitempty"`
}

// Adapter recognizes one provider's conversations.
type Adapter interface {
	// Key is the llm enum value ("openai", "anthropic", ...).
	Key() string

	// Name is the display string ("OpenAI GPT", "Google Gemini", ...).
	Name() string

	// MatchesHost reports whether the hostname belongs to this provider.
	MatchesHost(host string) bool

	// ChatURL is the landing URL a new tab is opened at.
	ChatURL() string

	// IsConversationURL is the permissive URL-shape check used on tab
	// events. Deliberately loose: SPA routing does not always produce a
	// full navigation, so title changes re-run it.
	IsConversationURL(u *url.URL) bool

	// IsConversation is the strict page-level check used when a content
	// script reports a detection.
	IsConversation(snap *PageSnapshot) bool

	// Title extracts a conversation title from the page. The second
	// return is false when nothing usable was found.
	Title(snap *PageSnapshot) (string, bool)
}

// Registry is the fixed set of supported providers.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds the registry with all supported providers.
func NewRegistry() *Registry {
	return &Registry{adapters: []Adapter{
		newOpenAI(),
		newAnthropic(),
		newGoogle(),
		newPerplexity(),
		newXAI(),
		newDeepSeek(),
	}}
}

// ByHost returns the adapter for a hostname, or nil for unrecognized
// hosts.
func (r *Registry) ByHost(host string) Adapter {
	for _, a := range r.adapters {
		if a.MatchesHost(host) {
			return a
		}
	}
	return nil
}

// ByKey returns the adapter for an llm key. Unknown keys fall back to
// OpenAI, matching the historical default.
func (r *Registry) ByKey(key string) Adapter {
	for _, a := range r.adapters {
		if a.Key() == key {
			return a
		}
	}
	return r.adapters[0]
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// ForURL parses a raw URL and returns its adapter plus the parsed URL.
// Malformed URLs are treated as "not a recognized provider", never an
// error.
func (r *Registry) ForURL(rawURL string) (Adapter, *url.URL) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, nil
	}
	adapter := r.ByHost(u.Hostname())
	if adapter == nil {
		return nil, nil
	}
	return adapter, u
}
