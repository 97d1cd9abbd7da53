package provider

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", raw, err)
	}
	return u
}

func TestByHost(t *testing.T) {
	r := NewRegistry()

	cases := map[string]string{
		"chatgpt.com":       "openai",
		"chat.openai.com":   "openai",
		"claude.ai":         "anthropic",
		"gemini.google.com": "google",
		"www.perplexity.ai": "perplexity",
		"grok.x.ai":         "xai",
		"chat.deepseek.com": "deepseek",
	}
	for host, key := range cases {
		adapter := r.ByHost(host)
		if adapter == nil {
			t.Errorf("Expected adapter for %s", host)
			continue
		}
		if adapter.Key() != key {
			t.Errorf("Expected %s for host %s, got %s", key, host, adapter.Key())
		}
	}

	if r.ByHost("example.com") != nil {
		t.Error("Expected nil adapter for unknown host")
	}
}

func TestByKeyDefaultsToOpenAI(t *testing.T) {
	r := NewRegistry()

	if got := r.ByKey("google").Name(); got != "Google Gemini" {
		t.Errorf("Expected Google Gemini, got %s", got)
	}
	if got := r.ByKey("unknown").Key(); got != "openai" {
		t.Errorf("Expected unknown key to fall back to openai, got %s", got)
	}
}

func TestDisplayNames(t *testing.T) {
	r := NewRegistry()

	want := map[string]string{
		"openai":     "OpenAI GPT",
		"anthropic":  "Anthropic Claude",
		"google":     "Google Gemini",
		"perplexity": "Perplexity",
		"xai":        "xAI Grok",
		"deepseek":   "DeepSeek",
	}
	for key, name := range want {
		if got := r.ByKey(key).Name(); got != name {
			t.Errorf("Expected name %q for %s, got %q", name, key, got)
		}
	}
}

func TestIsConversationURL(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		url  string
		want bool
	}{
		{"https://claude.ai/chat/abc", true},
		{"https://claude.ai/settings", false},
		{"https://claude.ai/conversation/xyz", true},
		{"https://chatgpt.com/c/123", true},
		{"https://chatgpt.com/", false},
		{"https://chat.openai.com/chat", true},
		{"https://gemini.google.com/app", true},
		{"https://gemini.google.com/about#intro", true},
		{"https://www.perplexity.ai/search/q", true},
		{"https://www.perplexity.ai/", false},
		{"https://grok.x.ai/chat/1", true},
		{"https://chat.deepseek.com/anything", true},
	}
	for _, tc := range cases {
		u := mustParse(t, tc.url)
		adapter := r.ByHost(u.Hostname())
		if adapter == nil {
			t.Errorf("No adapter for %s", tc.url)
			continue
		}
		if got := adapter.IsConversationURL(u); got != tc.want {
			t.Errorf("IsConversationURL(%s) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestForURL(t *testing.T) {
	r := NewRegistry()

	adapter, u := r.ForURL("https://chatgpt.com/c/123")
	if adapter == nil || adapter.Key() != "openai" {
		t.Fatalf("Expected openai adapter, got %v", adapter)
	}
	if u.Path != "/c/123" {
		t.Errorf("Unexpected parsed path %q", u.Path)
	}

	if adapter, _ := r.ForURL("https://news.example.com/article"); adapter != nil {
		t.Error("Expected nil adapter for non-provider URL")
	}
	if adapter, _ := r.ForURL("::not a url::"); adapter != nil {
		t.Error("Expected malformed URL to be treated as non-provider")
	}
}

func TestPathAdapterIsConversation(t *testing.T) {
	r := NewRegistry()
	openai := r.ByKey("openai")

	snap := &PageSnapshot{URL: "https://chatgpt.com/c/123", DocTitle: "Topic A discussion"}
	if !openai.IsConversation(snap) {
		t.Error("Expected conversation page to validate")
	}

	// Landing page title means no conversation yet.
	snap = &PageSnapshot{URL: "https://chatgpt.com/c/123", DocTitle: "ChatGPT"}
	if openai.IsConversation(snap) {
		t.Error("Expected bare landing title to fail validation")
	}

	snap = &PageSnapshot{URL: "https://chatgpt.com/", DocTitle: "Topic A discussion"}
	if openai.IsConversation(snap) {
		t.Error("Expected non-conversation URL to fail validation")
	}
}

func TestPathAdapterTitleCascade(t *testing.T) {
	r := NewRegistry()
	claude := r.ByKey("anthropic")

	snap := &PageSnapshot{
		URL:      "https://claude.ai/chat/abc",
		DocTitle: "Claude",
		Headings: []string{"", "Claude", "Planning a garden"},
	}
	title, ok := claude.Title(snap)
	if !ok || title != "Planning a garden" {
		t.Errorf("Expected heading title, got %q (ok=%v)", title, ok)
	}

	// No usable heading: document title wins.
	snap = &PageSnapshot{URL: "https://claude.ai/chat/abc", DocTitle: "Garden chat - Claude", Headings: []string{"Claude"}}
	title, ok = claude.Title(snap)
	if !ok || title != "Garden chat - Claude" {
		t.Errorf("Expected doc title fallback, got %q (ok=%v)", title, ok)
	}

	// Overlong headings are skipped.
	snap = &PageSnapshot{URL: "https://claude.ai/chat/abc", DocTitle: "Claude", Headings: []string{strings.Repeat("x", 300)}}
	if _, ok = claude.Title(snap); ok {
		t.Error("Expected no usable title")
	}
}

func TestGoogleRequiresConversationContent(t *testing.T) {
	r := NewRegistry()
	google := r.ByKey("google")

	snap := &PageSnapshot{URL: "https://gemini.google.com/app", DocTitle: "Trip planning"}
	if google.IsConversation(snap) {
		t.Error("Expected empty app shell to fail validation")
	}

	snap.Messages = []string{"Help me plan a two week trip to Japan"}
	if !google.IsConversation(snap) {
		t.Error("Expected page with conversation content to validate")
	}

	snap = &PageSnapshot{URL: "https://gemini.google.com/app", DocTitle: "Google AI - Gemini", Messages: []string{"Help me plan a two week trip to Japan"}}
	if google.IsConversation(snap) {
		t.Error("Expected Google AI landing title to fail validation")
	}
}

func TestGoogleTitleFromPrompt(t *testing.T) {
	r := NewRegistry()
	google := r.ByKey("google")

	snap := &PageSnapshot{
		URL:      "https://gemini.google.com/app",
		DocTitle: "Gemini",
		Messages: []string{"Help me plan a two week trip to Japan this fall"},
	}
	title, ok := google.Title(snap)
	if !ok {
		t.Fatal("Expected a title")
	}
	if title != "Help me plan a two week..." {
		t.Errorf("Expected truncated prompt title, got %q", title)
	}
}

func TestGoogleTitleSynthesized(t *testing.T) {
	google := &googleAdapter{now: fixedNow}

	snap := &PageSnapshot{URL: "https://gemini.google.com/app", DocTitle: "Gemini"}
	title, ok := google.Title(snap)
	if !ok {
		t.Fatal("Expected synthesized title")
	}
	if title != "Gemini Chat 2026-08-28 12:00" {
		t.Errorf("Unexpected synthesized title %q", title)
	}
}
