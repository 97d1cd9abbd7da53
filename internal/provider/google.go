package provider

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// googleAdapter handles Gemini, which fragment-routes conversations.
// The URL alone cannot distinguish a conversation from the blank app
// shell, so the strict check requires rendered conversation content.
type googleAdapter struct {
	now func() time.Time
}

func newGoogle() Adapter {
	return &googleAdapter{now: time.Now}
}

func (g *googleAdapter) Key() string     { return "google" }
func (g *googleAdapter) Name() string    { return "Google Gemini" }
func (g *googleAdapter) ChatURL() string { return "https://gemini.google.com/app" }

func (g *googleAdapter) MatchesHost(host string) bool {
	return host == "gemini.google.com"
}

func (g *googleAdapter) IsConversationURL(u *url.URL) bool {
	return strings.Contains(u.Path, "/app") || u.Fragment != ""
}

func (g *googleAdapter) IsConversation(snap *PageSnapshot) bool {
	u, err := url.Parse(snap.URL)
	if err != nil {
		return false
	}
	if !g.IsConversationURL(u) {
		return false
	}
	if !g.usableTitle(snap.DocTitle) {
		return false
	}
	return g.hasConversationContent(snap)
}

func (g *googleAdapter) hasConversationContent(snap *PageSnapshot) bool {
	for _, m := range snap.Messages {
		if len(strings.TrimSpace(m)) > 10 {
			return true
		}
	}
	return strings.TrimSpace(snap.InputText) != ""
}

func (g *googleAdapter) Title(snap *PageSnapshot) (string, bool) {
	for _, h := range snap.Headings {
		if t := strings.TrimSpace(h); g.usableTitle(t) && len(t) < maxTitleLen {
			return t, true
		}
	}

	// Derive a title from the first prompt when the page never renders
	// a conversation heading.
	for _, m := range append(snap.Messages, snap.InputText) {
		t := strings.TrimSpace(m)
		if len(t) > 5 && len(t) < 100 {
			return truncateWords(t, 6), true
		}
	}

	if t := strings.TrimSpace(snap.DocTitle); g.usableTitle(t) {
		return t, true
	}

	// Last resort: a synthesized timestamped title.
	return fmt.Sprintf("Gemini Chat %s", g.now().Format("2006-01-02 15:04")), true
}

func (g *googleAdapter) usableTitle(title string) bool {
	title = strings.TrimSpace(title)
	if len(title) <= minTitleLen || title == "Gemini" {
		return false
	}
	return !strings.Contains(title, "Google AI") && !strings.Contains(title, "Sign in")
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
