package provider

import (
	"net/url"
	"strings"
)

const (
	minTitleLen = 3
	maxTitleLen = 200
)

// pathAdapter covers providers whose conversations are recognizable
// from the URL path alone.
type pathAdapter struct {
	key         string
	name        string
	hosts       []string
	chatURL     string
	pathMarkers []string // any substring match on the path counts
	anyDeepPath bool     // any path beyond "/" also counts
	bareTitle   string   // the landing-page document title
}

func (p *pathAdapter) Key() string     { return p.key }
func (p *pathAdapter) Name() string    { return p.name }
func (p *pathAdapter) ChatURL() string { return p.chatURL }

func (p *pathAdapter) MatchesHost(host string) bool {
	for _, h := range p.hosts {
		if host == h {
			return true
		}
	}
	return false
}

func (p *pathAdapter) IsConversationURL(u *url.URL) bool {
	for _, marker := range p.pathMarkers {
		if strings.Contains(u.Path, marker) {
			return true
		}
	}
	return p.anyDeepPath && len(u.Path) > 1
}

func (p *pathAdapter) IsConversation(snap *PageSnapshot) bool {
	u, err := url.Parse(snap.URL)
	if err != nil {
		return false
	}
	return p.IsConversationURL(u) && p.usableTitle(snap.DocTitle)
}

func (p *pathAdapter) Title(snap *PageSnapshot) (string, bool) {
	for _, h := range snap.Headings {
		if t := strings.TrimSpace(h); p.usableTitle(t) && len(t) < maxTitleLen {
			return t, true
		}
	}
	if t := strings.TrimSpace(snap.DocTitle); p.usableTitle(t) {
		return t, true
	}
	return "", false
}

func (p *pathAdapter) usableTitle(title string) bool {
	title = strings.TrimSpace(title)
	return len(title) > minTitleLen && title != p.bareTitle
}

func newOpenAI() Adapter {
	return &pathAdapter{
		key:         "openai",
		name:        "OpenAI GPT",
		hosts:       []string{"chatgpt.com", "chat.openai.com"},
		chatURL:     "https://chatgpt.com/",
		pathMarkers: []string{"/c/", "/chat"},
		bareTitle:   "ChatGPT",
	}
}

func newAnthropic() Adapter {
	return &pathAdapter{
		key:         "anthropic",
		name:        "Anthropic Claude",
		hosts:       []string{"claude.ai"},
		chatURL:     "https://claude.ai/chat/",
		pathMarkers: []string{"/chat/", "/conversation/"},
		bareTitle:   "Claude",
	}
}

func newPerplexity() Adapter {
	return &pathAdapter{
		key:         "perplexity",
		name:        "Perplexity",
		hosts:       []string{"www.perplexity.ai", "perplexity.ai"},
		chatURL:     "https://www.perplexity.ai/",
		pathMarkers: []string{"/search/"},
		anyDeepPath: true,
		bareTitle:   "Perplexity",
	}
}

func newXAI() Adapter {
	return &pathAdapter{
		key:         "xai",
		name:        "xAI Grok",
		hosts:       []string{"grok.x.ai"},
		chatURL:     "https://grok.x.ai/",
		pathMarkers: []string{"/chat"},
		anyDeepPath: true,
		bareTitle:   "Grok",
	}
}

func newDeepSeek() Adapter {
	return &pathAdapter{
		key:         "deepseek",
		name:        "DeepSeek",
		hosts:       []string{"chat.deepseek.com"},
		chatURL:     "https://chat.deepseek.com/",
		pathMarkers: []string{"/chat"},
		anyDeepPath: true,
		bareTitle:   "DeepSeek",
	}
}
