package domain

import (
	"time"
)

// LinkKind identifies which creation flow a pending link belongs to.
type LinkKind string

const (
	LinkKindFolder  LinkKind = "folder"
	LinkKindSubchat LinkKind = "subchat"
	LinkKindChat    LinkKind = "chat"
)

// LinkKinds is the fixed resolution priority order: a reporting tab is
// matched against folder links first, then subchat, then chat.
var LinkKinds = []LinkKind{LinkKindFolder, LinkKindSubchat, LinkKindChat}

// PendingLink records the intent behind an opened browser tab: the
// folder or chat waiting for that tab's eventual conversation URL.
// At most one record exists per kind; a newer registration of the same
// kind overwrites the older one.
type PendingLink struct {
	Kind      LinkKind  `json:"kind"`
	TargetID  string    `json:"target_id"`
	TabID     int64     `json:"tab_id"`
	Title     string    `json:"title,omitempty"`
	LLM       string    `json:"llm,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired returns true if the link is older than ttl at the given time.
func (p *PendingLink) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(p.CreatedAt) > ttl
}
