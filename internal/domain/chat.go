package domain

import (
	"time"
)

// Chat is a saved conversation. URL stays empty until the opened tab
// reports a detected conversation and the linker fills it in. A chat
// with ParentChatID set is a subchat; it inherits FolderID from its
// parent at creation time and placement is immutable afterward.
type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	FolderID     string    `json:"folder_id,omitempty"`
	ParentChatID string    `json:"parent_chat_id,omitempty"`
	LLM          string    `json:"llm,omitempty"`
	LLMName      string    `json:"llm_name,omitempty"`
	Preview      string    `json:"preview,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsSubchat returns true if the chat is anchored under another chat
// rather than directly under a folder.
func (c *Chat) IsSubchat() bool {
	return c.ParentChatID != ""
}

// IsLinked returns true once a conversation URL has been attached.
func (c *Chat) IsLinked() bool {
	return c.URL != ""
}

// TreeData is the full organizer state returned to the UI.
type TreeData struct {
	Folders  []*Folder `json:"folders"`
	Chats    []*Chat   `json:"chats"`
	Settings Settings  `json:"settings"`
}
