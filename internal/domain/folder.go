// Package domain contains core domain types for the chatgrove tree.
package domain

import (
	"time"
)

// RootFolderID is the id of the always-present root folder every
// standalone chat falls back to.
const RootFolderID = "root"

// Folder is a node in the organizer tree. ParentID is empty for
// root-level folders; ChatURL is set once a conversation opened for
// the folder has been linked back.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	Expanded  bool      `json:"expanded"`
	CreatedAt time.Time `json:"created_at"`
	ChatURL   string    `json:"chat_url,omitempty"`
}

// IsRoot returns true for the seeded root folder.
func (f *Folder) IsRoot() bool {
	return f.ID == RootFolderID
}

// HasLinkedChat returns true once a conversation URL has been attached.
func (f *Folder) HasLinkedChat() bool {
	return f.ChatURL != ""
}
