// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
)

// Repository defines the interface for persisting the organizer tree
// and the pending-link protocol state.
type Repository interface {
	// GetFolder retrieves a folder by id. Returns nil if not found.
	GetFolder(ctx context.Context, folderID string) (*domain.Folder, error)

	// InsertFolder creates a new folder record.
	InsertFolder(ctx context.Context, folder *domain.Folder) error

	// SetFolderChatURL attaches a linked conversation URL to a folder.
	SetFolderChatURL(ctx context.Context, folderID, chatURL string) error

	// DeleteFolder removes a folder and every chat whose folder_id
	// matches it. Chats anchored only via parent_chat_id are untouched.
	DeleteFolder(ctx context.Context, folderID string) (chatsDeleted int64, err error)

	// ListFolders returns all folders ordered by creation time.
	ListFolders(ctx context.Context) ([]*domain.Folder, error)

	// GetChat retrieves a chat by id. Returns nil if not found.
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)

	// InsertChat creates a new chat record.
	InsertChat(ctx context.Context, chat *domain.Chat) error

	// DeleteChat removes a single chat record.
	DeleteChat(ctx context.Context, chatID string) error

	// RenameChat updates a chat's title and updated_at.
	RenameChat(ctx context.Context, chatID, newTitle string) error

	// SetChatURL attaches a linked conversation URL to a chat and
	// bumps updated_at.
	SetChatURL(ctx context.Context, chatID, url string) error

	// ListChats returns all chats ordered by creation time.
	ListChats(ctx context.Context) ([]*domain.Chat, error)

	// UpsertPendingLink stores a pending link, overwriting any previous
	// record of the same kind (last write wins).
	UpsertPendingLink(ctx context.Context, link *domain.PendingLink) error

	// ConsumePendingLink deletes and returns the pending link of the
	// given kind if it references tabID. Returns nil if there is no
	// such record; a second call for the same record returns nil.
	ConsumePendingLink(ctx context.Context, kind domain.LinkKind, tabID int64) (*domain.PendingLink, error)

	// ListPendingLinks returns all current pending links (diagnostics).
	ListPendingLinks(ctx context.Context) ([]*domain.PendingLink, error)

	// DeleteExpiredPendingLinks removes pending links older than ttl.
	DeleteExpiredPendingLinks(ctx context.Context, ttl time.Duration) (int64, error)

	// DeletePendingLinksForTab removes pending links referencing tabID.
	DeletePendingLinksForTab(ctx context.Context, tabID int64) (int64, error)

	// GetSettings retrieves the stored settings.
	GetSettings(ctx context.Context) (domain.Settings, error)

	// UpdateSettings replaces the stored settings.
	UpdateSettings(ctx context.Context, settings domain.Settings) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
