package linker

import (
	"context"
	"sync"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
)

// fakeRepo is an in-memory Repository for exercising the linking
// protocol without SQLite.
type fakeRepo struct {
	mu       sync.Mutex
	folders  map[string]*domain.Folder
	chats    map[string]*domain.Chat
	pending  map[domain.LinkKind]*domain.PendingLink
	settings domain.Settings
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		folders:  map[string]*domain.Folder{domain.RootFolderID: {ID: domain.RootFolderID, Name: "Root", Expanded: true, CreatedAt: time.Now()}},
		chats:    make(map[string]*domain.Chat),
		pending:  make(map[domain.LinkKind]*domain.PendingLink),
		settings: domain.DefaultSettings(),
	}
}

func (f *fakeRepo) GetFolder(_ context.Context, folderID string) (*domain.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder := f.folders[folderID]
	if folder == nil {
		return nil, nil
	}
	copy := *folder
	return &copy, nil
}

func (f *fakeRepo) InsertFolder(_ context.Context, folder *domain.Folder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *folder
	f.folders[folder.ID] = &copy
	return nil
}

func (f *fakeRepo) SetFolderChatURL(_ context.Context, folderID, chatURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if folder := f.folders[folderID]; folder != nil {
		folder.ChatURL = chatURL
	}
	return nil
}

func (f *fakeRepo) DeleteFolder(_ context.Context, folderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.folders, folderID)
	var deleted int64
	for id, chat := range f.chats {
		if chat.FolderID == folderID {
			delete(f.chats, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) ListFolders(_ context.Context) ([]*domain.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var folders []*domain.Folder
	for _, folder := range f.folders {
		copy := *folder
		folders = append(folders, &copy)
	}
	return folders, nil
}

func (f *fakeRepo) GetChat(_ context.Context, chatID string) (*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat := f.chats[chatID]
	if chat == nil {
		return nil, nil
	}
	copy := *chat
	return &copy, nil
}

func (f *fakeRepo) InsertChat(_ context.Context, chat *domain.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *chat
	f.chats[chat.ID] = &copy
	return nil
}

func (f *fakeRepo) DeleteChat(_ context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chats, chatID)
	return nil
}

func (f *fakeRepo) RenameChat(_ context.Context, chatID, newTitle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chat := f.chats[chatID]; chat != nil {
		chat.Title = newTitle
		chat.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeRepo) SetChatURL(_ context.Context, chatID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chat := f.chats[chatID]; chat != nil {
		chat.URL = url
		chat.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeRepo) ListChats(_ context.Context) ([]*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chats []*domain.Chat
	for _, chat := range f.chats {
		copy := *chat
		chats = append(chats, &copy)
	}
	return chats, nil
}

func (f *fakeRepo) UpsertPendingLink(_ context.Context, link *domain.PendingLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *link
	f.pending[link.Kind] = &copy
	return nil
}

func (f *fakeRepo) ConsumePendingLink(_ context.Context, kind domain.LinkKind, tabID int64) (*domain.PendingLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link := f.pending[kind]
	if link == nil || link.TabID != tabID {
		return nil, nil
	}
	delete(f.pending, kind)
	copy := *link
	return &copy, nil
}

func (f *fakeRepo) ListPendingLinks(_ context.Context) ([]*domain.PendingLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var links []*domain.PendingLink
	for _, link := range f.pending {
		copy := *link
		links = append(links, &copy)
	}
	return links, nil
}

func (f *fakeRepo) DeleteExpiredPendingLinks(_ context.Context, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var deleted int64
	for kind, link := range f.pending {
		if link.Expired(ttl, now) {
			delete(f.pending, kind)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) DeletePendingLinksForTab(_ context.Context, tabID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for kind, link := range f.pending {
		if link.TabID == tabID {
			delete(f.pending, kind)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) GetSettings(_ context.Context) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeRepo) UpdateSettings(_ context.Context, settings domain.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = settings
	return nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

// chatCount reports how many chats the fake currently holds.
func (f *fakeRepo) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats)
}

// chatByURL returns the first chat with the given URL, if any.
func (f *fakeRepo) chatByURL(url string) *domain.Chat {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, chat := range f.chats {
		if chat.URL == url {
			copy := *chat
			return &copy
		}
	}
	return nil
}
