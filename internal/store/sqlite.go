package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chatgrove/chatgrove/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	pendingMu sync.Mutex // Serializes pending-link consume (select + delete must be one-shot)
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT,
		expanded INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		chat_url TEXT
	);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT,
		folder_id TEXT,
		parent_chat_id TEXT,
		llm TEXT,
		llm_name TEXT,
		preview TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chats_folder ON chats(folder_id);

	CREATE TABLE IF NOT EXISTS pending_links (
		kind TEXT PRIMARY KEY,
		target_id TEXT NOT NULL,
		tab_id INTEGER NOT NULL,
		title TEXT,
		llm TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		auto_capture INTEGER NOT NULL,
		theme TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Seed the root folder and default settings on first run.
	now := time.Now().Unix()
	seed := `
	INSERT OR IGNORE INTO folders (id, name, parent_id, expanded, created_at, chat_url)
	VALUES (?, 'Root', NULL, 1, ?, NULL);
	`
	if _, err := s.db.Exec(seed, domain.RootFolderID, now); err != nil {
		return fmt.Errorf("seed root folder: %w", err)
	}

	defaults := domain.DefaultSettings()
	seedSettings := `
	INSERT OR IGNORE INTO settings (id, auto_capture, theme) VALUES (1, ?, ?);
	`
	if _, err := s.db.Exec(seedSettings, boolToInt(defaults.AutoCapture), defaults.Theme); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by id.
func (s *SQLiteStore) GetFolder(ctx context.Context, folderID string) (*domain.Folder, error) {
	query := `SELECT id, name, parent_id, expanded, created_at, chat_url FROM folders WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, folderID)
	folder, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan folder row: %w", err)
	}
	return folder, nil
}

// InsertFolder creates a new folder record.
func (s *SQLiteStore) InsertFolder(ctx context.Context, folder *domain.Folder) error {
	query := `
	INSERT INTO folders (id, name, parent_id, expanded, created_at, chat_url)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		folder.ID, folder.Name, toNull(folder.ParentID),
		boolToInt(folder.Expanded), folder.CreatedAt.Unix(), toNull(folder.ChatURL),
	)
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// SetFolderChatURL attaches a linked conversation URL to a folder.
func (s *SQLiteStore) SetFolderChatURL(ctx context.Context, folderID, chatURL string) error {
	query := `UPDATE folders SET chat_url = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, chatURL, folderID)
	if err != nil {
		return fmt.Errorf("update folder chat_url: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("SetFolderChatURL affected 0 rows", "folder_id", folderID)
	}
	return nil
}

// DeleteFolder removes a folder and its directly-owned chats.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, folderID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete folder tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chatRes, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE folder_id = ?`, folderID)
	if err != nil {
		return 0, fmt.Errorf("delete folder chats: %w", err)
	}
	chatsDeleted, err := chatRes.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("folder chats rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID); err != nil {
		return 0, fmt.Errorf("delete folder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete folder: %w", err)
	}
	return chatsDeleted, nil
}

// ListFolders returns all folders ordered by creation time.
func (s *SQLiteStore) ListFolders(ctx context.Context) ([]*domain.Folder, error) {
	query := `SELECT id, name, parent_id, expanded, created_at, chat_url FROM folders ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer closeRows(rows, "folders")

	var folders []*domain.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder row: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// GetChat retrieves a chat by id.
func (s *SQLiteStore) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	query := `
	SELECT id, title, url, folder_id, parent_chat_id, llm, llm_name, preview, created_at, updated_at
	FROM chats WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, chatID)
	chat, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat row: %w", err)
	}
	return chat, nil
}

// InsertChat creates a new chat record.
func (s *SQLiteStore) InsertChat(ctx context.Context, chat *domain.Chat) error {
	query := `
	INSERT INTO chats (id, title, url, folder_id, parent_chat_id, llm, llm_name, preview, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		chat.ID, chat.Title, toNull(chat.URL), toNull(chat.FolderID), toNull(chat.ParentChatID),
		toNull(chat.LLM), toNull(chat.LLMName), toNull(chat.Preview),
		chat.CreatedAt.Unix(), chat.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// DeleteChat removes a single chat record.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// RenameChat updates a chat's title and updated_at.
func (s *SQLiteStore) RenameChat(ctx context.Context, chatID, newTitle string) error {
	query := `UPDATE chats SET title = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, newTitle, time.Now().Unix(), chatID)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("RenameChat affected 0 rows", "chat_id", chatID)
	}
	return nil
}

// SetChatURL attaches a linked conversation URL to a chat.
func (s *SQLiteStore) SetChatURL(ctx context.Context, chatID, url string) error {
	query := `UPDATE chats SET url = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, url, time.Now().Unix(), chatID)
	if err != nil {
		return fmt.Errorf("update chat url: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("SetChatURL affected 0 rows", "chat_id", chatID)
	}
	return nil
}

// ListChats returns all chats ordered by creation time.
func (s *SQLiteStore) ListChats(ctx context.Context) ([]*domain.Chat, error) {
	query := `
	SELECT id, title, url, folder_id, parent_chat_id, llm, llm_name, preview, created_at, updated_at
	FROM chats ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer closeRows(rows, "chats")

	var chats []*domain.Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, nil
}

// UpsertPendingLink stores a pending link, last write wins per kind.
func (s *SQLiteStore) UpsertPendingLink(ctx context.Context, link *domain.PendingLink) error {
	query := `
	INSERT INTO pending_links (kind, target_id, tab_id, title, llm, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(kind) DO UPDATE SET
		target_id = excluded.target_id,
		tab_id = excluded.tab_id,
		title = excluded.title,
		llm = excluded.llm,
		created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		string(link.Kind), link.TargetID, link.TabID,
		toNull(link.Title), toNull(link.LLM), link.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert pending link: %w", err)
	}
	return nil
}

// ConsumePendingLink deletes and returns the matching pending link.
func (s *SQLiteStore) ConsumePendingLink(ctx context.Context, kind domain.LinkKind, tabID int64) (*domain.PendingLink, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	query := `SELECT kind, target_id, tab_id, title, llm, created_at FROM pending_links WHERE kind = ? AND tab_id = ?`
	row := s.db.QueryRowContext(ctx, query, string(kind), tabID)
	link, err := scanPendingLink(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan pending link: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE kind = ? AND tab_id = ?`, string(kind), tabID); err != nil {
		return nil, fmt.Errorf("delete consumed pending link: %w", err)
	}
	return link, nil
}

// ListPendingLinks returns all current pending links.
func (s *SQLiteStore) ListPendingLinks(ctx context.Context) ([]*domain.PendingLink, error) {
	query := `SELECT kind, target_id, tab_id, title, llm, created_at FROM pending_links ORDER BY kind`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pending links: %w", err)
	}
	defer closeRows(rows, "pending_links")

	var links []*domain.PendingLink
	for rows.Next() {
		link, err := scanPendingLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending links: %w", err)
	}
	return links, nil
}

// DeleteExpiredPendingLinks removes pending links older than ttl.
func (s *SQLiteStore) DeleteExpiredPendingLinks(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending links: %w", err)
	}
	return result.RowsAffected()
}

// DeletePendingLinksForTab removes pending links referencing tabID.
func (s *SQLiteStore) DeletePendingLinksForTab(ctx context.Context, tabID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pending_links WHERE tab_id = ?`, tabID)
	if err != nil {
		return 0, fmt.Errorf("delete pending links for tab: %w", err)
	}
	return result.RowsAffected()
}

// GetSettings retrieves the stored settings.
func (s *SQLiteStore) GetSettings(ctx context.Context) (domain.Settings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT auto_capture, theme FROM settings WHERE id = 1`)

	var autoCapture int
	var settings domain.Settings
	err := row.Scan(&autoCapture, &settings.Theme)
	if err == sql.ErrNoRows {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("scan settings: %w", err)
	}
	settings.AutoCapture = autoCapture != 0
	return settings, nil
}

// UpdateSettings replaces the stored settings.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	query := `
	INSERT INTO settings (id, auto_capture, theme) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET auto_capture = excluded.auto_capture, theme = excluded.theme`

	if _, err := s.db.ExecContext(ctx, query, boolToInt(settings.AutoCapture), settings.Theme); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*domain.Folder, error) {
	var folder domain.Folder
	var parentID, chatURL sql.NullString
	var expanded int
	var createdAt int64

	if err := row.Scan(&folder.ID, &folder.Name, &parentID, &expanded, &createdAt, &chatURL); err != nil {
		return nil, err
	}

	folder.ParentID = parentID.String
	folder.ChatURL = chatURL.String
	folder.Expanded = expanded != 0
	folder.CreatedAt = time.Unix(createdAt, 0)
	return &folder, nil
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var chat domain.Chat
	var url, folderID, parentChatID, llm, llmName, preview sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&chat.ID, &chat.Title, &url, &folderID, &parentChatID,
		&llm, &llmName, &preview, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	chat.URL = url.String
	chat.FolderID = folderID.String
	chat.ParentChatID = parentChatID.String
	chat.LLM = llm.String
	chat.LLMName = llmName.String
	chat.Preview = preview.String
	chat.CreatedAt = time.Unix(createdAt, 0)
	chat.UpdatedAt = time.Unix(updatedAt, 0)
	return &chat, nil
}

func scanPendingLink(row rowScanner) (*domain.PendingLink, error) {
	var link domain.PendingLink
	var kind string
	var title, llm sql.NullString
	var createdAt int64

	if err := row.Scan(&kind, &link.TargetID, &link.TabID, &title, &llm, &createdAt); err != nil {
		return nil, err
	}

	link.Kind = domain.LinkKind(kind)
	link.Title = title.String
	link.LLM = llm.String
	link.CreatedAt = time.Unix(createdAt, 0)
	return &link, nil
}

func closeRows(rows *sql.Rows, table string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "table", table, "error", err)
	}
}

func toNull(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
