// Package store persists notes, chat history and the source URL set in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoteNotFound is returned for lookups of unknown note ids.
var ErrNoteNotFound = errors.New("note not found")

// systemPrompt seeds a cleared (or brand new) chat history.
const systemPrompt = "Be concise. Ground in provided web/DB context when present."

// Note is one stored note.
type Note struct {
	ID        string
	Title     string
	Content   string
	CreatedAt string
	UpdatedAt string
}

// ChatMessage is one stored chat history entry.
type ChatMessage struct {
	Role    string
	Content string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedHistory(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	role TEXT NOT NULL,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	url TEXT PRIMARY KEY
);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", "001_initial").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	_, err = db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", "001_initial")
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// now formats timestamps the way the API exposes them.
func now() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// ListNotes returns all notes, newest first.
func (s *Store) ListNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, content, created_at, updated_at FROM notes ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNote returns one note by id.
func (s *Store) GetNote(ctx context.Context, id string) (Note, error) {
	var n Note
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content, created_at, updated_at FROM notes WHERE id = ?", id).
		Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNoteNotFound
	}
	return n, err
}

// CreateNote inserts an empty note with the given title.
func (s *Store) CreateNote(ctx context.Context, title string) (Note, error) {
	if title == "" {
		title = "Untitled"
	}
	n := Note{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// UpdateNote updates a note's title and/or content. Nil fields are left
// unchanged.
func (s *Store) UpdateNote(ctx context.Context, id string, title, content *string) (Note, error) {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = *content
	}
	n.UpdatedAt = now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?",
		n.Title, n.Content, n.UpdatedAt, id)
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// DeleteNote removes one note, reporting ErrNoteNotFound for unknown ids.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// History returns the persisted chat log in order.
func (s *Store) History(ctx context.Context) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT role, content FROM chat_messages ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// HistoryTail returns the last n chat messages in order.
func (s *Store) HistoryTail(ctx context.Context, n int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM (SELECT id, role, content FROM chat_messages ORDER BY id DESC LIMIT ?) ORDER BY id", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AppendMessage appends one chat message to the persisted log.
func (s *Store) AppendMessage(ctx context.Context, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (role, content) VALUES (?, ?)", role, content)
	return err
}

// ClearHistory discards the chat log and reseeds the system prompt.
func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_messages"); err != nil {
		return err
	}
	return s.AppendMessage(ctx, "system", systemPrompt)
}

func (s *Store) seedHistory(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_messages").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.AppendMessage(ctx, "system", systemPrompt)
}

// Sources returns the stored source URL set in insertion-stable order.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url FROM sources ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		sources = append(sources, url)
	}
	return sources, rows.Err()
}

// AddSources merges URLs into the source set (duplicates ignored) and
// returns the full set.
func (s *Store) AddSources(ctx context.Context, urls []string) ([]string, error) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO sources (url) VALUES (?)", url); err != nil {
			return nil, err
		}
	}
	return s.Sources(ctx)
}

// ClearSources empties the source set.
func (s *Store) ClearSources(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sources")
	return err
}
