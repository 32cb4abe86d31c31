package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/parrotlabs/thinktank/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS discussions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'debate',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    discussion_id TEXT,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (discussion_id) REFERENCES discussions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_discussion ON messages(discussion_id, id);`

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// CreateDiscussion records a new debate or chat session. Kind is
// "debate" or "chat".
func (db *Database) CreateDiscussion(id, title, kind string) (*models.Discussion, error) {
	query := `
        INSERT INTO discussions (id, title, kind, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING created_at`

	disc := &models.Discussion{ID: id, Title: title}
	if err := db.db.QueryRow(query, id, title, kind).Scan(&disc.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	return disc, nil
}

func (db *Database) SaveMessage(msg *models.Message) error {
	query := `
        INSERT INTO messages (discussion_id, role, content, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	return db.db.QueryRow(query, msg.DiscussionID, msg.Role, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
}

// GetTranscript returns a discussion's messages in append order.
func (db *Database) GetTranscript(discussionID string) ([]models.Message, error) {
	query := `
        SELECT id, discussion_id, role, content, created_at
        FROM messages
        WHERE discussion_id = ?
        ORDER BY id ASC`

	rows, err := db.db.Query(query, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.DiscussionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *Database) GetDiscussions() ([]models.Discussion, error) {
	query := `
        SELECT id, title, created_at
        FROM discussions
        ORDER BY created_at DESC`

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	discussions := make([]models.Discussion, 0)
	for rows.Next() {
		var disc models.Discussion
		if err := rows.Scan(&disc.ID, &disc.Title, &disc.CreatedAt); err != nil {
			return nil, err
		}
		discussions = append(discussions, disc)
	}
	return discussions, rows.Err()
}

func (db *Database) DeleteDiscussion(id string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE discussion_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM discussions WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}
