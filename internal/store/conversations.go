package store

import (
	"database/sql"
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

// CreateConversation inserts a new conversation row.
func (db *DB) CreateConversation(c *models.Conversation) error {
	_, err := db.Exec(`
		INSERT INTO conversations (id, title, status, working_directory, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Title, string(c.Status), nullable(c.WorkingDirectory), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID. Returns nil, nil when
// the row does not exist.
func (db *DB) GetConversation(id string) (*models.Conversation, error) {
	row := db.QueryRow(`
		SELECT id, title, status, working_directory, created_at
		FROM conversations WHERE id = ?
	`, id)

	var c models.Conversation
	var workingDir sql.NullString
	var createdAt string
	err := row.Scan(&c.ID, &c.Title, &c.Status, &workingDir, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if workingDir.Valid {
		c.WorkingDirectory = workingDir.String
	}
	c.CreatedAt, _ = parseTime(createdAt)
	return &c, nil
}

// UpdateConversationStatus moves a conversation to a new status.
// Status transitions are monotonic along active -> {completed|stopped};
// the orchestrator is responsible for enforcing direction.
func (db *DB) UpdateConversationStatus(id string, status models.ConversationStatus) error {
	result, err := db.Exec(`
		UPDATE conversations SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("update conversation status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update conversation status: no such conversation %s", id)
	}
	return nil
}

// DeleteConversation deletes a conversation. Messages, escalations, and
// dynamic agents cascade via foreign keys.
func (db *DB) DeleteConversation(id string) error {
	_, err := db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ListConversations lists conversations newest first, optionally
// filtered by status.
func (db *DB) ListConversations(status *models.ConversationStatus) ([]models.Conversation, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, title, status, working_directory, created_at
			FROM conversations WHERE status = ? ORDER BY created_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, title, status, working_directory, created_at
			FROM conversations ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var workingDir sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &c.Status, &workingDir, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if workingDir.Valid {
			c.WorkingDirectory = workingDir.String
		}
		c.CreatedAt, _ = parseTime(createdAt)
		conversations = append(conversations, c)
	}
	return conversations, nil
}

// nullable converts an empty string to a NULL-storing pointer.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
