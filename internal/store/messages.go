package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

// AppendMessage appends a message to the conversation transcript.
// Messages are never updated; creation-time order is canonical.
func (db *DB) AppendMessage(m *models.Message) error {
	var metadata *string
	if len(m.Metadata) > 0 {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
		s := string(raw)
		metadata = &s
	}

	_, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, agent_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ConversationID, nullable(m.AgentID), string(m.Role), m.Content, metadata, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns the conversation transcript in creation order.
func (db *DB) ListMessages(conversationID string) ([]models.Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, agent_id, role, content, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var agentID, metadata sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &agentID, &m.Role, &m.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if agentID.Valid {
			m.AgentID = agentID.String
		}
		if metadata.Valid {
			json.Unmarshal([]byte(metadata.String), &m.Metadata)
		}
		m.CreatedAt, _ = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, nil
}

// CountMessages returns the number of messages in a conversation.
func (db *DB) CountMessages(conversationID string) (int, error) {
	row := db.QueryRow("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
