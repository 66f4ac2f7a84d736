package store

import (
	"database/sql"
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

// CreateEscalation inserts a new pending escalation.
func (db *DB) CreateEscalation(e *models.Escalation) error {
	_, err := db.Exec(`
		INSERT INTO escalations (id, conversation_id, agent_id, question, answer, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ConversationID, e.AgentID, e.Question, nullable(e.Answer), string(e.Status), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}
	return nil
}

// GetEscalation retrieves an escalation by ID. Returns nil, nil when
// absent.
func (db *DB) GetEscalation(id string) (*models.Escalation, error) {
	row := db.QueryRow(`
		SELECT id, conversation_id, agent_id, question, answer, status, created_at
		FROM escalations WHERE id = ?
	`, id)

	e, err := scanEscalation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	return e, nil
}

// AnswerEscalation transitions a pending escalation to answered,
// storing the answer. Returns false when the row is absent or already
// answered; the conditional UPDATE makes concurrent resolution attempts
// settle to exactly one winner.
func (db *DB) AnswerEscalation(id, answer string) (bool, error) {
	result, err := db.Exec(`
		UPDATE escalations SET answer = ?, status = ?
		WHERE id = ? AND status = ?
	`, answer, string(models.EscalationAnswered), id, string(models.EscalationPending))
	if err != nil {
		return false, fmt.Errorf("answer escalation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("answer escalation rows affected: %w", err)
	}
	return n == 1, nil
}

// ListEscalations lists a conversation's escalations oldest first.
func (db *DB) ListEscalations(conversationID string) ([]models.Escalation, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, agent_id, question, answer, status, created_at
		FROM escalations WHERE conversation_id = ? ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()
	return scanEscalations(rows)
}

// ListPendingEscalations lists every pending escalation across
// conversations, oldest first, for operator surfaces.
func (db *DB) ListPendingEscalations() ([]models.Escalation, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, agent_id, question, answer, status, created_at
		FROM escalations WHERE status = ? ORDER BY created_at, id
	`, string(models.EscalationPending))
	if err != nil {
		return nil, fmt.Errorf("list pending escalations: %w", err)
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func scanEscalation(scan func(dest ...any) error) (*models.Escalation, error) {
	var e models.Escalation
	var answer sql.NullString
	var createdAt string
	err := scan(&e.ID, &e.ConversationID, &e.AgentID, &e.Question, &answer, &e.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	if answer.Valid {
		e.Answer = answer.String
	}
	e.CreatedAt, _ = parseTime(createdAt)
	return &e, nil
}

func scanEscalations(rows *sql.Rows) ([]models.Escalation, error) {
	var escalations []models.Escalation
	for rows.Next() {
		e, err := scanEscalation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		escalations = append(escalations, *e)
	}
	return escalations, nil
}
