package store

import (
	"database/sql"
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

const agentColumns = "id, name, role, specialty, system_prompt, model, provider, parent_id, sort_order, conversation_id, is_dynamic"

// CreateAgent inserts a new agent row.
func (db *DB) CreateAgent(a *models.Agent) error {
	_, err := db.Exec(`
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, string(a.Role), nullable(a.Specialty), a.SystemPrompt, a.Model, a.Provider,
		nullable(a.ParentID), a.SortOrder, nullable(a.ConversationID), boolToInt(a.IsDynamic))
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// CreateAgentTx inserts an agent inside an existing transaction. Used
// by dynamic org bulk creation so a partial hierarchy never persists.
func CreateAgentTx(tx *sql.Tx, a *models.Agent) error {
	_, err := tx.Exec(`
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, string(a.Role), nullable(a.Specialty), a.SystemPrompt, a.Model, a.Provider,
		nullable(a.ParentID), a.SortOrder, nullable(a.ConversationID), boolToInt(a.IsDynamic))
	if err != nil {
		return fmt.Errorf("create agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns nil, nil when absent.
func (db *DB) GetAgent(id string) (*models.Agent, error) {
	row := db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)

	a, err := scanAgent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// UpdateAgent persists the full agent record. The caller validates the
// merged role/provider pair before calling; the store's write lock
// makes racing updates last-writer-wins.
func (db *DB) UpdateAgent(a *models.Agent) error {
	result, err := db.Exec(`
		UPDATE agents SET name = ?, role = ?, specialty = ?, system_prompt = ?, model = ?,
			provider = ?, parent_id = ?, sort_order = ?
		WHERE id = ?
	`, a.Name, string(a.Role), nullable(a.Specialty), a.SystemPrompt, a.Model, a.Provider,
		nullable(a.ParentID), a.SortOrder, a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update agent: no such agent %s", a.ID)
	}
	return nil
}

// DeleteAgent deletes an agent. Children cascade via the parent_id
// foreign key.
func (db *DB) DeleteAgent(id string) error {
	_, err := db.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

// ListAgents lists every agent, static first, ordered by sibling order.
func (db *DB) ListAgents() ([]models.Agent, error) {
	rows, err := db.Query(`SELECT ` + agentColumns + ` FROM agents ORDER BY is_dynamic, sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

// ListChildren lists the direct children of an agent in sibling order.
func (db *DB) ListChildren(parentID string) ([]models.Agent, error) {
	rows, err := db.Query(`
		SELECT `+agentColumns+` FROM agents WHERE parent_id = ? ORDER BY sort_order, name
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

// ListConversationAgents lists the dynamic agents scoped to one
// conversation, in sibling order.
func (db *DB) ListConversationAgents(conversationID string) ([]models.Agent, error) {
	rows, err := db.Query(`
		SELECT `+agentColumns+` FROM agents WHERE conversation_id = ? ORDER BY sort_order, name
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list conversation agents: %w", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

// GetStaticRoot returns the first static agent without a parent, which
// serves as the default root for new conversations. Returns nil, nil
// when no static roster is configured.
func (db *DB) GetStaticRoot() (*models.Agent, error) {
	row := db.QueryRow(`
		SELECT ` + agentColumns + ` FROM agents
		WHERE parent_id IS NULL AND is_dynamic = 0
		ORDER BY sort_order, name LIMIT 1
	`)

	a, err := scanAgent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get static root: %w", err)
	}
	return a, nil
}

func scanAgent(scan func(dest ...any) error) (*models.Agent, error) {
	var a models.Agent
	var specialty, parentID, conversationID sql.NullString
	var isDynamic int
	err := scan(&a.ID, &a.Name, &a.Role, &specialty, &a.SystemPrompt, &a.Model, &a.Provider,
		&parentID, &a.SortOrder, &conversationID, &isDynamic)
	if err != nil {
		return nil, err
	}
	if specialty.Valid {
		a.Specialty = specialty.String
	}
	if parentID.Valid {
		a.ParentID = parentID.String
	}
	if conversationID.Valid {
		a.ConversationID = conversationID.String
	}
	a.IsDynamic = isDynamic != 0
	return &a, nil
}

func scanAgents(rows *sql.Rows) ([]models.Agent, error) {
	var agents []models.Agent
	for rows.Next() {
		a, err := scanAgent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
