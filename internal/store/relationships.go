package store

import (
	"database/sql"
	"fmt"

	"github.com/mfontane/borgata/pkg/models"
)

// CreateRelationship inserts a directed edge. Cardinality is derived
// from the action and never stored.
func (db *DB) CreateRelationship(r *models.Relationship) error {
	_, err := db.Exec(`
		INSERT INTO relationships (id, from_agent_id, to_agent_id, action)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.FromAgentID, r.ToAgentID, string(r.Action))
	if err != nil {
		return fmt.Errorf("create relationship: %w", err)
	}
	return nil
}

// CreateRelationshipTx inserts an edge inside an existing transaction.
func CreateRelationshipTx(tx *sql.Tx, r *models.Relationship) error {
	_, err := tx.Exec(`
		INSERT INTO relationships (id, from_agent_id, to_agent_id, action)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.FromAgentID, r.ToAgentID, string(r.Action))
	if err != nil {
		return fmt.Errorf("create relationship %s: %w", r.ID, err)
	}
	return nil
}

// DeleteRelationship deletes an edge by ID.
func (db *DB) DeleteRelationship(id string) error {
	_, err := db.Exec("DELETE FROM relationships WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}

// ListRelationshipsFrom lists the outgoing edges of an agent.
func (db *DB) ListRelationshipsFrom(agentID string) ([]models.Relationship, error) {
	rows, err := db.Query(`
		SELECT id, from_agent_id, to_agent_id, action
		FROM relationships WHERE from_agent_id = ?
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list relationships from: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// ListRelationships lists every edge.
func (db *DB) ListRelationships() ([]models.Relationship, error) {
	rows, err := db.Query(`SELECT id, from_agent_id, to_agent_id, action FROM relationships`)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func scanRelationships(rows *sql.Rows) ([]models.Relationship, error) {
	var relationships []models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.ID, &r.FromAgentID, &r.ToAgentID, &r.Action); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		relationships = append(relationships, r)
	}
	return relationships, nil
}
