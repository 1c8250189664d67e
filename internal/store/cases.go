package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const caseColumns = `id, user_id, title, description, type, status, created_at, updated_at`

// CreateCase inserts c. Id and timestamps are assigned here; an empty status becomes OPEN.
func (s *Store) CreateCase(ctx context.Context, c *Case) error {
	c.ID = newID()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = StatusOpen
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO cases (`+caseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.UserID, c.Title, c.Description, c.Type, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", classify(err))
	}
	return nil
}

// GetCaseByID returns the case only if userID owns it.
func (s *Store) GetCaseByID(ctx context.Context, caseID, userID string) (*Case, error) {
	var c Case
	err := s.db.GetContext(ctx, &c, s.q(`SELECT `+caseColumns+` FROM cases WHERE id = ? AND user_id = ?`), caseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

// ListCasesByUserID returns the user's cases, most recently updated first.
func (s *Store) ListCasesByUserID(ctx context.Context, userID string, filter CaseFilter) ([]Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE user_id = ?`
	args := []any{userID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	cases := []Case{}
	if err := s.db.SelectContext(ctx, &cases, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	return cases, nil
}

// UpdateCase writes the non-nil fields of ch and returns the updated case, or nil when
// the case does not exist for userID.
func (s *Store) UpdateCase(ctx context.Context, caseID, userID string, ch CaseChanges) (*Case, error) {
	sets := []string{}
	args := []any{}
	if ch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *ch.Title)
	}
	if ch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *ch.Description)
	}
	if ch.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *ch.Type)
	}
	if ch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *ch.Status)
	}
	updatedAt := ch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt.UTC(), caseID, userID)

	query := `UPDATE cases SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetCaseByID(ctx, caseID, userID)
}

// DeleteCase removes the case and, through the foreign keys, its messages, documents
// and tasks. It reports whether a row owned by userID was deleted.
func (s *Store) DeleteCase(ctx context.Context, caseID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cases WHERE id = ? AND user_id = ?`), caseID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}
