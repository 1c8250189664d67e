package store

import (
	"context"
	"fmt"
)

const messageColumns = `id, case_id, user_id, role, content, created_at`

// CreateMessage appends m to its case. ErrMissingParent means the case is gone.
func (s *Store) CreateMessage(ctx context.Context, m *Message) error {
	m.ID = newID()
	m.CreatedAt = now()
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		m.ID, m.CaseID, m.UserID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", classify(err))
	}
	return nil
}

// GetRecentMessagesByCaseID returns the newest limit messages of a case in display
// order (oldest first).
func (s *Store) GetRecentMessagesByCaseID(ctx context.Context, caseID string, limit int) ([]Message, error) {
	messages := []Message{}
	err := s.db.SelectContext(ctx, &messages,
		s.q(`SELECT `+messageColumns+` FROM messages WHERE case_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`),
		caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
