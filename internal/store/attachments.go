package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	documentColumns = `id, case_id, name, media_type, size_bytes, created_at`
	taskColumns     = `id, case_id, title, description, completed, created_at`
)

func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	d.ID = newID()
	d.CreatedAt = now()
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		d.ID, d.CaseID, d.Name, d.MediaType, d.SizeBytes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", classify(err))
	}
	return nil
}

// ListDocumentsByCaseID returns documents newest first.
func (s *Store) ListDocumentsByCaseID(ctx context.Context, caseID string) ([]Document, error) {
	docs := []Document{}
	err := s.db.SelectContext(ctx, &docs,
		s.q(`SELECT `+documentColumns+` FROM documents WHERE case_id = ? ORDER BY created_at DESC, id DESC`), caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	return docs, nil
}

func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	t.ID = newID()
	t.CreatedAt = now()
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		t.ID, t.CaseID, t.Title, t.Description, t.Completed, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", classify(err))
	}
	return nil
}

// ListTasksByCaseID returns tasks newest first.
func (s *Store) ListTasksByCaseID(ctx context.Context, caseID string) ([]Task, error) {
	tasks := []Task{}
	err := s.db.SelectContext(ctx, &tasks,
		s.q(`SELECT `+taskColumns+` FROM tasks WHERE case_id = ? ORDER BY created_at DESC, id DESC`), caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	return tasks, nil
}

// SetTaskCompleted updates a task that belongs to caseID. It returns nil when no such task exists.
func (s *Store) SetTaskCompleted(ctx context.Context, caseID, taskID string, completed bool) (*Task, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE tasks SET completed = ? WHERE id = ? AND case_id = ?`), completed, taskID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	} else if n == 0 {
		return nil, nil
	}

	var t Task
	err = s.db.GetContext(ctx, &t, s.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND case_id = ?`), taskID, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}
