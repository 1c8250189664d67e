package core

import (
	"context"
	"fmt"
	"strings"

	"casedesk.app/server/internal/store"
)

// AttachmentService manages document metadata and tasks of owned cases.
type AttachmentService struct {
	store CaseStore
}

func NewAttachmentService(s CaseStore) *AttachmentService {
	return &AttachmentService{store: s}
}

type DocumentInput struct {
	Name      string
	MediaType string
	SizeBytes int64
}

func (s *AttachmentService) AddDocument(ctx context.Context, userID, caseID string, in DocumentInput) (*store.Document, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validation("Le nom du document est requis")
	}
	mediaType := strings.TrimSpace(in.MediaType)
	if mediaType == "" {
		return nil, validation("Le type du document est requis")
	}
	if in.SizeBytes < 0 {
		return nil, validation("La taille du document est invalide")
	}
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}

	doc := &store.Document{CaseID: caseID, Name: name, MediaType: mediaType, SizeBytes: in.SizeBytes}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (s *AttachmentService) ListDocuments(ctx context.Context, userID, caseID string) ([]store.Document, error) {
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocumentsByCaseID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

type TaskInput struct {
	Title       string
	Description *string
}

func (s *AttachmentService) AddTask(ctx context.Context, userID, caseID string, in TaskInput) (*store.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("Le titre de la tâche est requis")
	}
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}

	task := &store.Task{CaseID: caseID, Title: title, Description: in.Description}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *AttachmentService) ListTasks(ctx context.Context, userID, caseID string) ([]store.Task, error) {
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByCaseID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *AttachmentService) SetTaskCompleted(ctx context.Context, userID, caseID, taskID string, completed bool) (*store.Task, error) {
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}
	task, err := s.store.SetTaskCompleted(ctx, caseID, taskID, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}
