package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"casedesk.app/server/internal/store"
)

// detailMessageLimit is how many of the latest messages the case detail view carries.
const detailMessageLimit = 50

// CaseStore is the slice of the data store used by the case, message and attachment services.
type CaseStore interface {
	CreateCase(ctx context.Context, c *store.Case) error
	GetCaseByID(ctx context.Context, caseID, userID string) (*store.Case, error)
	ListCasesByUserID(ctx context.Context, userID string, filter store.CaseFilter) ([]store.Case, error)
	UpdateCase(ctx context.Context, caseID, userID string, ch store.CaseChanges) (*store.Case, error)
	DeleteCase(ctx context.Context, caseID, userID string) (bool, error)

	CreateMessage(ctx context.Context, m *store.Message) error
	GetRecentMessagesByCaseID(ctx context.Context, caseID string, limit int) ([]store.Message, error)

	CreateDocument(ctx context.Context, d *store.Document) error
	ListDocumentsByCaseID(ctx context.Context, caseID string) ([]store.Document, error)
	CreateTask(ctx context.Context, t *store.Task) error
	ListTasksByCaseID(ctx context.Context, caseID string) ([]store.Task, error)
	SetTaskCompleted(ctx context.Context, caseID, taskID string, completed bool) (*store.Task, error)
}

type CaseService struct {
	store   CaseStore
	replies *ReplyScheduler
	logger  *zap.Logger
	now     func() time.Time
}

func NewCaseService(s CaseStore, replies *ReplyScheduler, logger *zap.Logger) *CaseService {
	return &CaseService{
		store:   s,
		replies: replies,
		logger:  logger,
		now:     time.Now,
	}
}

// assertOwned loads a case the caller owns. Missing and foreign cases look the same.
func assertOwned(ctx context.Context, s CaseStore, userID, caseID string) (*store.Case, error) {
	c, err := s.GetCaseByID(ctx, caseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

func parseStatus(raw string) (store.CaseStatus, error) {
	status := store.CaseStatus(raw)
	if !status.Valid() {
		return "", validation("Statut invalide")
	}
	return status, nil
}

type ListCasesInput struct {
	Status string
	Limit  *int
}

func (s *CaseService) ListCases(ctx context.Context, userID string, in ListCasesInput) ([]store.Case, error) {
	var filter store.CaseFilter
	if in.Status != "" {
		status, err := parseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if in.Limit != nil {
		if *in.Limit <= 0 {
			return nil, validation("La limite doit être un entier positif")
		}
		filter.Limit = *in.Limit
	}

	cases, err := s.store.ListCasesByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

type CreateCaseInput struct {
	Title       string
	Description *string
	Type        *string
	Status      *string
}

func (s *CaseService) CreateCase(ctx context.Context, userID string, in CreateCaseInput) (*store.Case, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("Le titre est requis")
	}
	c := &store.Case{
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		Type:        in.Type,
		Status:      store.StatusOpen,
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		c.Status = status
	}

	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	s.logger.Info("case created", zap.String("case_id", c.ID), zap.String("user_id", userID))
	return c, nil
}

// GetCase returns the case with its documents, tasks and latest messages.
func (s *CaseService) GetCase(ctx context.Context, userID, caseID string) (*store.CaseDetails, error) {
	c, err := assertOwned(ctx, s.store, userID, caseID)
	if err != nil {
		return nil, err
	}

	details := &store.CaseDetails{Case: *c}
	if details.Documents, err = s.store.ListDocumentsByCaseID(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if details.Tasks, err = s.store.ListTasksByCaseID(ctx, caseID); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if details.Messages, err = s.store.GetRecentMessagesByCaseID(ctx, caseID, detailMessageLimit); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return details, nil
}

// UpdateCaseInput holds the fields of a partial update; nil means unchanged.
type UpdateCaseInput struct {
	Title       *string
	Description *string
	Type        *string
	Status      *string
}

func (s *CaseService) UpdateCase(ctx context.Context, userID, caseID string, in UpdateCaseInput) (*store.Case, error) {
	var ch store.CaseChanges
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validation("Le titre est requis")
		}
		ch.Title = &title
	}
	if in.Status != nil {
		status, err := parseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		ch.Status = &status
	}
	ch.Description = in.Description
	ch.Type = in.Type

	current, err := assertOwned(ctx, s.store, userID, caseID)
	if err != nil {
		return nil, err
	}
	ch.UpdatedAt = nextUpdatedAt(current.UpdatedAt, s.now())

	updated, err := s.store.UpdateCase(ctx, caseID, userID, ch)
	if err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}
	if updated == nil {
		return nil, ErrCaseNotFound
	}
	return updated, nil
}

// nextUpdatedAt keeps updatedAt strictly increasing even when the clock has not moved.
func nextUpdatedAt(previous, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(previous) {
		return previous.UTC().Add(time.Microsecond)
	}
	return now
}

// DeleteCase cancels the case's pending assistant replies, then deletes it with its
// messages, documents and tasks.
func (s *CaseService) DeleteCase(ctx context.Context, userID, caseID string) error {
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return err
	}
	if n := s.replies.Cancel(caseID); n > 0 {
		s.logger.Debug("cancelled pending replies", zap.String("case_id", caseID), zap.Int("count", n))
	}

	deleted, err := s.store.DeleteCase(ctx, caseID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	if !deleted {
		return ErrCaseNotFound
	}
	s.logger.Info("case deleted", zap.String("case_id", caseID), zap.String("user_id", userID))
	return nil
}
