package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"casedesk.app/server/internal/store"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200

	replyWriteTimeout = 5 * time.Second
)

// AssistantReply is the canned analysis posted after every user message.
const AssistantReply = "Je comprends votre préoccupation. D'après ce que vous avez partagé, voici mon analyse :\n\n" +
	"**Analyse de la situation :**\n" +
	"Votre cas présente plusieurs éléments importants à prendre en compte. La documentation que vous avez fournie est essentielle pour la suite.\n\n" +
	"**Actions recommandées :**\n" +
	"• Rassemblez tous les documents pertinents (photos, reçus, correspondances)\n" +
	"• Documentez précisément le déroulement des événements avec dates et heures\n" +
	"• Conservez toutes les preuves de communication avec les autres parties\n" +
	"• Évaluez vos options juridiques avant de prendre une décision\n\n" +
	"**Important :**\n" +
	"Chaque situation est unique. Je suis là pour vous guider à travers chaque étape avec soin. N'hésitez pas à me poser des questions spécifiques.\n\n" +
	"⚠️ Ces informations sont indicatives et ne constituent pas un avis juridique. Consultez un avocat."

type MessageService struct {
	store   CaseStore
	replies *ReplyScheduler
	logger  *zap.Logger
}

func NewMessageService(s CaseStore, replies *ReplyScheduler, logger *zap.Logger) *MessageService {
	return &MessageService{
		store:   s,
		replies: replies,
		logger:  logger,
	}
}

// PostMessage stores the caller's message and schedules one assistant reply.
func (s *MessageService) PostMessage(ctx context.Context, userID, caseID, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validation("Le message ne peut pas être vide")
	}
	c, err := assertOwned(ctx, s.store, userID, caseID)
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		CaseID:  caseID,
		UserID:  userID,
		Role:    store.RoleUser,
		Content: content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	ownerID := c.UserID
	if !s.replies.Schedule(caseID, func() { s.writeReply(caseID, ownerID) }) {
		s.logger.Warn("reply scheduler stopped, assistant reply skipped", zap.String("case_id", caseID))
	}
	return msg, nil
}

// writeReply runs outside any request. Failures are logged and the reply is dropped.
func (s *MessageService) writeReply(caseID, ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), replyWriteTimeout)
	defer cancel()

	reply := &store.Message{
		CaseID:  caseID,
		UserID:  ownerID,
		Role:    store.RoleAssistant,
		Content: AssistantReply,
	}
	if err := s.store.CreateMessage(ctx, reply); err != nil {
		s.logger.Warn("failed to store assistant reply", zap.String("case_id", caseID), zap.Error(err))
		return
	}
	s.logger.Debug("assistant reply stored", zap.String("case_id", caseID), zap.String("message_id", reply.ID))
}

// ListMessages returns the latest limit messages of an owned case, oldest first. A
// nil limit means DefaultMessageLimit.
func (s *MessageService) ListMessages(ctx context.Context, userID, caseID string, limit *int) ([]store.Message, error) {
	n := DefaultMessageLimit
	if limit != nil {
		if *limit <= 0 || *limit > MaxMessageLimit {
			return nil, validation(fmt.Sprintf("La limite doit être comprise entre 1 et %d", MaxMessageLimit))
		}
		n = *limit
	}
	if _, err := assertOwned(ctx, s.store, userID, caseID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetRecentMessagesByCaseID(ctx, caseID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}
