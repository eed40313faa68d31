package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// AccessService is the approval gate in front of owner features. The
// configured super-owner is always allowed; everyone else needs to be
// approved by the super-owner first.
type AccessService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	channel     Channel
	publisher   events.Publisher
	logger      logging.Logger
	superOwner  int64
}

func NewAccessService(db *sql.DB, m repomanager.RepositoryManager, ch Channel, pub events.Publisher,
	logger logging.Logger, superOwnerID int64) *AccessService {
	return &AccessService{
		db:          db,
		repomanager: m,
		channel:     ch,
		publisher:   pub,
		logger:      logger.With("module", "access"),
		superOwner:  superOwnerID,
	}
}

// IsSuperOwner reports whether id is the configured super-owner.
func (s *AccessService) IsSuperOwner(id int64) bool {
	return s.superOwner != 0 && id == s.superOwner
}

// Touch records the user, refreshing their names. The stored approval flag is
// returned in the result.
func (s *AccessService) Touch(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// IsAllowed records the user and checks the gate. A refused user is told so,
// and the super-owner gets a best-effort request with ready-made commands.
func (s *AccessService) IsAllowed(ctx context.Context, user *models.User) (bool, error) {
	u, err := s.Touch(ctx, user)
	if err != nil {
		return false, err
	}
	if s.IsSuperOwner(u.TelegramID) || u.Approved {
		return true, nil
	}

	s.notify(ctx, u.TelegramID, "🚫 This bot is private. Your access request was sent to the owner.")
	if s.superOwner != 0 {
		s.notify(ctx, s.superOwner, fmt.Sprintf(
			"🔔 Access request from %s (id %d).\nApprove: /approve %d\nBlock: /block %d",
			u.DisplayName(), u.TelegramID, u.TelegramID, u.TelegramID))
	}
	s.publish(ctx, events.Event{Type: events.AccessRequested, ActorID: u.TelegramID})

	return false, nil
}

// Approve grants access to targetID. Only the super-owner may call it.
func (s *AccessService) Approve(ctx context.Context, actorID, targetID int64) error {
	return s.setApproved(ctx, actorID, targetID, true)
}

// Block revokes access of targetID. Only the super-owner may call it.
func (s *AccessService) Block(ctx context.Context, actorID, targetID int64) error {
	return s.setApproved(ctx, actorID, targetID, false)
}

func (s *AccessService) setApproved(ctx context.Context, actorID, targetID int64, approved bool) error {
	if !s.IsSuperOwner(actorID) {
		return common.ErrorForbidden
	}
	if err := s.repomanager.Users(s.db).SetApproved(ctx, targetID, approved); err != nil {
		return err
	}

	text, eventType := "❌ Your access to this bot was revoked.", events.AccessBlocked
	if approved {
		text, eventType = "✅ You were approved. Send /help to get started.", events.AccessApproved
	}
	s.notify(ctx, targetID, text)
	s.publish(ctx, events.Event{Type: eventType, ActorID: actorID, SubjectID: targetID})

	s.logger.Info(ctx, "approval changed", "target_id", targetID, "approved", approved)
	return nil
}

func (s *AccessService) notify(ctx context.Context, chatID int64, text string) {
	if err := s.channel.SendText(ctx, chatID, text); err != nil {
		s.logger.Warn(ctx, "notification failed", "chat_id", chatID, "error", err)
	}
}

func (s *AccessService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.publisher, s.logger, e)
}

func publish(ctx context.Context, p events.Publisher, logger logging.Logger, e events.Event) {
	if p == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn(ctx, "event publish failed", "type", e.Type, "error", err)
	}
}
