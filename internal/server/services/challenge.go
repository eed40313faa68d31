package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/cryptox"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filekeeper/internal/server/sessions"
)

// ChallengeService runs the per-requester password prompt for protected
// folders: Idle -> AwaitingPassword -> Idle.
type ChallengeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       sessions.Store
	logger      logging.Logger
}

func NewChallengeService(db *sql.DB, m repomanager.RepositoryManager, store sessions.Store, logger logging.Logger) *ChallengeService {
	return &ChallengeService{db: db, repomanager: m, store: store, logger: logger.With("module", "challenge")}
}

// Begin starts a challenge for folder, replacing any pending one.
func (s *ChallengeService) Begin(ctx context.Context, requesterID int64, folder *models.Folder) error {
	c := sessions.Challenge{OwnerID: folder.OwnerID, FolderID: folder.ID}
	if err := s.store.Put(ctx, requesterID, c); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Pending reports whether requesterID is expected to answer a challenge.
func (s *ChallengeService) Pending(ctx context.Context, requesterID int64) (bool, error) {
	_, err := s.store.Get(ctx, requesterID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sessions.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load challenge: %w", err)
	}
}

// Answer checks text against the pending folder's password. On success the
// session is cleared and the folder is returned for delivery. A wrong answer
// keeps the session so the requester can try again.
func (s *ChallengeService) Answer(ctx context.Context, requesterID int64, text string) (*models.Folder, error) {
	c, err := s.store.Get(ctx, requesterID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, common.ErrNoChallenge
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	folder, err := s.repomanager.Folders(s.db).GetByID(ctx, c.FolderID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.clear(ctx, requesterID)
		}
		return nil, err
	}

	if !folder.Protected() {
		s.clear(ctx, requesterID)
		return nil, common.ErrNoLongerProtected
	}
	if !cryptox.VerifyPassword(*folder.PasswordHash, text) {
		s.logger.Info(ctx, "wrong folder password", "requester_id", requesterID, "folder_id", folder.ID)
		return nil, common.ErrWrongPassword
	}

	s.clear(ctx, requesterID)
	return folder, nil
}

// Cancel drops any pending challenge and reports whether there was one.
func (s *ChallengeService) Cancel(ctx context.Context, requesterID int64) (bool, error) {
	pending, err := s.Pending(ctx, requesterID)
	if err != nil || !pending {
		return false, err
	}
	if err := s.store.Delete(ctx, requesterID); err != nil {
		return false, fmt.Errorf("delete challenge: %w", err)
	}
	return true, nil
}

func (s *ChallengeService) clear(ctx context.Context, requesterID int64) {
	if err := s.store.Delete(ctx, requesterID); err != nil {
		s.logger.Warn(ctx, "challenge not cleared", "requester_id", requesterID, "error", err)
	}
}
