package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// Resolved is what a deep link points at: either File or Folder is set.
type Resolved struct {
	File   *models.File
	Folder *models.Folder
}

// LinkService issues and resolves share links.
type LinkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	folders     *FolderService
	channel     Channel
	publisher   events.Publisher
	logger      logging.Logger

	newToken func() (string, error)
}

func NewLinkService(db *sql.DB, m repomanager.RepositoryManager, folders *FolderService, ch Channel,
	pub events.Publisher, logger logging.Logger) *LinkService {
	return &LinkService{
		db:          db,
		repomanager: m,
		folders:     folders,
		channel:     ch,
		publisher:   pub,
		logger:      logger.With("module", "links"),
		newToken:    func() (string, error) { return common.MakeRandToken(ShareTokenBytes) },
	}
}

// FolderLink returns the share link of the owner's current folder. The token
// is issued once per folder and reused afterwards.
func (s *LinkService) FolderLink(ctx context.Context, ownerID int64) (string, *models.Folder, error) {
	folder, err := s.folders.EnsureCurrent(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}

	candidate, err := s.newToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	token, err := s.repomanager.ShareTokens(s.db).GetOrCreate(ctx, ownerID, folder.ID, candidate)
	if err != nil {
		return "", nil, fmt.Errorf("share token: %w", err)
	}
	if token.Token == candidate {
		publish(ctx, s.publisher, s.logger, events.Event{Type: events.FolderShared, ActorID: ownerID, FolderID: folder.ID})
	}

	return DeepLink(s.channel.BotUserName(), SharePayload(token.Token)), folder, nil
}

// Resolve looks up what req points at on behalf of requesterID. Unknown ids,
// unknown tokens and legacy folder links opened by anyone but the owner all
// resolve to common.ErrorNotFound.
func (s *LinkService) Resolve(ctx context.Context, requesterID int64, req StartRequest) (*Resolved, error) {
	switch req.Kind {
	case StartFile:
		file, err := s.repomanager.Files(s.db).GetByID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return &Resolved{File: file}, nil

	case StartFolderByID:
		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != requesterID {
			return nil, common.ErrorNotFound
		}
		return &Resolved{Folder: folder}, nil

	case StartFolderByToken:
		token, err := s.repomanager.ShareTokens(s.db).Resolve(ctx, req.Token)
		if err != nil {
			return nil, err
		}
		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, token.FolderID)
		if err != nil {
			return nil, err
		}
		if folder.OwnerID != token.OwnerID {
			return nil, fmt.Errorf("%w: token owner mismatch", common.ErrorInternal)
		}
		return &Resolved{Folder: folder}, nil

	case StartNone:
		return nil, fmt.Errorf("%w: empty payload", common.ErrorMalformedLink)
	}
	return nil, common.ErrorMalformedLink
}
