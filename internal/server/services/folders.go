package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/cryptox"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

const (
	MaxFolderNameLen = 64
	MaxPasswordLen   = 128

	// ListCap bounds owner listings (folders, files).
	ListCap = 30
)

// FolderService manages owners' folders and the per-owner current folder that
// uploads land in.
type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *FolderService {
	return &FolderService{db: db, repomanager: m, logger: logger.With("module", "folders")}
}

// NormalizeFolderName trims name and checks its length.
func NormalizeFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is empty", common.ErrorValidation)
	}
	if utf8.RuneCountInString(name) > MaxFolderNameLen {
		return "", fmt.Errorf("%w: folder name is longer than %d characters", common.ErrorValidation, MaxFolderNameLen)
	}
	return name, nil
}

// Select gets or creates the owner's folder called name and makes it current.
func (s *FolderService) Select(ctx context.Context, ownerID int64, name string) (*models.Folder, error) {
	name, err := NormalizeFolderName(name)
	if err != nil {
		return nil, err
	}
	return s.selectFolder(ctx, ownerID, name)
}

func (s *FolderService) selectFolder(ctx context.Context, ownerID int64, name string) (*models.Folder, error) {
	folder, err := s.repomanager.Folders(s.db).GetOrCreate(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("get or create folder: %w", err)
	}
	if err := s.repomanager.Cursors(s.db).Set(ctx, ownerID, folder.ID); err != nil {
		return nil, fmt.Errorf("set current folder: %w", err)
	}
	return folder, nil
}

// EnsureCurrent returns the owner's current folder, falling back to (and
// selecting) the default folder when none is set.
func (s *FolderService) EnsureCurrent(ctx context.Context, ownerID int64) (*models.Folder, error) {
	folderID, err := s.repomanager.Cursors(s.db).Get(ctx, ownerID)
	switch {
	case err == nil:
		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
		if err == nil && folder.OwnerID == ownerID {
			return folder, nil
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("load current folder: %w", err)
		}
		s.logger.Warn(ctx, "dangling current folder", "owner_id", ownerID, "folder_id", folderID)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("read current folder: %w", err)
	}

	return s.selectFolder(ctx, ownerID, models.DefaultFolderName)
}

// SetPassword protects the current folder. The password is compared exactly
// on answer; only its hash is stored.
func (s *FolderService) SetPassword(ctx context.Context, ownerID int64, password string) (*models.Folder, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is empty", common.ErrorValidation)
	}
	if utf8.RuneCountInString(password) > MaxPasswordLen {
		return nil, fmt.Errorf("%w: password is longer than %d characters", common.ErrorValidation, MaxPasswordLen)
	}

	folder, err := s.EnsureCurrent(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repomanager.Folders(s.db).SetPassword(ctx, folder.ID, &hash); err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	folder.PasswordHash = &hash
	return folder, nil
}

// ClearPassword removes protection from the current folder.
func (s *FolderService) ClearPassword(ctx context.Context, ownerID int64) (*models.Folder, error) {
	folder, err := s.EnsureCurrent(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.Folders(s.db).SetPassword(ctx, folder.ID, nil); err != nil {
		return nil, fmt.Errorf("clear password: %w", err)
	}
	folder.PasswordHash = nil
	return folder, nil
}

// List returns the owner's folders, newest first.
func (s *FolderService) List(ctx context.Context, ownerID int64) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListByOwner(ctx, ownerID, ListCap)
}

// Search returns folders whose name contains query, ignoring case.
func (s *FolderService) Search(ctx context.Context, ownerID int64, query string) ([]*models.Folder, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search text is empty", common.ErrorValidation)
	}
	return s.repomanager.Folders(s.db).Search(ctx, ownerID, query, ListCap)
}

// ListCurrentFiles returns the current folder and up to ListCap of its files
// in upload order.
func (s *FolderService) ListCurrentFiles(ctx context.Context, ownerID int64) (*models.Folder, []*models.File, error) {
	folder, err := s.EnsureCurrent(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.repomanager.Files(s.db).ListByFolder(ctx, folder.ID, ListCap)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}
	return folder, files, nil
}
