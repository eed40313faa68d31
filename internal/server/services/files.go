package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// IngestResult describes a stored upload. Created is false when the owner had
// already uploaded the same content; File is then the original record.
type IngestResult struct {
	File    *models.File
	Folder  *models.Folder
	Created bool
}

// FileService records uploads and keeps optional raw copies in blob storage.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	folders     *FolderService
	channel     Channel
	blobs       blobstore.Store
	rawMaxSize  int64
	publisher   events.Publisher
	logger      logging.Logger
}

// NewFileService builds the service. blobs may be nil, which disables raw
// copies; otherwise files up to rawMaxSize bytes are copied.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager, folders *FolderService, ch Channel,
	blobs blobstore.Store, rawMaxSize int64, pub events.Publisher, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		folders:     folders,
		channel:     ch,
		blobs:       blobs,
		rawMaxSize:  rawMaxSize,
		publisher:   pub,
		logger:      logger.With("module", "files"),
	}
}

// Ingest stores sub in the owner's current folder. Submitting the same content
// twice keeps the first record.
func (s *FileService) Ingest(ctx context.Context, ownerID int64, sub models.FileSubmission) (*IngestResult, error) {
	if !sub.Kind.Valid() || sub.FileID == "" || sub.FileUniqueID == "" {
		return nil, fmt.Errorf("%w: unsupported upload", common.ErrorValidation)
	}

	folder, err := s.folders.EnsureCurrent(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	file := sub.ToFile(ownerID, &folder.ID)
	created, err := s.repomanager.Files(s.db).Insert(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	if created {
		s.keepRawCopy(ctx, file)
		publish(ctx, s.publisher, s.logger, events.Event{
			Type: events.FileStored, ActorID: ownerID, FolderID: folder.ID, FileID: file.ID,
		})
		s.logger.Info(ctx, "file stored", "owner_id", ownerID, "file_id", file.ID, "kind", file.Kind)
	}

	return &IngestResult{File: file, Folder: folder, Created: created}, nil
}

func (s *FileService) shouldKeepRaw(f *models.File) bool {
	return s.blobs != nil && s.rawMaxSize > 0 && f.FileSize != nil && *f.FileSize > 0 && *f.FileSize <= s.rawMaxSize
}

// keepRawCopy failures only cost the fallback path; the file stays recorded.
func (s *FileService) keepRawCopy(ctx context.Context, f *models.File) {
	if !s.shouldKeepRaw(f) {
		return
	}

	data, err := s.channel.ReceiveBytes(ctx, f.FileID)
	if err != nil {
		s.logger.Warn(ctx, "raw copy download failed", "file_id", f.ID, "error", err)
		return
	}
	contentType := ""
	if f.MimeType != nil {
		contentType = *f.MimeType
	}
	key, err := s.blobs.Put(ctx, f.OwnerID, data, contentType)
	if err != nil {
		s.logger.Warn(ctx, "raw copy upload failed", "file_id", f.ID, "error", err)
		return
	}
	if err := s.repomanager.Files(s.db).SetStorageKey(ctx, f.ID, key); err != nil {
		s.logger.Warn(ctx, "raw copy key not saved", "file_id", f.ID, "error", err)
		return
	}
	f.StorageKey = &key
}

// LastFileLink returns the single-file link of the owner's latest upload.
func (s *FileService) LastFileLink(ctx context.Context, ownerID int64) (string, *models.File, error) {
	file, err := s.repomanager.Files(s.db).LastByOwner(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	return DeepLink(s.channel.BotUserName(), FilePayload(file.ID)), file, nil
}
