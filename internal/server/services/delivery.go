package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

const (
	// FolderDumpCap bounds how many files one folder link delivers.
	FolderDumpCap = 50

	DefaultBatchSize = 3
	MaxBatchSize     = 10
)

// FailedItem is a file that could not be delivered even one at a time.
type FailedItem struct {
	FileID   int64
	FileName string
	Err      error
}

// Report summarizes one delivery run.
type Report struct {
	Delivered   int
	Failed      []FailedItem
	GroupCalls  int
	SingleCalls int
}

// DeliveryService sends stored files back through the channel. Groupable
// kinds go out in fixed-size batches; a failed batch falls back to sending
// its items one by one, and a failed item never stops the ones after it.
type DeliveryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	channel     Channel
	blobs       blobstore.Store
	batchSize   int
	logger      logging.Logger
}

// NewDeliveryService builds the service. batchSize outside 1..MaxBatchSize
// falls back to DefaultBatchSize; blobs may be nil.
func NewDeliveryService(db *sql.DB, m repomanager.RepositoryManager, ch Channel, blobs blobstore.Store,
	batchSize int, logger logging.Logger) *DeliveryService {
	if batchSize < 1 || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}
	return &DeliveryService{
		db:          db,
		repomanager: m,
		channel:     ch,
		blobs:       blobs,
		batchSize:   batchSize,
		logger:      logger.With("module", "delivery"),
	}
}

// DeliverFolder sends a summary line and then up to FolderDumpCap files of
// folder, oldest first.
func (s *DeliveryService) DeliverFolder(ctx context.Context, recipientID int64, folder *models.Folder) (*Report, error) {
	files, err := s.repomanager.Files(s.db).ListByFolder(ctx, folder.ID, FolderDumpCap)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	total, err := s.repomanager.Files(s.db).CountByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	if err := s.channel.SendText(ctx, recipientID, Preamble(folder.Name, len(files), total)); err != nil {
		return nil, fmt.Errorf("send preamble: %w", err)
	}
	report := s.Deliver(ctx, recipientID, files)
	return &report, nil
}

// Preamble is the summary line sent before a folder's content.
func Preamble(folderName string, sending, total int) string {
	switch {
	case total == 0:
		return fmt.Sprintf("📁 %s is empty.", folderName)
	case sending < total:
		return fmt.Sprintf("📁 %s: %d files, sending the first %d.", folderName, total, sending)
	case total == 1:
		return fmt.Sprintf("📁 %s: 1 file", folderName)
	default:
		return fmt.Sprintf("📁 %s: %d files", folderName, total)
	}
}

// DeliverFile sends a single file.
func (s *DeliveryService) DeliverFile(ctx context.Context, recipientID int64, file *models.File) Report {
	return s.Deliver(ctx, recipientID, []*models.File{file})
}

// Deliver sends files in order. Groupable files are cut into fixed-size
// batches, so there are at most ceil(g/batchSize) group calls for g groupable
// files; every batch but the last is full. A batch goes out when its last
// member is reached, and other kinds go out one by one as they are met, so a
// single item can overtake the start of a batch that is still filling up.
// Single calls only happen for those other kinds and for items of a failed
// group.
func (s *DeliveryService) Deliver(ctx context.Context, recipientID int64, files []*models.File) Report {
	var report Report
	batch := make([]*models.File, 0, s.batchSize)

	for _, f := range files {
		if !f.Kind.Groupable() {
			s.sendSingle(ctx, recipientID, f, &report)
			continue
		}
		batch = append(batch, f)
		if len(batch) == s.batchSize {
			s.sendBatch(ctx, recipientID, batch, &report)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		s.sendBatch(ctx, recipientID, batch, &report)
	}

	if len(report.Failed) > 0 {
		s.logger.Warn(ctx, "delivery incomplete", "recipient_id", recipientID,
			"delivered", report.Delivered, "failed", len(report.Failed))
	}
	return report
}

func (s *DeliveryService) sendBatch(ctx context.Context, recipientID int64, batch []*models.File, report *Report) {
	items := make([]Outgoing, len(batch))
	for i, f := range batch {
		items[i] = OutgoingFromFile(f)
	}

	report.GroupCalls++
	err := s.channel.SendGroup(ctx, recipientID, items)
	if err == nil {
		report.Delivered += len(batch)
		return
	}

	s.logger.Warn(ctx, "group send failed, sending one by one", "recipient_id", recipientID,
		"items", len(batch), "error", err)
	for _, f := range batch {
		s.sendSingle(ctx, recipientID, f, report)
	}
}

// sendSingle retries once from the raw copy when the channel rejects the
// stored reference.
func (s *DeliveryService) sendSingle(ctx context.Context, recipientID int64, f *models.File, report *Report) {
	item := OutgoingFromFile(f)

	report.SingleCalls++
	err := s.channel.SendSingle(ctx, recipientID, item)

	if err != nil && f.StorageKey != nil && s.blobs != nil {
		data, berr := s.blobs.Get(ctx, *f.StorageKey)
		if berr != nil {
			s.logger.Warn(ctx, "raw copy unavailable", "file_id", f.ID, "error", berr)
		} else {
			item.Bytes = data
			report.SingleCalls++
			err = s.channel.SendSingle(ctx, recipientID, item)
		}
	}

	if err != nil {
		s.logger.Warn(ctx, "file not delivered", "recipient_id", recipientID, "file_id", f.ID, "error", err)
		report.Failed = append(report.Failed, FailedItem{FileID: f.ID, FileName: f.FileName, Err: err})
		return
	}
	report.Delivered++
}
