package services

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// Outgoing is one item handed to the delivery channel. When Bytes is set the
// content is uploaded from it instead of being resent by FileID.
type Outgoing struct {
	Kind     models.FileKind
	FileID   string
	FileName string
	MimeType string
	Bytes    []byte
}

// OutgoingFromFile builds the Outgoing for a stored file.
func OutgoingFromFile(f *models.File) Outgoing {
	o := Outgoing{Kind: f.Kind, FileID: f.FileID, FileName: f.FileName}
	if f.MimeType != nil {
		o.MimeType = *f.MimeType
	}
	return o
}

// Channel is the messaging transport the services talk back through.
type Channel interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendSingle(ctx context.Context, chatID int64, item Outgoing) error
	// SendGroup delivers items as one visual batch. Only groupable kinds are
	// passed in.
	SendGroup(ctx context.Context, chatID int64, items []Outgoing) error
	ReceiveBytes(ctx context.Context, fileID string) ([]byte, error)
	BotUserName() string
}
