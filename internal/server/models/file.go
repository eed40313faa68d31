// Package models defines server-side data models persisted in the database.
package models

import "time"

// FileKind is the Telegram media type a file was uploaded as.
type FileKind string

const (
	KindDocument FileKind = "document"
	KindPhoto    FileKind = "photo"
	KindVideo    FileKind = "video"
	KindAudio    FileKind = "audio"
	KindVoice    FileKind = "voice"
)

// Valid reports whether k is a known kind.
func (k FileKind) Valid() bool {
	switch k {
	case KindDocument, KindPhoto, KindVideo, KindAudio, KindVoice:
		return true
	}
	return false
}

// Groupable reports whether files of this kind can be delivered as part of a
// media group.
func (k FileKind) Groupable() bool {
	switch k {
	case KindDocument, KindPhoto, KindVideo:
		return true
	}
	return false
}

// File describes a stored upload. The content itself stays on Telegram's side
// and is addressed by FileID; StorageKey points at an optional raw copy in
// object storage.
type File struct {
	// ID is the public numeric id used in single-file links.
	ID      int64
	OwnerID int64
	// FolderID is nil for unfiled uploads.
	FolderID *int64
	Kind     FileKind
	// FileUniqueID is Telegram's content-derived id, used to deduplicate.
	FileUniqueID string
	// FileID is the Telegram handle used to resend the content.
	FileID   string
	FileName string
	FileSize *int64
	MimeType *string
	// StorageKey is the object-storage key of the raw copy, if one was kept.
	StorageKey *string
	CreatedAt  time.Time
}

// FileSubmission is an inbound upload as extracted from a chat message.
type FileSubmission struct {
	Kind         FileKind
	FileID       string
	FileUniqueID string
	FileName     string
	FileSize     int64
	MimeType     string
}

// ToFile builds the File row for owner under folderID.
func (s FileSubmission) ToFile(ownerID int64, folderID *int64) *File {
	f := &File{
		OwnerID:      ownerID,
		FolderID:     folderID,
		Kind:         s.Kind,
		FileUniqueID: s.FileUniqueID,
		FileID:       s.FileID,
		FileName:     s.FileName,
	}
	if s.FileSize > 0 {
		size := s.FileSize
		f.FileSize = &size
	}
	if s.MimeType != "" {
		mime := s.MimeType
		f.MimeType = &mime
	}
	return f
}
