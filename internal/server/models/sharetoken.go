package models

import "time"

// ShareToken grants read access to one folder through a deep link.
type ShareToken struct {
	OwnerID   int64
	FolderID  int64
	Token     string
	CreatedAt time.Time
}
