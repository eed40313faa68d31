package models

import (
	"strconv"
	"time"
)

// DefaultFolderName is the folder uploads land in before the owner picks one.
const DefaultFolderName = "Default"

// Folder groups an owner's files. PasswordHash is nil for open folders.
type Folder struct {
	ID           int64
	OwnerID      int64
	Name         string
	PasswordHash *string
	CreatedAt    time.Time
}

// Protected reports whether the folder requires a password.
func (f *Folder) Protected() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
