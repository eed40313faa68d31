// Package sessions holds pending password challenges, keyed by the chat user
// who is expected to answer.
package sessions

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requester has no pending challenge.
var ErrNotFound = errors.New("session not found")

// Challenge points at the protected folder a requester is trying to open.
type Challenge struct {
	OwnerID  int64 `json:"owner_id"`
	FolderID int64 `json:"folder_id"`
}

// Store keeps at most one Challenge per requester. Put replaces any previous
// value.
type Store interface {
	Put(ctx context.Context, requesterID int64, c Challenge) error
	Get(ctx context.Context, requesterID int64) (Challenge, error)
	Delete(ctx context.Context, requesterID int64) error
}
