// Package events publishes domain events (access decisions, stored files) for
// downstream consumers.
package events

import (
	"context"
	"time"
)

const (
	AccessRequested = "access.requested"
	AccessApproved  = "access.approved"
	AccessBlocked   = "access.blocked"
	FileStored      = "file.stored"
	FolderShared    = "folder.shared"
)

// Event is serialized as JSON on the wire.
type Event struct {
	Type      string    `json:"type"`
	ActorID   int64     `json:"actor_id"`
	SubjectID int64     `json:"subject_id,omitempty"`
	FolderID  int64     `json:"folder_id,omitempty"`
	FileID    int64     `json:"file_id,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
