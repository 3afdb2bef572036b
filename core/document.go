package core

import (
	"context"
	"time"
)

type (
	// Reducer is the edit-merge function: it applies one edit to a
	// document state and returns the next state. It must be pure and
	// total over valid inputs; the hub calls it with the registry's
	// current state and the edit's opaque payload.
	Reducer func(state, edit any) any

	// Snapshot records the last known state of a document at the moment
	// its registry entry was evicted. Snapshots are write-only from the
	// hub's point of view; the handshake path never reads them.
	Snapshot struct {
		DocumentID string    `json:"documentId"`
		Data       []byte    `json:"data"`
		SavedAt    time.Time `json:"savedAt"`
	}

	// SnapshotStore persists document snapshots.
	SnapshotStore interface {
		// SaveSnapshot creates or replaces the snapshot for a document.
		SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

		// FindSnapshot returns the snapshot for a document, or an error
		// if none has been saved.
		FindSnapshot(ctx context.Context, documentID string) (*Snapshot, error)

		// ListSnapshots returns the IDs of all documents with a snapshot.
		ListSnapshots(ctx context.Context) ([]string, error)
	}
)
