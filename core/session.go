package core

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound marks a session identifier that does not resolve.
// Store lookups that fail for any other reason are treated the same
// way by the protocol core: the caller is not logged in.
var ErrSessionNotFound = errors.New("session not found")

type (
	// Permission is a session's access level for one open document.
	Permission string

	// OpenDocument is the authorization record binding a session to one
	// document with a permission level. The protocol core references
	// these records but never mutates them.
	OpenDocument struct {
		DocumentID  string     `json:"documentId"`
		SessionID   string     `json:"sessionId"`
		Permissions Permission `json:"permissions"`
	}

	// Session is the server-side record of a logged-in user: which
	// documents the session has opened, and with what permission.
	Session struct {
		ID        string                   `json:"id"`
		Documents map[string]*OpenDocument `json:"documents"`
		CreatedAt time.Time                `json:"createdAt"`
		UpdatedAt time.Time                `json:"updatedAt"`
	}

	// SessionStore is the session/permission service. Lookup and
	// CloseDocument are the two operations the protocol core uses;
	// Create and OpenDocument are the writes performed by the session
	// API when a user logs in or opens a document.
	SessionStore interface {
		// Lookup resolves a session by ID. Returns ErrSessionNotFound
		// (possibly wrapped) when the session does not exist.
		Lookup(ctx context.Context, sessionID string) (*Session, error)

		// Create stores a new session record.
		Create(ctx context.Context, session *Session) error

		// OpenDocument records that a session opened a document with the
		// given permission level.
		OpenDocument(ctx context.Context, sessionID string, doc *OpenDocument) error

		// CloseDocument removes a document from the session's open set.
		CloseDocument(ctx context.Context, session *Session, documentID string) error
	}
)

const (
	PermissionReadOnly  Permission = "read-only"
	PermissionReadWrite Permission = "read-write"
)

// Valid reports whether p is one of the two known permission levels.
func (p Permission) Valid() bool {
	return p == PermissionReadOnly || p == PermissionReadWrite
}

// CanWrite reports whether the permission allows document mutation.
func (p Permission) CanWrite() bool {
	return p == PermissionReadWrite
}

// Open returns the session's open-document record for documentID, or
// nil if the session never opened it.
func (s *Session) Open(documentID string) *OpenDocument {
	if s == nil || s.Documents == nil {
		return nil
	}
	return s.Documents[documentID]
}
