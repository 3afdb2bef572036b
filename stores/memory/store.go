package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"collabsync/core"

	"github.com/sirupsen/logrus"
)

// memStore implements both SessionStore and SnapshotStore in memory.
type memStore struct {
	mu        sync.RWMutex
	sessions  map[string]*core.Session
	snapshots map[string]*core.Snapshot
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		sessions:  make(map[string]*core.Session),
		snapshots: make(map[string]*core.Snapshot),
	}
}

// SessionStore implementation

func (s *memStore) Lookup(ctx context.Context, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		logrus.WithField("session_id", sessionID).Warn("Session with specified ID not found")
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	return copySession(sess), nil
}

func (s *memStore) Create(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[session.ID] = copySession(session)
	logrus.WithField("session_id", session.ID).Info("Session created")
	return nil
}

func (s *memStore) OpenDocument(ctx context.Context, sessionID string, doc *core.OpenDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
	}
	if sess.Documents == nil {
		sess.Documents = make(map[string]*core.OpenDocument)
	}
	sess.Documents[doc.DocumentID] = doc
	sess.UpdatedAt = time.Now()
	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"document_id": doc.DocumentID,
		"permissions": doc.Permissions,
	}).Info("Document opened for session")
	return nil
}

func (s *memStore) CloseDocument(ctx context.Context, session *core.Session, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, core.ErrSessionNotFound)
	}
	delete(sess.Documents, documentID)
	sess.UpdatedAt = time.Now()
	logrus.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"document_id": documentID,
	}).Info("Document closed for session")
	return nil
}

// SnapshotStore implementation

func (s *memStore) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.DocumentID == "" {
		return fmt.Errorf("snapshot document ID cannot be empty")
	}
	cp := *snapshot
	s.snapshots[snapshot.DocumentID] = &cp
	logrus.WithFields(logrus.Fields{
		"document_id": snapshot.DocumentID,
		"data_length": len(snapshot.Data),
	}).Info("Snapshot saved")
	return nil
}

func (s *memStore) FindSnapshot(ctx context.Context, documentID string) (*core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[documentID]
	if !ok {
		return nil, fmt.Errorf("snapshot for document %s not found", documentID)
	}
	cp := *snap
	return &cp, nil
}

func (s *memStore) ListSnapshots(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

// copySession deep-copies a session so callers cannot mutate the
// store's record through the returned pointer.
func copySession(sess *core.Session) *core.Session {
	cp := *sess
	cp.Documents = make(map[string]*core.OpenDocument, len(sess.Documents))
	for id, doc := range sess.Documents {
		d := *doc
		cp.Documents[id] = &d
	}
	return &cp
}
