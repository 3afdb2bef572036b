package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"collabsync/core"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
	// Serializes read-modify-write of session files.
	mu sync.Mutex
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{"sessions", "snapshots"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			log.Fatalf("failed to create %s directory: %v", dir, err)
		}
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) sessionPath(sessionID string) string {
	return filepath.Join(s.basePath, "sessions", sessionID+".json")
}

func (s *fsStore) snapshotPath(documentID string) string {
	return filepath.Join(s.basePath, "snapshots", documentID+".json")
}

// SessionStore implementation

func (s *fsStore) Lookup(ctx context.Context, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSession(sessionID)
}

func (s *fsStore) Create(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if err := s.writeSession(session); err != nil {
		logrus.WithField("session_id", session.ID).WithError(err).Error("Failed to create session")
		return err
	}
	logrus.WithField("session_id", session.ID).Info("Session created")
	return nil
}

func (s *fsStore) OpenDocument(ctx context.Context, sessionID string, doc *core.OpenDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.readSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Documents == nil {
		sess.Documents = make(map[string]*core.OpenDocument)
	}
	sess.Documents[doc.DocumentID] = doc
	sess.UpdatedAt = time.Now()
	return s.writeSession(sess)
}

func (s *fsStore) CloseDocument(ctx context.Context, session *core.Session, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.readSession(session.ID)
	if err != nil {
		return err
	}
	delete(sess.Documents, documentID)
	sess.UpdatedAt = time.Now()
	return s.writeSession(sess)
}

func (s *fsStore) readSession(sessionID string) (*core.Session, error) {
	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("session_id", sessionID).Warn("Session with specified ID not found")
			return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
		}
		logrus.WithField("session_id", sessionID).WithError(err).Error("Failed to read session file")
		return nil, err
	}
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *fsStore) writeSession(sess *core.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath(sess.ID), data, 0644)
}

// SnapshotStore implementation

func (s *fsStore) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.snapshotPath(snapshot.DocumentID), data, 0644); err != nil {
		logrus.WithField("document_id", snapshot.DocumentID).WithError(err).Error("Failed to write snapshot")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"document_id": snapshot.DocumentID,
		"data_length": len(snapshot.Data),
	}).Info("Snapshot saved")
	return nil
}

func (s *fsStore) FindSnapshot(ctx context.Context, documentID string) (*core.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(documentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot for document %s not found", documentID)
		}
		return nil, err
	}
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", documentID, err)
	}
	return &snap, nil
}

func (s *fsStore) ListSnapshots(ctx context.Context) ([]string, error) {
	files, err := os.ReadDir(filepath.Join(s.basePath, "snapshots"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}
