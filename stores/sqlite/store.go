package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"collabsync/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	sessionTableStmt := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(sessionTableStmt); err != nil {
		log.Fatalf("failed to create sessions table: %v", err)
	}

	openDocTableStmt := `
	CREATE TABLE IF NOT EXISTS open_documents (
		session_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		permissions TEXT NOT NULL,
		PRIMARY KEY (session_id, document_id)
	);`
	if _, err = db.Exec(openDocTableStmt); err != nil {
		log.Fatalf("failed to create open_documents table: %v", err)
	}

	snapshotTableStmt := `
	CREATE TABLE IF NOT EXISTS snapshots (
		document_id TEXT PRIMARY KEY,
		data BLOB,
		saved_at DATETIME
	);`
	if _, err = db.Exec(snapshotTableStmt); err != nil {
		log.Fatalf("failed to create snapshots table: %v", err)
	}

	return &sqliteStore{db}
}

// SessionStore implementation

func (s *sqliteStore) Lookup(ctx context.Context, sessionID string) (*core.Session, error) {
	log := logrus.WithField("session_id", sessionID)
	sess := core.Session{ID: sessionID, Documents: make(map[string]*core.OpenDocument)}

	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM sessions WHERE id = ?", sessionID).
		Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Session with specified ID not found")
			return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
		}
		log.WithError(err).Error("Failed to retrieve session")
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT document_id, permissions FROM open_documents WHERE session_id = ?", sessionID)
	if err != nil {
		log.WithError(err).Error("Failed to retrieve open documents")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		doc := core.OpenDocument{SessionID: sessionID}
		if err := rows.Scan(&doc.DocumentID, &doc.Permissions); err != nil {
			log.WithError(err).Error("Failed to scan open document row")
			return nil, err
		}
		sess.Documents[doc.DocumentID] = &doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sqliteStore) Create(ctx context.Context, session *core.Session) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		session.ID, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		logrus.WithField("session_id", session.ID).WithError(err).Error("Failed to create session")
		return err
	}
	logrus.WithField("session_id", session.ID).Info("Session created")
	return nil
}

func (s *sqliteStore) OpenDocument(ctx context.Context, sessionID string, doc *core.OpenDocument) error {
	log := logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"document_id": doc.DocumentID,
	})

	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
		}
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO open_documents (session_id, document_id, permissions)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, document_id) DO UPDATE SET permissions = excluded.permissions`,
		sessionID, doc.DocumentID, string(doc.Permissions))
	if err != nil {
		log.WithError(err).Error("Failed to open document")
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID); err != nil {
		return err
	}
	log.Info("Document opened for session")
	return nil
}

func (s *sqliteStore) CloseDocument(ctx context.Context, session *core.Session, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM open_documents WHERE session_id = ? AND document_id = ?",
		session.ID, documentID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id":  session.ID,
			"document_id": documentID,
		}).WithError(err).Error("Failed to close document")
		return err
	}
	return nil
}

// SnapshotStore implementation

func (s *sqliteStore) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (document_id, data, saved_at) VALUES (?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		snapshot.DocumentID, snapshot.Data, snapshot.SavedAt)
	if err != nil {
		logrus.WithField("document_id", snapshot.DocumentID).WithError(err).Error("Failed to save snapshot")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"document_id": snapshot.DocumentID,
		"data_length": len(snapshot.Data),
	}).Info("Snapshot saved")
	return nil
}

func (s *sqliteStore) FindSnapshot(ctx context.Context, documentID string) (*core.Snapshot, error) {
	snap := core.Snapshot{DocumentID: documentID}
	err := s.db.QueryRowContext(ctx,
		"SELECT data, saved_at FROM snapshots WHERE document_id = ?", documentID).
		Scan(&snap.Data, &snap.SavedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("snapshot for document %s not found", documentID)
		}
		return nil, err
	}
	return &snap, nil
}

func (s *sqliteStore) ListSnapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT document_id FROM snapshots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
