package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"collabsync/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const (
	sessionPrefix  = "sessions/"
	snapshotPrefix = "snapshots/"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

// SessionStore implementation

func (s *s3Store) Lookup(ctx context.Context, sessionID string) (*core.Session, error) {
	data, err := s.getObject(ctx, sessionPrefix+sessionID)
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			logrus.WithField("session_id", sessionID).Warn("Session with specified ID not found")
			return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *s3Store) Create(ctx context.Context, session *core.Session) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if err := s.putSession(ctx, session); err != nil {
		return err
	}
	logrus.WithField("session_id", session.ID).Info("Session created")
	return nil
}

func (s *s3Store) OpenDocument(ctx context.Context, sessionID string, doc *core.OpenDocument) error {
	sess, err := s.Lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Documents == nil {
		sess.Documents = make(map[string]*core.OpenDocument)
	}
	sess.Documents[doc.DocumentID] = doc
	sess.UpdatedAt = time.Now()
	return s.putSession(ctx, sess)
}

func (s *s3Store) CloseDocument(ctx context.Context, session *core.Session, documentID string) error {
	sess, err := s.Lookup(ctx, session.ID)
	if err != nil {
		return err
	}
	delete(sess.Documents, documentID)
	sess.UpdatedAt = time.Now()
	return s.putSession(ctx, sess)
}

// SnapshotStore implementation

func (s *s3Store) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := s.putObject(ctx, snapshotPrefix+snapshot.DocumentID, data); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.DocumentID, err)
	}
	logrus.WithFields(logrus.Fields{
		"document_id": snapshot.DocumentID,
		"data_length": len(snapshot.Data),
	}).Info("Snapshot saved")
	return nil
}

func (s *s3Store) FindSnapshot(ctx context.Context, documentID string) (*core.Snapshot, error) {
	data, err := s.getObject(ctx, snapshotPrefix+documentID)
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
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

func (s *s3Store) ListSnapshots(ctx context.Context) ([]string, error) {
	resp, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(snapshotPrefix),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		ids = append(ids, path.Base(aws.ToString(obj.Key)))
	}
	return ids, nil
}

func (s *s3Store) putSession(ctx context.Context, sess *core.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.putObject(ctx, sessionPrefix+sess.ID, data); err != nil {
		return fmt.Errorf("failed to put session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *s3Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}
