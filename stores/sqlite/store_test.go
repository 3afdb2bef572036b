package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"collabsync/core"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "test.db"))
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &core.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadWrite}
	if err := store.OpenDocument(ctx, "s1", doc); err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}

	sess, err := store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	open := sess.Open("doc1")
	if open == nil {
		t.Fatal("expected doc1 in the session's open set")
	}
	if open.Permissions != core.PermissionReadWrite {
		t.Errorf("permissions = %s, want read-write", open.Permissions)
	}
	if open.SessionID != "s1" {
		t.Errorf("session ID = %s, want s1", open.SessionID)
	}

	if err := store.CloseDocument(ctx, sess, "doc1"); err != nil {
		t.Fatalf("CloseDocument() failed: %v", err)
	}
	sess, err = store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if sess.Open("doc1") != nil {
		t.Error("doc1 must be gone after CloseDocument()")
	}
}

func TestLookup_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Lookup(context.Background(), "missing")
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOpenDocument_UnknownSession(t *testing.T) {
	store := newTestStore(t)
	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "nope", Permissions: core.PermissionReadOnly}
	err := store.OpenDocument(context.Background(), "nope", doc)
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOpenDocument_UpdatesPermissions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &core.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	first := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadOnly}
	if err := store.OpenDocument(ctx, "s1", first); err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}
	second := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadWrite}
	if err := store.OpenDocument(ctx, "s1", second); err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}

	sess, err := store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got := sess.Open("doc1").Permissions; got != core.PermissionReadWrite {
		t.Errorf("permissions = %s, want read-write after reopen", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := &core.Snapshot{DocumentID: "doc1", Data: []byte(`{"text":"hi"}`), SavedAt: time.Now()}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	// Second save replaces the first.
	snap.Data = []byte(`{"text":"hi!"}`)
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	got, err := store.FindSnapshot(ctx, "doc1")
	if err != nil {
		t.Fatalf("FindSnapshot() failed: %v", err)
	}
	if string(got.Data) != `{"text":"hi!"}` {
		t.Errorf("snapshot data = %s", got.Data)
	}

	ids, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "doc1" {
		t.Errorf("ListSnapshots() = %v, want [doc1]", ids)
	}

	if _, err := store.FindSnapshot(ctx, "missing"); err == nil {
		t.Error("expected an error for a missing snapshot")
	}
}
