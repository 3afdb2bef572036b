package filesystem

import (
	"context"
	"errors"
	"testing"
	"time"

	"collabsync/core"
)

func TestSessionRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	if err := store.Create(ctx, &core.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadOnly}
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
	if open.Permissions != core.PermissionReadOnly {
		t.Errorf("permissions = %s, want read-only", open.Permissions)
	}

	if err := store.CloseDocument(ctx, sess, "doc1"); err != nil {
		t.Fatalf("CloseDocument() failed: %v", err)
	}
	sess, _ = store.Lookup(ctx, "s1")
	if sess.Open("doc1") != nil {
		t.Error("doc1 must be gone after CloseDocument()")
	}
}

func TestLookup_NotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Lookup(context.Background(), "missing")
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	snap := &core.Snapshot{DocumentID: "doc1", Data: []byte(`{"text":"hi"}`), SavedAt: time.Now()}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	got, err := store.FindSnapshot(ctx, "doc1")
	if err != nil {
		t.Fatalf("FindSnapshot() failed: %v", err)
	}
	if string(got.Data) != `{"text":"hi"}` {
		t.Errorf("snapshot data = %s", got.Data)
	}

	ids, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "doc1" {
		t.Errorf("ListSnapshots() = %v, want [doc1]", ids)
	}
}
