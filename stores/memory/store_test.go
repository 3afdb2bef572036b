package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"collabsync/core"
)

func TestNewStore(t *testing.T) {
	store := NewStore()
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestLookup_NotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Lookup(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for an unknown session")
	}
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateAndLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	session := &core.Session{ID: "s1", Documents: make(map[string]*core.OpenDocument)}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("ID = %q, want s1", got.ID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt must be set by Create()")
	}
}

func TestCreate_EmptyID(t *testing.T) {
	store := NewStore()
	if err := store.Create(context.Background(), &core.Session{}); err == nil {
		t.Error("expected an error for an empty session ID")
	}
}

func TestOpenAndCloseDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	session := &core.Session{ID: "s1"}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadWrite}
	if err := store.OpenDocument(ctx, "s1", doc); err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}

	got, err := store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	open := got.Open("doc1")
	if open == nil {
		t.Fatal("expected doc1 in the session's open set")
	}
	if open.Permissions != core.PermissionReadWrite {
		t.Errorf("permissions = %s, want read-write", open.Permissions)
	}

	if err := store.CloseDocument(ctx, got, "doc1"); err != nil {
		t.Fatalf("CloseDocument() failed: %v", err)
	}
	got, err = store.Lookup(ctx, "s1")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got.Open("doc1") != nil {
		t.Error("doc1 must be gone after CloseDocument()")
	}
}

func TestOpenDocument_UnknownSession(t *testing.T) {
	store := NewStore()
	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "nope", Permissions: core.PermissionReadOnly}
	err := store.OpenDocument(context.Background(), "nope", doc)
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Create(ctx, &core.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	doc := &core.OpenDocument{DocumentID: "doc1", SessionID: "s1", Permissions: core.PermissionReadOnly}
	if err := store.OpenDocument(ctx, "s1", doc); err != nil {
		t.Fatalf("OpenDocument() failed: %v", err)
	}

	first, _ := store.Lookup(ctx, "s1")
	first.Open("doc1").Permissions = core.PermissionReadWrite

	second, _ := store.Lookup(ctx, "s1")
	if second.Open("doc1").Permissions != core.PermissionReadOnly {
		t.Error("mutating a looked-up session must not affect the store")
	}
}

func TestSnapshots(t *testing.T) {
	store := NewStore()
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

	if _, err := store.FindSnapshot(ctx, "missing"); err == nil {
		t.Error("expected an error for a missing snapshot")
	}

	ids, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "doc1" {
		t.Errorf("ListSnapshots() = %v, want [doc1]", ids)
	}
}

func TestSaveSnapshot_EmptyID(t *testing.T) {
	store := NewStore()
	if err := store.SaveSnapshot(context.Background(), &core.Snapshot{}); err == nil {
		t.Error("expected an error for an empty document ID")
	}
}
