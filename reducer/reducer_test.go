package reducer

import (
	"reflect"
	"testing"
)

func TestLastWriterWins_MergesObjects(t *testing.T) {
	state := map[string]any{"text": "hi", "title": "draft"}
	edit := map[string]any{"type": "patch", "document": map[string]any{"text": "hi!"}}

	next := LastWriterWins(state, edit)

	want := map[string]any{"text": "hi!", "title": "draft"}
	if !reflect.DeepEqual(next, want) {
		t.Errorf("LastWriterWins() = %v, want %v", next, want)
	}
	if state["text"] != "hi" {
		t.Error("input state must not be mutated")
	}
}

func TestLastWriterWins_ReplacesNonObjects(t *testing.T) {
	next := LastWriterWins("old text", map[string]any{"type": "set", "document": "new text"})
	if next != "new text" {
		t.Errorf("LastWriterWins() = %v, want replacement", next)
	}

	next = LastWriterWins(map[string]any{"a": 1}, map[string]any{"type": "set", "document": []any{1, 2}})
	if !reflect.DeepEqual(next, []any{1, 2}) {
		t.Errorf("LastWriterWins() = %v, want the edit's document", next)
	}
}

func TestLastWriterWins_UnknownEditShapes(t *testing.T) {
	state := map[string]any{"text": "hi"}

	for _, edit := range []any{nil, "noise", map[string]any{"type": "ping"}} {
		next := LastWriterWins(state, edit)
		if !reflect.DeepEqual(next, state) {
			t.Errorf("edit %v: state must be unchanged, got %v", edit, next)
		}
	}
}

func TestLastWriterWins_Deterministic(t *testing.T) {
	state := map[string]any{"a": 1, "b": 2}
	edit := map[string]any{"type": "patch", "document": map[string]any{"b": 3, "c": 4}}

	first := LastWriterWins(state, edit)
	second := LastWriterWins(state, edit)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs must produce the same output: %v vs %v", first, second)
	}
}
