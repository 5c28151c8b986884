package diagnostics

import (
	"path/filepath"
	"testing"
)

func TestSetNoteThenReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	store := NewNoteStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	if err := store.SetNote("diag-1", "escalated to on-call"); err != nil {
		t.Fatalf("SetNote: %v", err)
	}
	if err := store.SetNote("diag-2", "known flaky sensor"); err != nil {
		t.Fatalf("SetNote: %v", err)
	}

	reloaded := NewNoteStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	note, ok := reloaded.Note("diag-1")
	if !ok || note != "escalated to on-call" {
		t.Fatalf("Note(diag-1) = %q, %v", note, ok)
	}

	ids := reloaded.IDs()
	if len(ids) != 2 || ids[0] != "diag-1" || ids[1] != "diag-2" {
		t.Fatalf("IDs = %v, want sorted [diag-1 diag-2]", ids)
	}
}

func TestSetNoteEmptyRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	store := NewNoteStore(path)
	if err := store.SetNote("diag-1", "initial"); err != nil {
		t.Fatalf("SetNote: %v", err)
	}
	if err := store.SetNote("diag-1", ""); err != nil {
		t.Fatalf("SetNote empty: %v", err)
	}
	if _, ok := store.Note("diag-1"); ok {
		t.Fatal("expected diag-1 to be removed after empty note")
	}
	if len(store.IDs()) != 0 {
		t.Fatalf("IDs = %v, want empty", store.IDs())
	}
}

func TestLoadTreatsMissingFileAsEmpty(t *testing.T) {
	store := NewNoteStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(store.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot for missing file")
	}
}
