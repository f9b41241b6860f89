package riser

import (
	"path/filepath"
	"testing"
)

func statesEqual(a, b State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func TestStateRoundTrip(t *testing.T) {
	s := State{
		{0.5, -1.25, 3},
		{},
		{42},
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := SaveState(path, s); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !statesEqual(got, s) {
		t.Errorf("loaded snapshot = %v, want %v", got, s)
	}
}

func TestLoadStateMissingFile(t *testing.T) {
	if _, err := LoadState(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Errorf("expected error for a missing snapshot file")
	}
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}

	s := State{{1, 2}, {3}}
	if err := store.Save("exp_latest_model.json", s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("exp_latest_model.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !statesEqual(got, s) {
		t.Errorf("loaded snapshot = %v, want %v", got, s)
	}

	if _, err := store.Load("exp_0_best_model.json"); err == nil {
		t.Errorf("expected error for an unknown snapshot name")
	}
}

func TestStateClone(t *testing.T) {
	s := State{{1, 2}, {3}}
	c := s.Clone()
	c[0][0] = 9
	if s[0][0] != 1 {
		t.Errorf("Clone shares backing storage with the original")
	}
}
