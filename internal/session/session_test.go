package session

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestStore_EmptyReadsAsAbsent(t *testing.T) {
	st := newTestStore(t)

	if got := st.Token(); got != "" {
		t.Errorf("Token() = %q, want empty", got)
	}
	if id, ok := st.UserID(); ok {
		t.Errorf("UserID() = %d, want absent", id)
	}
	if got := st.Username(); got != "" {
		t.Errorf("Username() = %q, want empty", got)
	}
	if got := st.Role(); got != "" {
		t.Errorf("Role() = %q, want empty", got)
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	st := newTestStore(t)

	want := Session{Token: "a.b.c", UserID: 42, Username: "maria", Role: "ROLE_USER"}
	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := st.Load()
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if id, ok := st.UserID(); !ok || id != 42 {
		t.Errorf("UserID() = %d/%v, want 42/true", id, ok)
	}
}

func TestStore_ClearRemovesAllFields(t *testing.T) {
	st := newTestStore(t)

	if err := st.Save(Session{Token: "a.b.c", UserID: 7, Username: "x", Role: "ROLE_ADMIN"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if got := st.Load(); got != (Session{}) {
		t.Errorf("Load() after Clear = %+v, want empty", got)
	}

	// Clearing twice is fine
	if err := st.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestStore_CorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if got := st.Load(); got != (Session{}) {
		t.Errorf("Load() = %+v, want empty", got)
	}
}
