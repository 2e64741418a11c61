package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"sessions",
	).Scan(&name)
	if err != nil {
		t.Errorf("sessions table should exist after migrations: %v", err)
	}

	err = s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_sessions_started_at",
	).Scan(&name)
	if err != nil {
		t.Errorf("sessions index should exist after migrations: %v", err)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	sess := &Session{CameraID: 1, Tolerance: 10, Subtractor: "knn"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().Get(sess.ID); err != nil {
		t.Errorf("session should survive reopen: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{
		CameraID:     2,
		FrameWidth:   640,
		FrameHeight:  480,
		Tolerance:    10,
		Subtractor:   "mog2",
		TargetWidth:  1920,
		TargetHeight: 1080,
	}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if sess.ID == "" {
		t.Error("ID should be assigned on create")
	}
	if sess.StartedAt.IsZero() {
		t.Error("StartedAt should be set on create")
	}
	if sess.State != SessionRunning {
		t.Errorf("State = %q, want %q", sess.State, SessionRunning)
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}

	if got.CameraID != 2 || got.Subtractor != "mog2" || got.Tolerance != 10 {
		t.Errorf("unexpected session: %+v", got)
	}
	if got.TargetWidth != 1920 || got.TargetHeight != 1080 {
		t.Errorf("target = %dx%d, want 1920x1080", got.TargetWidth, got.TargetHeight)
	}
	if got.EndedAt != nil {
		t.Error("EndedAt should be nil for a running session")
	}
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{CameraID: 0, Tolerance: 10, Subtractor: "knn"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	sess.State = SessionDisconnected
	sess.Reason = "camera disconnected"
	sess.Ticks = 120
	sess.Targets = 45
	sess.FrameWidth = 640
	sess.FrameHeight = 480
	if err := repo.Finish(sess); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	if sess.EndedAt == nil {
		t.Fatal("EndedAt should be set by Finish")
	}

	got, err := repo.Get(sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}

	if got.State != SessionDisconnected {
		t.Errorf("State = %q, want %q", got.State, SessionDisconnected)
	}
	if got.Reason != "camera disconnected" {
		t.Errorf("Reason = %q", got.Reason)
	}
	if got.Ticks != 120 || got.Targets != 45 {
		t.Errorf("counters = %d/%d, want 120/45", got.Ticks, got.Targets)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt should be stored")
	}
	if got.Duration() < 0 {
		t.Errorf("Duration() = %v, want non-negative", got.Duration())
	}
}

func TestSessionRepository_FinishNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Finish(&Session{ID: "missing", State: SessionStopped})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_RejectsUnknownState(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Create(&Session{Subtractor: "knn", State: "paused"})
	if err == nil {
		t.Error("expected constraint error for unknown state")
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sess := &Session{
			CameraID:   i,
			Tolerance:  10,
			Subtractor: "knn",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("failed to create session %d: %v", i, err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].CameraID != 2 || all[2].CameraID != 0 {
		t.Errorf("sessions should be newest first, got cameras %d..%d", all[0].CameraID, all[2].CameraID)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(limited))
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Tolerance: 10, Subtractor: "diff"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if err := repo.Delete(sess.ID); !errors.Is(err, ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning for a live session, got %v", err)
	}
	if _, err := repo.Get(sess.ID); err != nil {
		t.Fatalf("running session should survive delete: %v", err)
	}

	sess.State = SessionCancelled
	if err := repo.Finish(sess); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	if err := repo.Delete(sess.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := repo.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
