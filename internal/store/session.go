package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSessionRunning is returned when deleting a session whose run has not finished.
	ErrSessionRunning = errors.New("session is still running")
)

// SessionState is the recorded outcome of a run.
type SessionState string

const (
	SessionRunning      SessionState = "running"
	SessionDisconnected SessionState = "disconnected"
	SessionCancelled    SessionState = "cancelled"
	SessionStopped      SessionState = "stopped"
)

// Session is one run of the pointing pipeline.
type Session struct {
	ID           string
	CameraID     int
	FrameWidth   int
	FrameHeight  int
	Tolerance    int
	Subtractor   string
	TargetWidth  int
	TargetHeight int
	State        SessionState
	Reason       string
	Ticks        int64
	Targets      int64
	StartedAt    time.Time
	EndedAt      *time.Time
}

// Duration returns how long the session ran, or has run so far.
func (s *Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionRepository provides access to recorded sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, camera_id, frame_width, frame_height, tolerance, subtractor,
	target_width, target_height, state, reason, ticks, targets, started_at, ended_at`

// Create inserts a new running session. ID and StartedAt are filled in when empty.
func (r *SessionRepository) Create(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	if s.State == "" {
		s.State = SessionRunning
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.CameraID, s.FrameWidth, s.FrameHeight, s.Tolerance, s.Subtractor,
		s.TargetWidth, s.TargetHeight, string(s.State), s.Reason, s.Ticks, s.Targets,
		s.StartedAt, s.EndedAt,
	)
	return err
}

// Finish stores the final state and counters of s and stamps EndedAt.
func (r *SessionRepository) Finish(s *Session) error {
	if s.EndedAt == nil {
		now := time.Now()
		s.EndedAt = &now
	}

	result, err := r.db.Exec(
		`UPDATE sessions
		 SET frame_width = ?, frame_height = ?, state = ?, reason = ?, ticks = ?, targets = ?, ended_at = ?
		 WHERE id = ?`,
		s.FrameWidth, s.FrameHeight, string(s.State), s.Reason, s.Ticks, s.Targets, *s.EndedAt, s.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns the most recent sessions first. A limit of zero or less returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a finished session by its ID. A session still in the
// running state belongs to a live run and is kept; Delete returns
// ErrSessionRunning for it.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ? AND state != ?`, id, string(SessionRunning))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var state string
	err = r.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	return ErrSessionRunning
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var state string
	var endedAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.CameraID, &s.FrameWidth, &s.FrameHeight, &s.Tolerance, &s.Subtractor,
		&s.TargetWidth, &s.TargetHeight, &state, &s.Reason, &s.Ticks, &s.Targets,
		&s.StartedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	s.State = SessionState(state)
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}
