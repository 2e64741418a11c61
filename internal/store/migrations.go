package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the pipeline
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			camera_id INTEGER NOT NULL,
			frame_width INTEGER NOT NULL DEFAULT 0,
			frame_height INTEGER NOT NULL DEFAULT 0,
			tolerance INTEGER NOT NULL,
			subtractor TEXT NOT NULL,
			target_width INTEGER NOT NULL DEFAULT 0,
			target_height INTEGER NOT NULL DEFAULT 0,
			state TEXT NOT NULL CHECK(state IN ('running', 'disconnected', 'cancelled', 'stopped')),
			reason TEXT NOT NULL DEFAULT '',
			ticks INTEGER NOT NULL DEFAULT 0,
			targets INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
