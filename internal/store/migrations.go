package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Artworks table - stores the artwork catalog
		`CREATE TABLE IF NOT EXISTS artworks (
			id TEXT PRIMARY KEY,
			reference_image TEXT NOT NULL UNIQUE,
			template TEXT NOT NULL DEFAULT '',
			offset_x REAL NOT NULL DEFAULT 0,
			offset_y REAL NOT NULL DEFAULT 0,
			offset_z REAL NOT NULL DEFAULT 0,
			scale REAL NOT NULL DEFAULT 1,
			distance_from_wall REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			image_path TEXT NOT NULL DEFAULT '',
			physical_width REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Artwork dialogue table - stores the ordered lines a guide speaks
		`CREATE TABLE IF NOT EXISTS artwork_dialogue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artwork_id TEXT NOT NULL REFERENCES artworks(id) ON DELETE CASCADE,
			line_index INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,

		// Anchor events table - records every anchoring outcome
		`CREATE TABLE IF NOT EXISTS anchor_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			artwork TEXT NOT NULL DEFAULT '',
			character_id TEXT NOT NULL DEFAULT '',
			anchor_id TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_artwork_dialogue_artwork_id ON artwork_dialogue(artwork_id)`,
		`CREATE INDEX IF NOT EXISTS idx_anchor_events_artwork ON anchor_events(artwork)`,
		`CREATE INDEX IF NOT EXISTS idx_anchor_events_created_at ON anchor_events(created_at_ms)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
