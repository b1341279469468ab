package store

import (
	"database/sql"
	"time"
)

// AnchorEvent is one recorded anchoring outcome.
type AnchorEvent struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	EntityID    string    `json:"entity_id"`
	Artwork     string    `json:"artwork"`
	CharacterID string    `json:"character_id,omitempty"`
	AnchorID    string    `json:"anchor_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnchorStats summarises the log for one artwork.
type AnchorStats struct {
	Artwork   string `json:"artwork"`
	Requested int    `json:"requested"`
	Anchored  int    `json:"anchored"`
	Failed    int    `json:"failed"`
	Discarded int    `json:"discarded"`
}

// AnchorLogRepository appends to and queries the anchor log.
type AnchorLogRepository struct {
	db *sql.DB
}

// AnchorLog returns the anchor log repository for this store.
func (s *Store) AnchorLog() *AnchorLogRepository {
	return &AnchorLogRepository{db: s.db}
}

// Append records an event. A zero CreatedAt is set to now.
func (r *AnchorLogRepository) Append(e *AnchorEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO anchor_events (kind, entity_id, artwork, character_id, anchor_id, error, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.EntityID, e.Artwork, e.CharacterID, e.AnchorID, e.Error, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit events, newest first. An empty artwork matches
// every artwork.
func (r *AnchorLogRepository) Recent(artwork string, limit int) ([]AnchorEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(
		`SELECT id, kind, entity_id, artwork, character_id, anchor_id, error, created_at_ms
		 FROM anchor_events
		 WHERE ? = '' OR artwork = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		artwork, artwork, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AnchorEvent
	for rows.Next() {
		var e AnchorEvent
		var ms int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.EntityID, &e.Artwork, &e.CharacterID, &e.AnchorID, &e.Error, &ms); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats counts outcomes per artwork, ordered by artwork name.
func (r *AnchorLogRepository) Stats() ([]AnchorStats, error) {
	rows, err := r.db.Query(
		`SELECT artwork,
		        SUM(CASE WHEN kind = 'anchor_requested' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'anchored' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'anchor_failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'anchor_discarded' THEN 1 ELSE 0 END)
		 FROM anchor_events
		 GROUP BY artwork
		 ORDER BY artwork`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []AnchorStats
	for rows.Next() {
		var s AnchorStats
		if err := rows.Scan(&s.Artwork, &s.Requested, &s.Anchored, &s.Failed, &s.Discarded); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Prune deletes events older than cutoff and returns how many were removed.
func (r *AnchorLogRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM anchor_events WHERE created_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
