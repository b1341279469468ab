package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/fabriziosardo/AR-Project/internal/artwork"
	"github.com/fabriziosardo/AR-Project/internal/geom"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Artwork represents a catalogued artwork stored in the database.
type Artwork struct {
	ID               string
	ReferenceImage   string
	Template         string
	Offset           geom.Vec
	Scale            float64
	DistanceFromWall float64
	Description      string
	ImagePath        string
	PhysicalWidth    float64
	Dialogue         []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Config converts the row into a registry entry.
func (a *Artwork) Config() artwork.Config {
	return artwork.Config{
		ReferenceImage:   a.ReferenceImage,
		Template:         a.Template,
		Offset:           a.Offset,
		Scale:            a.Scale,
		DistanceFromWall: a.DistanceFromWall,
		Dialogue:         append([]string(nil), a.Dialogue...),
		Description:      a.Description,
		ImagePath:        a.ImagePath,
		PhysicalWidth:    a.PhysicalWidth,
	}
}

// ArtworkRepository provides CRUD operations for artworks. Dialogue lines
// are written and read together with their artwork.
type ArtworkRepository struct {
	db *sql.DB
}

// Artworks returns the artwork repository for this store.
func (s *Store) Artworks() *ArtworkRepository {
	return &ArtworkRepository{db: s.db}
}

const artworkColumns = `id, reference_image, template, offset_x, offset_y, offset_z, scale,
	distance_from_wall, description, image_path, physical_width, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row rowScanner) (*Artwork, error) {
	a := &Artwork{}
	err := row.Scan(&a.ID, &a.ReferenceImage, &a.Template,
		&a.Offset.X, &a.Offset.Y, &a.Offset.Z, &a.Scale,
		&a.DistanceFromWall, &a.Description, &a.ImagePath, &a.PhysicalWidth,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new artwork and its dialogue in a single transaction.
func (r *ArtworkRepository) Create(a *Artwork) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO artworks (`+artworkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ReferenceImage, a.Template, a.Offset.X, a.Offset.Y, a.Offset.Z, a.Scale,
		a.DistanceFromWall, a.Description, a.ImagePath, a.PhysicalWidth, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := writeDialogue(tx, a.ID, a.Dialogue); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an artwork by its ID.
func (r *ArtworkRepository) GetByID(id string) (*Artwork, error) {
	return r.getOne(`SELECT `+artworkColumns+` FROM artworks WHERE id = ?`, id)
}

// GetByReferenceImage retrieves an artwork by its reference image name.
func (r *ArtworkRepository) GetByReferenceImage(name string) (*Artwork, error) {
	return r.getOne(`SELECT `+artworkColumns+` FROM artworks WHERE reference_image = ?`, name)
}

func (r *ArtworkRepository) getOne(query string, arg string) (*Artwork, error) {
	a, err := scanArtwork(r.db.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Dialogue, err = r.dialogue(a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List retrieves all artworks ordered by creation time, oldest first, so a
// registry built from the list lets later rows win.
func (r *ArtworkRepository) List() ([]*Artwork, error) {
	rows, err := r.db.Query(`SELECT ` + artworkColumns + ` FROM artworks ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}

	var artworks []*Artwork
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		artworks = append(artworks, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, a := range artworks {
		if a.Dialogue, err = r.dialogue(a.ID); err != nil {
			return nil, err
		}
	}

	return artworks, nil
}

// Configs returns every catalogued artwork as a registry entry.
func (r *ArtworkRepository) Configs() ([]artwork.Config, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	out := make([]artwork.Config, 0, len(list))
	for _, a := range list {
		out = append(out, a.Config())
	}
	return out, nil
}

// Update updates an existing artwork and replaces its dialogue.
func (r *ArtworkRepository) Update(a *Artwork) error {
	a.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE artworks SET reference_image = ?, template = ?, offset_x = ?, offset_y = ?, offset_z = ?,
		 scale = ?, distance_from_wall = ?, description = ?, image_path = ?, physical_width = ?, updated_at = ?
		 WHERE id = ?`,
		a.ReferenceImage, a.Template, a.Offset.X, a.Offset.Y, a.Offset.Z,
		a.Scale, a.DistanceFromWall, a.Description, a.ImagePath, a.PhysicalWidth, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM artwork_dialogue WHERE artwork_id = ?`, a.ID); err != nil {
		return err
	}
	if err := writeDialogue(tx, a.ID, a.Dialogue); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an artwork and its dialogue by ID.
func (r *ArtworkRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM artworks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func writeDialogue(tx *sql.Tx, artworkID string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO artwork_dialogue (artwork_id, line_index, text) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.Exec(artworkID, i, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *ArtworkRepository) dialogue(artworkID string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT text FROM artwork_dialogue WHERE artwork_id = ? ORDER BY line_index`,
		artworkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
