// Package db provides CRUD repository operations for photo records.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
	"github.com/kimhsiao/photowall/backend/internal/id"
	"github.com/kimhsiao/photowall/backend/internal/models"
)

// Repository provides CRUD operations for photo records.
// Statements are prepared on first use and cached for reuse.
type Repository struct {
	db *sql.DB

	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
// Key is the query string, value is the prepared statement.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Photo Operations
// =====================================================

// CreatePhoto inserts a new photo record. The id and created_at fields
// are assigned here.
func (r *Repository) CreatePhoto(photo *models.Photo) error {
	photo.ID = models.UUID(id.New())
	photo.CreatedAt = time.Now().Unix()

	query := `
	INSERT INTO photos (id, image, caption, timestamp, x, y, rotation, state,
		z_index, caption_generation, progress, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, photo.ID, photo.Image, photo.Caption,
		photo.Timestamp, photo.X, photo.Y, photo.Rotation, photo.State,
		photo.ZIndex, photo.CaptionGeneration, photo.Progress, photo.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.ErrDatabase, "failed to create photo", err)
	}
	return nil
}

// GetPhoto retrieves a photo by ID.
func (r *Repository) GetPhoto(photoID string) (*models.Photo, error) {
	query := `
	SELECT id, image, caption, timestamp, x, y, rotation, state,
		   z_index, caption_generation, progress, created_at
	FROM photos WHERE id = ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var photo models.Photo
	err = stmt.QueryRow(photoID).Scan(
		&photo.ID, &photo.Image, &photo.Caption, &photo.Timestamp,
		&photo.X, &photo.Y, &photo.Rotation, &photo.State,
		&photo.ZIndex, &photo.CaptionGeneration, &photo.Progress,
		&photo.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.ErrPhotoNotFound, "photo not found: "+photoID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrDatabase, "failed to get photo", err)
	}
	return &photo, nil
}

// ListPhotos returns all photos in back-to-front draw order.
func (r *Repository) ListPhotos() ([]*models.Photo, error) {
	query := `
	SELECT id, image, caption, timestamp, x, y, rotation, state,
		   z_index, caption_generation, progress, created_at
	FROM photos ORDER BY z_index ASC, created_at ASC
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrDatabase, "failed to list photos", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(
			&photo.ID, &photo.Image, &photo.Caption, &photo.Timestamp,
			&photo.X, &photo.Y, &photo.Rotation, &photo.State,
			&photo.ZIndex, &photo.CaptionGeneration, &photo.Progress,
			&photo.CreatedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.ErrDatabase, "failed to scan photo", err)
		}
		photos = append(photos, &photo)
	}
	return photos, rows.Err()
}

// CountPhotos returns the number of photos on the wall.
func (r *Repository) CountPhotos() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM photos").Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrDatabase, "failed to count photos", err)
	}
	return count, nil
}

// UpdatePosition moves a photo to a new screen position.
func (r *Repository) UpdatePosition(photoID string, x, y float64) error {
	stmt, err := r.PrepareStmt("UPDATE photos SET x = ?, y = ? WHERE id = ?")
	if err != nil {
		return err
	}
	return r.execOne(stmt, photoID, x, y, photoID)
}

// SetState updates a photo's lifecycle state.
func (r *Repository) SetState(photoID string, state models.LifecycleState) error {
	stmt, err := r.PrepareStmt("UPDATE photos SET state = ? WHERE id = ?")
	if err != nil {
		return err
	}
	return r.execOne(stmt, photoID, state, photoID)
}

// SetProgress records the current development progress for a photo.
func (r *Repository) SetProgress(photoID string, progress int) error {
	stmt, err := r.PrepareStmt("UPDATE photos SET progress = ? WHERE id = ?")
	if err != nil {
		return err
	}
	return r.execOne(stmt, photoID, progress, photoID)
}

// MarkDeveloped flips a developing photo to developed and pins progress at
// its maximum. The state predicate makes the flip idempotent: once the photo
// is developed (or deleted) further calls affect zero rows. The returned
// bool reports whether this call performed the flip.
func (r *Repository) MarkDeveloped(photoID string) (bool, error) {
	stmt, err := r.PrepareStmt(`
	UPDATE photos SET state = ?, progress = ?
	WHERE id = ? AND state = ?
	`)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(models.StateDeveloped, models.MaxProgress,
		photoID, models.StateDeveloping)
	if err != nil {
		return false, apperr.Wrap(apperr.ErrDatabase, "failed to mark developed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.ErrDatabase, "failed to mark developed", err)
	}
	return n == 1, nil
}

// SetZIndex updates a photo's stacking order.
func (r *Repository) SetZIndex(photoID string, z int) error {
	stmt, err := r.PrepareStmt("UPDATE photos SET z_index = ? WHERE id = ?")
	if err != nil {
		return err
	}
	return r.execOne(stmt, photoID, z, photoID)
}

// BeginCaptionRequest bumps the photo's caption generation, writes the
// in-flight placeholder text, and returns the new generation. Increment and
// read-back are one statement, so overlapping requests each observe a
// distinct generation.
func (r *Repository) BeginCaptionRequest(photoID, placeholder string) (int64, error) {
	stmt, err := r.PrepareStmt(`
	UPDATE photos SET caption_generation = caption_generation + 1, caption = ?
	WHERE id = ?
	RETURNING caption_generation
	`)
	if err != nil {
		return 0, err
	}

	var generation int64
	err = stmt.QueryRow(placeholder, photoID).Scan(&generation)
	if err == sql.ErrNoRows {
		return 0, apperr.New(apperr.ErrPhotoNotFound, "photo not found: "+photoID)
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrDatabase, "failed to begin caption request", err)
	}
	return generation, nil
}

// CompleteCaptionRequest writes a caption result, but only if the photo
// still exists and its caption generation equals the one the request was
// issued under. Returns false when the result was discarded because a newer
// request superseded it or the photo was deleted.
func (r *Repository) CompleteCaptionRequest(photoID string, generation int64, caption string) (bool, error) {
	stmt, err := r.PrepareStmt(`
	UPDATE photos SET caption = ?
	WHERE id = ? AND caption_generation = ?
	`)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(caption, photoID, generation)
	if err != nil {
		return false, apperr.Wrap(apperr.ErrDatabase, "failed to write caption", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.ErrDatabase, "failed to write caption", err)
	}
	return n == 1, nil
}

// DeletePhoto removes a photo record. Deleting is terminal: any in-flight
// caption completion for the id will match zero rows afterwards.
func (r *Repository) DeletePhoto(photoID string) error {
	stmt, err := r.PrepareStmt("DELETE FROM photos WHERE id = ?")
	if err != nil {
		return err
	}
	return r.execOne(stmt, photoID, photoID)
}

// execOne runs an update that must touch exactly one row; zero rows means
// the photo does not exist. The trailing photoID is only used for the error.
func (r *Repository) execOne(stmt *sql.Stmt, photoID string, args ...interface{}) error {
	res, err := stmt.Exec(args...)
	if err != nil {
		return apperr.Wrap(apperr.ErrDatabase, "photo update failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.ErrDatabase, "photo update failed", err)
	}
	if n == 0 {
		return apperr.New(apperr.ErrPhotoNotFound, "photo not found: "+photoID)
	}
	return nil
}
