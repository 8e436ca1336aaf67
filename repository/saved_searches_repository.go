package repository

import (
	"context"
	"database/sql"

	"billister-api/models"

	"github.com/google/uuid"
)

const (
	// SavedSearchListLimit caps the saved searches returned to one user.
	SavedSearchListLimit = 200
)

type SavedSearchesRepository struct {
	db *sql.DB
}

func NewSavedSearchesRepository(db *sql.DB) *SavedSearchesRepository {
	return &SavedSearchesRepository{db: db}
}

const savedSearchColumns = `id, user_id, name, criteria_json, created_at, updated_at, last_notified_at`

func scanSavedSearch(row rowScanner) (*models.SavedSearch, error) {
	var s models.SavedSearch
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.CriteriaJSON, &s.CreatedAt, &s.UpdatedAt, &s.LastNotifiedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create stores a saved search. criteriaJSON must already be in canonical form.
func (r *SavedSearchesRepository) Create(ctx context.Context, userID uuid.UUID, name, criteriaJSON string) (*models.SavedSearch, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO saved_searches (user_id, name, criteria_json, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING `+savedSearchColumns, userID, name, criteriaJSON)
	return scanSavedSearch(row)
}

// GetForUser returns nil when the search does not exist or belongs to someone else.
func (r *SavedSearchesRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.SavedSearch, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = $1 AND user_id = $2
	`, id, userID)
	s, err := scanSavedSearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SavedSearchesRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+savedSearchColumns+` FROM saved_searches
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, SavedSearchListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSavedSearches(rows)
}

// ListRecent returns the most recently created saved searches across all users.
func (r *SavedSearchesRepository) ListRecent(ctx context.Context, limit int) ([]*models.SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+savedSearchColumns+` FROM saved_searches
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSavedSearches(rows)
}

func collectSavedSearches(rows *sql.Rows) ([]*models.SavedSearch, error) {
	items := make([]*models.SavedSearch, 0)
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Update changes name and/or criteria; nil leaves a field as is. It reports
// false when no search with that id belongs to the user.
func (r *SavedSearchesRepository) Update(ctx context.Context, id, userID uuid.UUID, name, criteriaJSON *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE saved_searches SET
			name = COALESCE($3, name),
			criteria_json = COALESCE($4, criteria_json),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, name, criteriaJSON)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SavedSearchesRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
