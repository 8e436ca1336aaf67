package repository

import (
	"context"
	"database/sql"

	"billister-api/models"

	"github.com/google/uuid"
)

// FavoritesListLimit caps the favorites returned to one user.
const FavoritesListLimit = 200

type FavoritesRepository struct {
	db *sql.DB
}

func NewFavoritesRepository(db *sql.DB) *FavoritesRepository {
	return &FavoritesRepository{db: db}
}

func (r *FavoritesRepository) List(ctx context.Context, userID uuid.UUID) ([]models.FavoriteListing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.make, l.model, l.variant, l.price_dkk, l.fuel_type, l.transmission,
			l.year, l.mileage_km, l.created_at, f.created_at
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2
	`, userID, FavoritesListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.FavoriteListing, 0)
	for rows.Next() {
		var f models.FavoriteListing
		err := rows.Scan(&f.ID, &f.Make, &f.Model, &f.Variant, &f.PriceDkk, &f.FuelType, &f.Transmission,
			&f.Year, &f.MileageKm, &f.CreatedAt, &f.FavoritedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// Add is idempotent; the listing's favorite counter only moves when a row is inserted.
func (r *FavoritesRepository) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO favorites (user_id, listing_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`, userID, listingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE listings SET favorite_count = favorite_count + 1 WHERE id = $1
		`, listingID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Remove is idempotent; the counter never drops below zero.
func (r *FavoritesRepository) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE listings SET favorite_count = favorite_count - 1
			WHERE id = $1 AND favorite_count > 0
		`, listingID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
