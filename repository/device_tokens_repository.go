package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type DeviceTokensRepository struct {
	db *sql.DB
}

func NewDeviceTokensRepository(db *sql.DB) *DeviceTokensRepository {
	return &DeviceTokensRepository{db: db}
}

// Upsert keeps one token per (user, platform); a newer token replaces the old one.
func (r *DeviceTokensRepository) Upsert(ctx context.Context, userID uuid.UUID, platform, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, platform, token, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, platform) DO UPDATE SET token = EXCLUDED.token
	`, userID, platform, token)
	return err
}
