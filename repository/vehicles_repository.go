package repository

import (
	"context"
	"database/sql"

	"billister-api/models"

	"github.com/google/uuid"
)

type VehiclesRepository struct {
	db *sql.DB
}

func NewVehiclesRepository(db *sql.DB) *VehiclesRepository {
	return &VehiclesRepository{db: db}
}

func (r *VehiclesRepository) ListMakes(ctx context.Context) ([]models.VehicleMake, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM vehicle_makes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]models.VehicleMake, 0)
	for rows.Next() {
		var m models.VehicleMake
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *VehiclesRepository) ListModels(ctx context.Context, makeID uuid.UUID) ([]models.VehicleModel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, make_id, name FROM vehicle_models WHERE make_id = $1 ORDER BY name
	`, makeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]models.VehicleModel, 0)
	for rows.Next() {
		var m models.VehicleModel
		if err := rows.Scan(&m.ID, &m.MakeID, &m.Name); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
