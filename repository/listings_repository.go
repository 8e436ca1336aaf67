package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"billister-api/criteria"
	"billister-api/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mmcloughlin/geohash"
)

const (
	listingColumns = `id, seller_user_id, make, model, variant, year, mileage_km, price_dkk,
		fuel_type, is_plug_in_hybrid, electric_range_km, battery_kwh, transmission, body_type, color,
		doors, seats, horsepower, kilowatts, engine_liters, cylinders, has_tow_hook, has_four_wheel_drive,
		latitude, longitude, geohash, postal_code, city, title, description,
		features_json, extra_attributes_json, view_count, favorite_count, created_at, updated_at`

	summaryColumns = `id, make, model, variant, price_dkk, fuel_type, transmission, year, mileage_km,
		electric_range_km, latitude, longitude, city, view_count, favorite_count, created_at`

	// NearbyLimit caps the number of map pins returned by Nearby.
	NearbyLimit = 200

	geohashPrecision = 7
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type ListingsRepository struct {
	db        *sql.DB
	evaluator criteria.Evaluator
}

func NewListingsRepository(db *sql.DB) *ListingsRepository {
	return &ListingsRepository{db: db, evaluator: criteria.Engine{}}
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.SellerUserID, &l.Make, &l.Model, &l.Variant, &l.Year, &l.MileageKm, &l.PriceDkk,
		&l.FuelType, &l.IsPlugInHybrid, &l.ElectricRangeKm, &l.BatteryKwh, &l.Transmission, &l.BodyType, &l.Color,
		&l.Doors, &l.Seats, &l.Horsepower, &l.Kilowatts, &l.EngineLiters, &l.Cylinders, &l.HasTowHook, &l.HasFourWheelDrive,
		&l.Latitude, &l.Longitude, &l.Geohash, &l.PostalCode, &l.City, &l.Title, &l.Description,
		&l.FeaturesJSON, &l.ExtraAttributesJSON, &l.ViewCount, &l.FavoriteCount, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanSummary(row rowScanner) (models.ListingSummary, error) {
	var s models.ListingSummary
	err := row.Scan(
		&s.ID, &s.Make, &s.Model, &s.Variant, &s.PriceDkk, &s.FuelType, &s.Transmission, &s.Year, &s.MileageKm,
		&s.ElectricRangeKm, &s.Latitude, &s.Longitude, &s.City, &s.ViewCount, &s.FavoriteCount, &s.CreatedAt,
	)
	return s, err
}

// listingGeohash returns nil unless both coordinates are present.
func listingGeohash(lat, lng *float64) *string {
	if lat == nil || lng == nil {
		return nil
	}
	h := geohash.EncodeWithPrecision(*lat, *lng, geohashPrecision)
	return &h
}

func (r *ListingsRepository) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if l.FeaturesJSON == "" {
		l.FeaturesJSON = "[]"
	}
	if l.ExtraAttributesJSON == "" {
		l.ExtraAttributesJSON = "{}"
	}
	l.Geohash = listingGeohash(l.Latitude, l.Longitude)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO listings (
			seller_user_id, make, model, variant, year, mileage_km, price_dkk,
			fuel_type, is_plug_in_hybrid, electric_range_km, battery_kwh, transmission, body_type, color,
			doors, seats, horsepower, kilowatts, engine_liters, cylinders, has_tow_hook, has_four_wheel_drive,
			latitude, longitude, geohash, postal_code, city, title, description,
			features_json, extra_attributes_json, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $27, $28, $29,
			$30, $31, NOW()
		)
		RETURNING id, created_at
	`,
		l.SellerUserID, l.Make, l.Model, l.Variant, l.Year, l.MileageKm, l.PriceDkk,
		l.FuelType, l.IsPlugInHybrid, l.ElectricRangeKm, l.BatteryKwh, l.Transmission, l.BodyType, l.Color,
		l.Doors, l.Seats, l.Horsepower, l.Kilowatts, l.EngineLiters, l.Cylinders, l.HasTowHook, l.HasFourWheelDrive,
		l.Latitude, l.Longitude, l.Geohash, l.PostalCode, l.City, l.Title, l.Description,
		l.FeaturesJSON, l.ExtraAttributesJSON,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}

	if err := insertImages(ctx, tx, l.ID, l.Images); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return l, nil
}

func insertImages(ctx context.Context, tx *sql.Tx, listingID uuid.UUID, images []models.ListingImage) error {
	for i := range images {
		img := &images[i]
		img.ListingID = listingID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO listing_images (listing_id, url, sort_order, width, height, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id
		`, listingID, img.URL, img.SortOrder, img.Width, img.Height).Scan(&img.ID)
		if err != nil {
			return fmt.Errorf("insert listing image: %w", err)
		}
	}
	return nil
}

func (r *ListingsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	images, err := r.loadImages(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	l.Images = nonNilImages(images[id])
	return l, nil
}

// Exists reports whether a listing with the given id exists.
func (r *ListingsRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Search returns one page of listings matching c, newest first, and the
// total number of matches before pagination.
func (r *ListingsRepository) Search(ctx context.Context, c criteria.FilterCriteria, page, pageSize int) ([]models.ListingSummary, int, error) {
	frag := r.evaluator.ToQuery(c)
	return r.pagedSummaries(ctx, frag.Where(), frag.Args, page, pageSize)
}

// ListBySeller is Search restricted to one seller with no other filters.
func (r *ListingsRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]models.ListingSummary, int, error) {
	return r.pagedSummaries(ctx, "WHERE seller_user_id = $1", []interface{}{sellerID}, page, pageSize)
}

func (r *ListingsRepository) pagedSummaries(ctx context.Context, where string, args []interface{}, page, pageSize int) ([]models.ListingSummary, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	next := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM listings %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		summaryColumns, where, next, next+1)
	pageArgs := append(append(make([]interface{}, 0, len(args)+2), args...), pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	items := make([]models.ListingSummary, 0, pageSize)
	ids := make([]uuid.UUID, 0, pageSize)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	images, err := r.loadImages(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Images = nonNilImages(images[items[i].ID])
	}
	return items, total, nil
}

func (r *ListingsRepository) loadImages(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID][]models.ListingImage, error) {
	result := make(map[uuid.UUID][]models.ListingImage, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, listing_id, url, sort_order, width, height
		FROM listing_images
		WHERE listing_id = ANY($1::uuid[])
		ORDER BY listing_id, sort_order
	`, pq.Array(uuidStrings(listingIDs)))
	if err != nil {
		return nil, fmt.Errorf("load listing images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.SortOrder, &img.Width, &img.Height); err != nil {
			return nil, err
		}
		result[img.ListingID] = append(result[img.ListingID], img)
	}
	return result, rows.Err()
}

// Update applies the non-nil fields of upd. A non-nil Images slice replaces all images.
func (r *ListingsRepository) Update(ctx context.Context, id uuid.UUID, upd models.ListingUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE listings SET
			price_dkk = COALESCE($2, price_dkk),
			mileage_km = COALESCE($3, mileage_km),
			title = COALESCE($4, title),
			description = COALESCE($5, description),
			features_json = COALESCE($6, features_json),
			extra_attributes_json = COALESCE($7, extra_attributes_json),
			updated_at = NOW()
		WHERE id = $1
	`, id, upd.PriceDkk, upd.MileageKm, upd.Title, upd.Description, upd.FeaturesJSON, upd.ExtraAttributesJSON)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}

	if upd.Images != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM listing_images WHERE listing_id = $1`, id); err != nil {
			return err
		}
		if err := insertImages(ctx, tx, id, upd.Images); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddImage appends one image after the listing's current last image.
func (r *ListingsRepository) AddImage(ctx context.Context, listingID uuid.UUID, img models.ListingImage) (*models.ListingImage, error) {
	img.ListingID = listingID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO listing_images (listing_id, url, sort_order, width, height, created_at)
		VALUES ($1, $2, COALESCE((SELECT MAX(sort_order) + 1 FROM listing_images WHERE listing_id = $1), 0), $3, $4, NOW())
		RETURNING id, sort_order
	`, listingID, img.URL, img.Width, img.Height).Scan(&img.ID, &img.SortOrder)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *ListingsRepository) SetDescription(ctx context.Context, id uuid.UUID, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET description = $2, updated_at = NOW() WHERE id = $1
	`, id, description)
	return err
}

func (r *ListingsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	return err
}

// RegisterView bumps the view counter in place and records the view.
// It reports false when the listing does not exist.
func (r *ListingsRepository) RegisterView(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID, viewerIP string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE listings SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	var ip *string
	if viewerIP != "" {
		ip = &viewerIP
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO listing_views (listing_id, viewer_user_id, viewer_ip, created_at)
		VALUES ($1, $2, $3, NOW())
	`, id, uuid.NullUUID{UUID: derefUUID(viewerID), Valid: viewerID != nil}, ip)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Nearby returns up to NearbyLimit listings inside the bounding box around the point.
func (r *ListingsRepository) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.NearbyListing, error) {
	box := criteria.BoxAround(lat, lng, radiusKm)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, make, model, price_dkk, latitude, longitude
		FROM listings
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
			AND latitude >= $1 AND latitude <= $2
			AND longitude >= $3 AND longitude <= $4
		ORDER BY created_at DESC
		LIMIT $5
	`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng, NearbyLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.NearbyListing, 0)
	for rows.Next() {
		var n models.NearbyListing
		if err := rows.Scan(&n.ID, &n.Make, &n.Model, &n.PriceDkk, &n.Latitude, &n.Longitude); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *ListingsRepository) Compare(ctx context.Context, ids []uuid.UUID) ([]models.ListingComparison, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, make, model, variant, price_dkk, fuel_type, transmission, year, mileage_km,
			electric_range_km, battery_kwh, horsepower, kilowatts, has_tow_hook, has_four_wheel_drive
		FROM listings
		WHERE id = ANY($1::uuid[])
	`, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ListingComparison, 0, len(ids))
	for rows.Next() {
		var c models.ListingComparison
		err := rows.Scan(&c.ID, &c.Make, &c.Model, &c.Variant, &c.PriceDkk, &c.FuelType, &c.Transmission,
			&c.Year, &c.MileageKm, &c.ElectricRangeKm, &c.BatteryKwh, &c.Horsepower, &c.Kilowatts,
			&c.HasTowHook, &c.HasFourWheelDrive)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// PruneViews deletes view records older than cutoff.
func (r *ListingsRepository) PruneViews(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listing_views WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func nonNilImages(images []models.ListingImage) []models.ListingImage {
	if images == nil {
		return []models.ListingImage{}
	}
	return images
}
