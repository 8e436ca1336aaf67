package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"billister-api/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MatchEventListLimit caps the events returned to one user.
const MatchEventListLimit = 200

type MatchEventsRepository struct {
	db *sql.DB
}

func NewMatchEventsRepository(db *sql.DB) *MatchEventsRepository {
	return &MatchEventsRepository{db: db}
}

// AppendMatchEvents writes all events in one transaction using COPY. IDs and
// creation times are assigned here and written back into events.
func (r *MatchEventsRepository) AppendMatchEvents(ctx context.Context, events []models.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("search_match_notifications",
		"id", "user_id", "saved_search_id", "listing_id", "title", "body", "sent", "created_at"))
	if err != nil {
		return fmt.Errorf("prepare match event copy: %w", err)
	}

	now := time.Now().UTC()
	for i := range events {
		e := &events[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, e.ID, e.UserID, e.SavedSearchID, e.ListingID, e.Title, e.Body, e.Sent, e.CreatedAt); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy match event: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush match events: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

// ListForUser returns the user's match events, newest first. With
// unsentOnly only events still awaiting delivery are returned.
func (r *MatchEventsRepository) ListForUser(ctx context.Context, userID uuid.UUID, unsentOnly bool) ([]models.MatchEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, saved_search_id, listing_id, title, body, sent, created_at, sent_at
		FROM search_match_notifications
		WHERE user_id = $1 AND ($2 = FALSE OR sent = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, unsentOnly, MatchEventListLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.MatchEvent, 0)
	for rows.Next() {
		var e models.MatchEvent
		err := rows.Scan(&e.ID, &e.UserID, &e.SavedSearchID, &e.ListingID, &e.Title, &e.Body, &e.Sent, &e.CreatedAt, &e.SentAt)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// MarkSent flags the user's events as delivered and stamps the owning saved
// searches with the delivery time.
func (r *MatchEventsRepository) MarkSent(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE search_match_notifications SET sent = TRUE, sent_at = NOW()
		WHERE user_id = $1 AND sent = FALSE AND id = ANY($2::uuid[])
	`, userID, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE saved_searches SET last_notified_at = NOW()
		WHERE user_id = $1 AND id IN (
			SELECT saved_search_id FROM search_match_notifications WHERE id = ANY($2::uuid[])
		)
	`, userID, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// PruneSent deletes delivered events older than cutoff.
func (r *MatchEventsRepository) PruneSent(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM search_match_notifications WHERE sent = TRUE AND sent_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
