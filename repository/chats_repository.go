package repository

import (
	"context"
	"database/sql"

	"billister-api/models"

	"github.com/google/uuid"
)

type ChatsRepository struct {
	db *sql.DB
}

func NewChatsRepository(db *sql.DB) *ChatsRepository {
	return &ChatsRepository{db: db}
}

// GetOrCreate returns the thread for (listing, buyer, seller), creating it
// with threadPath if none exists yet.
func (r *ChatsRepository) GetOrCreate(ctx context.Context, listingID, buyerID, sellerID uuid.UUID, threadPath string) (*models.ChatThread, error) {
	var t models.ChatThread
	err := r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO chat_threads (listing_id, buyer_id, seller_id, thread_path, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (listing_id, buyer_id, seller_id) DO NOTHING
			RETURNING id, listing_id, buyer_id, seller_id, thread_path, created_at
		)
		SELECT id, listing_id, buyer_id, seller_id, thread_path, created_at FROM inserted
		UNION ALL
		SELECT id, listing_id, buyer_id, seller_id, thread_path, created_at FROM chat_threads
		WHERE listing_id = $1 AND buyer_id = $2 AND seller_id = $3
		LIMIT 1
	`, listingID, buyerID, sellerID, threadPath).Scan(&t.ID, &t.ListingID, &t.BuyerID, &t.SellerID, &t.ThreadPath, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
