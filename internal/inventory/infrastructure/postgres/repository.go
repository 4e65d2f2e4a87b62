package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercekit/order-intake/internal/inventory/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Record upserts a restock request per product; repeated low-stock events
// refresh the observed stock level rather than piling up rows.
func (r *Repository) Record(ctx context.Context, req domain.RestockRequest) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO restock_requests (product_id, stock, threshold, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$4)
			ON CONFLICT (product_id) DO UPDATE SET stock=$2, threshold=$3, updated_at=$4`,
		req.ProductID, req.Stock, req.Threshold, now)
	return err
}
