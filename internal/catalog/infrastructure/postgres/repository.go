package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercekit/order-intake/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindByID(ctx context.Context, id string) (domain.Product, bool, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT id, title, brand, price_cents, stock, updated_at FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Title, &p.Brand, &p.PriceCents, &p.Stock, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, err
	}
	return p, true, nil
}

// Save upserts the product row. Each call is an independent commit; the
// intake workflow relies on that to persist stock decrements one line item
// at a time.
func (r *Repository) Save(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, title, brand, price_cents, stock, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET title=$2, brand=$3, price_cents=$4, stock=$5, updated_at=$6`,
		p.ID, p.Title, p.Brand, p.PriceCents, p.Stock, time.Now().UTC())
	return err
}
