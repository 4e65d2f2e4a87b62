package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/commercekit/order-intake/internal/order/application"
	"github.com/commercekit/order-intake/internal/order/domain"
	"github.com/commercekit/order-intake/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox inserts the order, its line items, and the outbox event in a
// single transaction. The traceparent for the outbox row is taken from ctx.
func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, street, city, state, postal_code, country, total_cents, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.UserID,
		o.SelectedAddress.Street, o.SelectedAddress.City, o.SelectedAddress.State,
		o.SelectedAddress.PostalCode, o.SelectedAddress.Country,
		o.TotalCents, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, line_no, product_id, quantity, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, item.ProductID, item.Quantity, item.PriceCents)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Order{}, err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", o.ID, eventType, payload,
		map[string]string{"source": "order-service"}, carrier.Get(tracing.TraceparentHeader))
	if err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, bool, error) {
	o, err := r.scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	if err := r.loadItems(ctx, map[string]*domain.Order{o.ID: &o}); err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

var sortColumns = map[string]string{
	"id":          "id",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"total_cents": "total_cents",
	"status":      "status",
}

// ListAll returns one page of orders plus the unpaginated total.
func (r *Repository) ListAll(ctx context.Context, q application.ListQuery) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := selectOrder
	if q.Sort != "" {
		col, ok := sortColumns[q.Sort]
		if !ok {
			return nil, 0, fmt.Errorf("unsupported sort column %q", q.Sort)
		}
		dir := "ASC"
		if strings.EqualFold(q.Order, "desc") {
			dir = "DESC"
		}
		sql += ` ORDER BY ` + col + ` ` + dir
	} else {
		sql += ` ORDER BY created_at DESC`
	}

	var args []any
	if q.Page > 0 && q.Limit > 0 {
		sql += ` LIMIT $1 OFFSET $2`
		args = append(args, q.Limit, (q.Page-1)*q.Limit)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *Repository) Update(ctx context.Context, id string, upd application.OrderUpdate) (domain.Order, bool, error) {
	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}
	var street, city, state, postal, country *string
	if upd.Address != nil {
		street, city, state = &upd.Address.Street, &upd.Address.City, &upd.Address.State
		postal, country = &upd.Address.PostalCode, &upd.Address.Country
	}

	o, err := r.scanOrder(r.pool.QueryRow(ctx, `UPDATE orders SET
			status=COALESCE($2, status),
			street=COALESCE($3, street), city=COALESCE($4, city), state=COALESCE($5, state),
			postal_code=COALESCE($6, postal_code), country=COALESCE($7, country),
			updated_at=now()
		WHERE id=$1
		RETURNING id, user_id, street, city, state, postal_code, country, total_cents, status, created_at, updated_at`,
		id, status, street, city, state, postal, country))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	if err := r.loadItems(ctx, map[string]*domain.Order{o.ID: &o}); err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (domain.Order, bool, error) {
	o, ok, err := r.Get(ctx, id)
	if err != nil || !ok {
		return domain.Order{}, ok, err
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return domain.Order{}, false, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, false, nil
	}
	return o, true, nil
}

const selectOrder = `SELECT id, user_id, street, city, state, postal_code, country, total_cents, status, created_at, updated_at FROM orders`

func (r *Repository) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID,
		&o.SelectedAddress.Street, &o.SelectedAddress.City, &o.SelectedAddress.State,
		&o.SelectedAddress.PostalCode, &o.SelectedAddress.Country,
		&o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) collect(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}
	if err := r.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, byID map[string]*domain.Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx, `SELECT order_id, product_id, quantity, price_cents
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.LineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.PriceCents); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
