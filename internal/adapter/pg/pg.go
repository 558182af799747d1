package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
)

var (
	_ port.OrderStore  = (*Repo)(nil)
	_ port.TradeLedger = (*Repo)(nil)
)

type Repo struct {
	pool *pgxpool.Pool
}

// call Close when finished working with the database.
func NewRepo(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO orders(id, owner_id, instrument, kind, side, price, quantity, status, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  price = EXCLUDED.price,
  quantity = EXCLUDED.quantity,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at
`, o.ID, o.OwnerID, o.Instrument, string(o.Kind), string(o.Side),
		o.Price, o.Quantity, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repo) OrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, owner_id, instrument, kind, side, price, quantity, status, created_at, updated_at
FROM orders
WHERE id = $1
`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	return o, err
}

func (r *Repo) OrdersByOwner(ctx context.Context, ownerID string, kind domain.OrderKind) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, instrument, kind, side, price, quantity, status, created_at, updated_at
FROM orders
WHERE owner_id = $1 AND kind = $2
ORDER BY created_at ASC
`, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ActiveOrders returns all active orders of one kind ordered by created_at
// ASC (FIFO).
func (r *Repo) ActiveOrders(ctx context.Context, kind domain.OrderKind) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, instrument, kind, side, price, quantity, status, created_at, updated_at
FROM orders
WHERE kind = $1 AND status = 'active'
ORDER BY created_at ASC
`, string(kind))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *Repo) ActiveOrdersByInstrument(ctx context.Context, instrument string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, instrument, kind, side, price, quantity, status, created_at, updated_at
FROM orders
WHERE instrument = $1 AND status = 'active'
ORDER BY created_at ASC
`, instrument)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// TryTransition is the store-level compare-and-set: the WHERE clause admits
// exactly one concurrent caller per order, which is what keeps settlement
// at-most-once across engine replicas.
func (r *Repo) TryTransition(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	res, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = $1, updated_at = NOW()
WHERE id = $2 AND status = $3
`, string(to), orderID, string(from))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *Repo) AppendTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO trades(id, owner_id, instrument, exchange, side, action, quantity, price, order_id, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.OwnerID, t.Instrument, string(t.Exchange), string(t.Side), string(t.Action),
		t.Quantity, t.Price, t.OrderID, t.CreatedAt)
	return err
}

func (r *Repo) TradesByOwner(ctx context.Context, ownerID string) ([]*domain.Trade, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, instrument, exchange, side, action, quantity, price, order_id, created_at
FROM trades
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var exchange, side, action string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Instrument, &exchange, &side, &action,
			&t.Quantity, &t.Price, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Exchange = domain.Exchange(exchange)
		t.Side = domain.Side(side)
		t.Action = domain.Side(action)
		res = append(res, &t)
	}
	return res, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var kind, side, status string
	if err := row.Scan(&o.ID, &o.OwnerID, &o.Instrument, &kind, &side,
		&o.Price, &o.Quantity, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Kind = domain.OrderKind(kind)
	o.Side = domain.Side(side)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	defer rows.Close()
	var res []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}
