package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dagelec/dagelec-erp/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, ingredientID int64) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Balances lists stock per ingredient, optionally filtered by name.
func (r *Repository) Balances(ctx context.Context, search string) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.ingredient_id, g.name, g.unit, b.qty, b.avg_cost, b.updated_at
FROM inventory_balances b
JOIN ingredients g ON g.id = b.ingredient_id
WHERE $1 = '' OR g.name ILIKE '%' || $1 || '%' OR g.code ILIKE '%' || $1 || '%'
ORDER BY g.name`, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Balance{}
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.IngredientID, &b.IngredientName, &b.Unit, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Movements returns the stock card of an ingredient, oldest first.
func (r *Repository) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, type, ingredient_id, qty, unit_cost, balance_qty, balance_cost, note,
	ref_module, ref_id, posted_at, COALESCE(created_by, 0)
FROM inventory_movements
WHERE ingredient_id=$1 AND posted_at BETWEEN COALESCE($2, '-infinity'::timestamptz) AND COALESCE($3, 'infinity'::timestamptz)
ORDER BY posted_at ASC, id ASC
LIMIT $4`, filter.IngredientID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Code, &m.Type, &m.IngredientID, &m.Qty, &m.UnitCost, &m.BalanceQty, &m.BalanceCost,
			&m.Note, &m.RefModule, &m.RefID, &m.PostedAt, &m.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *txRepository) GetBalanceForUpdate(ctx context.Context, ingredientID int64) (Balance, error) {
	var bal Balance
	err := r.tx.QueryRow(ctx, `SELECT ingredient_id, qty, avg_cost, updated_at FROM inventory_balances WHERE ingredient_id=$1 FOR UPDATE`, ingredientID).
		Scan(&bal.IngredientID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{IngredientID: ingredientID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return bal, nil
}

func (r *txRepository) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_balances (ingredient_id, qty, avg_cost, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (ingredient_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, updated_at=NOW()`, balance.IngredientID, balance.Qty, balance.AvgCost)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (code, type, ingredient_id, qty, unit_cost, balance_qty, balance_cost,
	note, ref_module, ref_id, posted_at, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		m.Code, string(m.Type), m.IngredientID, m.Qty, m.UnitCost, m.BalanceQty, m.BalanceCost,
		m.Note, m.RefModule, m.RefID, m.PostedAt, nullInt(m.CreatedBy)).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
