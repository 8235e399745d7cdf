package ingredients

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dagelec/dagelec-erp/internal/masterdata/shared"
	"github.com/dagelec/dagelec-erp/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Ingredient, int, error)
	Get(ctx context.Context, id int64) (Ingredient, error)
	Names(ctx context.Context) ([]shared.Named, error)
	Create(ctx context.Context, in Input) (Ingredient, error)
	Update(ctx context.Context, id int64, in Input) (Ingredient, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, name, unit, weight, created_at, updated_at`

func scan(row pgx.Row) (Ingredient, error) {
	var v Ingredient
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Unit, &v.Weight, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ingredient{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Ingredient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ingredients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM ingredients` + where + ` ORDER BY ` + sortOrder(filters)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ingredients := []Ingredient{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		ingredients = append(ingredients, v)
	}
	return ingredients, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Ingredient, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM ingredients WHERE id = $1`, id))
}

func (r *repository) Names(ctx context.Context) ([]shared.Named, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code FROM ingredients`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[shared.Named])
}

func (r *repository) Create(ctx context.Context, in Input) (Ingredient, error) {
	v, err := scan(r.db.QueryRow(ctx, `INSERT INTO ingredients (code, name, unit, weight)
VALUES ($1, $2, $3, $4) RETURNING `+columns,
		in.Code, in.Name, in.Unit, in.Weight))
	if db.IsUniqueViolation(err) {
		return Ingredient{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Update(ctx context.Context, id int64, in Input) (Ingredient, error) {
	v, err := scan(r.db.QueryRow(ctx, `UPDATE ingredients SET code = $1, name = $2, unit = $3, weight = $4, updated_at = NOW()
WHERE id = $5 RETURNING `+columns,
		in.Code, in.Name, in.Unit, in.Weight, id))
	if db.IsUniqueViolation(err) {
		return Ingredient{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return shared.ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(filters shared.ListFilters) string {
	dir := filters.Dir()
	switch filters.SortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
