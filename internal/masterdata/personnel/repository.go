package personnel

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
	List(ctx context.Context, filters shared.ListFilters) ([]Person, int, error)
	Get(ctx context.Context, id int64) (Person, error)
	Names(ctx context.Context) ([]shared.Named, error)
	Create(ctx context.Context, in Input) (Person, error)
	Update(ctx context.Context, id int64, in Input) (Person, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, document, name, position, address, email, phone, created_at, updated_at`

func scan(row pgx.Row) (Person, error) {
	var v Person
	err := row.Scan(&v.ID, &v.Document, &v.Name, &v.Position, &v.Address, &v.Email, &v.Phone, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Person{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Person, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $1 OR document ILIKE $1 OR position ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM personnel`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM personnel` + where + ` ORDER BY ` + sortOrder(filters)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	personnel := []Person{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		personnel = append(personnel, v)
	}
	return personnel, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Person, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM personnel WHERE id = $1`, id))
}

func (r *repository) Names(ctx context.Context) ([]shared.Named, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, document FROM personnel`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[shared.Named])
}

func (r *repository) Create(ctx context.Context, in Input) (Person, error) {
	v, err := scan(r.db.QueryRow(ctx, `INSERT INTO personnel (document, name, position, address, email, phone)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+columns,
		in.Document, in.Name, in.Position, in.Address, in.Email, in.Phone))
	if db.IsUniqueViolation(err) {
		return Person{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Update(ctx context.Context, id int64, in Input) (Person, error) {
	v, err := scan(r.db.QueryRow(ctx, `UPDATE personnel SET document = $1, name = $2, position = $3, address = $4, email = $5,
	phone = $6, updated_at = NOW() WHERE id = $7 RETURNING `+columns,
		in.Document, in.Name, in.Position, in.Address, in.Email, in.Phone, id))
	if db.IsUniqueViolation(err) {
		return Person{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM personnel WHERE id = $1`, id)
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
	case "document":
		return "document " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
