package vendors

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
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Names(ctx context.Context) ([]shared.Named, error)
	Create(ctx context.Context, in Input) (Vendor, error)
	Update(ctx context.Context, id int64, in Input) (Vendor, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, tax_id, name, contact, address, email, phone, created_at, updated_at`

func scan(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.TaxID, &v.Name, &v.Contact, &v.Address, &v.Email, &v.Phone, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $1 OR tax_id ILIKE $1 OR contact ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM vendors` + where + ` ORDER BY ` + sortOrder(filters)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	vendors := []Vendor{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM vendors WHERE id = $1`, id))
}

func (r *repository) Names(ctx context.Context) ([]shared.Named, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, tax_id FROM vendors`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[shared.Named])
}

func (r *repository) Create(ctx context.Context, in Input) (Vendor, error) {
	v, err := scan(r.db.QueryRow(ctx, `INSERT INTO vendors (tax_id, name, contact, address, email, phone)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+columns,
		in.TaxID, in.Name, in.Contact, in.Address, in.Email, in.Phone))
	if db.IsUniqueViolation(err) {
		return Vendor{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Update(ctx context.Context, id int64, in Input) (Vendor, error) {
	v, err := scan(r.db.QueryRow(ctx, `UPDATE vendors SET tax_id = $1, name = $2, contact = $3, address = $4, email = $5,
	phone = $6, updated_at = NOW() WHERE id = $7 RETURNING `+columns,
		in.TaxID, in.Name, in.Contact, in.Address, in.Email, in.Phone, id))
	if db.IsUniqueViolation(err) {
		return Vendor{}, shared.ErrDuplicate
	}
	return v, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
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
	case "tax_id":
		return "tax_id " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
