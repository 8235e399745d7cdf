package requisition

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dagelec/dagelec-erp/internal/platform/db"
)

// Gateway is the persistence collaborator of requisitions.
type Gateway interface {
	Query(ctx context.Context, f Filter) ([]Requisition, error)
	Get(ctx context.Context, pk string) (Requisition, error)
	Create(ctx context.Context, createdBy int64, h Header) (Requisition, error)
	Update(ctx context.Context, pk string, h Header) (Requisition, error)
	ChangeStatus(ctx context.Context, change StatusChange) (Requisition, error)
	SetAttachment(ctx context.Context, pk, key string) error
	CreateItem(ctx context.Context, pk string, in ItemInput) (Item, error)
	UpdateItem(ctx context.Context, pk, sk string, in ItemInput) (Item, error)
	DeleteItem(ctx context.Context, pk, sk string) error
}

// Repository implements Gateway on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectRequisition = `SELECT pk, city, process, delivery_place, cost_center, observations,
	checker1, COALESCE(checker2, ''), approver, status, COALESCE(attachment, ''), created_by, created_at, updated_at
FROM requisitions r`

const selectItem = `SELECT i.pk, i.sk, i.ingredient_id, COALESCE(g.name, ''), COALESCE(g.unit, ''), COALESCE(g.weight, 0),
	i.gross_cost, i.quantity, i.brand, i.presentation, i.required_date
FROM requisition_items i
LEFT JOIN ingredients g ON g.id = i.ingredient_id`

func scanRequisition(row pgx.Row) (Requisition, error) {
	var r Requisition
	var status string
	err := row.Scan(&r.PK, &r.City, &r.Process, &r.DeliveryPlace, &r.CostCenter, &r.Observations,
		&r.Checker1, &r.Checker2, &r.Approver, &status, &r.Attachment, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requisition{}, ErrNotFound
		}
		return Requisition{}, err
	}
	r.Status = Status(status)
	return r, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.PK, &it.SK, &it.IngredientID, &it.IngredientName, &it.Unit, &it.ReferenceWeight,
		&it.GrossCost, &it.Quantity, &it.Brand, &it.Presentation, &it.RequiredDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it.Priced(), nil
}

// Query lists requisitions matching f, newest first.
func (r *Repository) Query(ctx context.Context, f Filter) ([]Requisition, error) {
	sql := selectRequisition + ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.PendingApproval {
		sql += ` AND r.status IN (` + arg(string(StatusInReview1)) + `, ` + arg(string(StatusInReview2)) + `, ` + arg(string(StatusInApproval)) + `)`
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		sql += ` AND r.status = ANY(` + arg(statuses) + `)`
	}
	if f.City != "" {
		sql += ` AND lower(r.city) = lower(` + arg(strings.TrimSpace(f.City)) + `)`
	}
	if f.CostCenter != "" {
		sql += ` AND lower(r.cost_center) = lower(` + arg(strings.TrimSpace(f.CostCenter)) + `)`
	}
	if f.Process != "" {
		sql += ` AND lower(r.process) = lower(` + arg(strings.TrimSpace(f.Process)) + `)`
	}
	if !f.CreatedFrom.IsZero() {
		sql += ` AND r.created_at >= ` + arg(f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		sql += ` AND r.created_at < ` + arg(f.CreatedTo)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + q + "%")
		sql += ` AND (r.pk ILIKE ` + p + ` OR r.city ILIKE ` + p + ` OR r.process ILIKE ` + p +
			` OR r.delivery_place ILIKE ` + p + ` OR r.cost_center ILIKE ` + p + ` OR r.observations ILIKE ` + p + `)`
	}
	sql += ` ORDER BY r.created_at DESC, r.pk DESC`
	if f.Limit > 0 {
		sql += ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Requisition{}
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Get loads a requisition and its items.
func (r *Repository) Get(ctx context.Context, pk string) (Requisition, error) {
	req, err := scanRequisition(r.pool.QueryRow(ctx, selectRequisition+` WHERE r.pk = $1`, pk))
	if err != nil {
		return Requisition{}, err
	}
	rows, err := r.pool.Query(ctx, selectItem+` WHERE i.pk = $1 ORDER BY i.created_at, i.sk`, pk)
	if err != nil {
		return Requisition{}, err
	}
	defer rows.Close()
	req.Items = []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Requisition{}, err
		}
		req.Items = append(req.Items, it)
	}
	return req, rows.Err()
}

// Create inserts a requisition in status Guardada.
func (r *Repository) Create(ctx context.Context, createdBy int64, h Header) (Requisition, error) {
	var pk string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var n int64
		if err := tx.QueryRow(ctx, `SELECT nextval('requisition_number_seq')`).Scan(&n); err != nil {
			return err
		}
		pk = FormatPK(n)
		_, err := tx.Exec(ctx, `INSERT INTO requisitions (pk, city, process, delivery_place, cost_center, observations,
	checker1, checker2, approver, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8::text, ''), $9, $10, $11)`,
			pk, h.City, h.Process, h.DeliveryPlace, h.CostCenter, h.Observations,
			h.Checker1, h.Checker2, h.Approver, string(StatusSaved), createdBy)
		return err
	})
	if err != nil {
		return Requisition{}, err
	}
	return r.Get(ctx, pk)
}

// Update rewrites the header while the requisition is still Guardada.
func (r *Repository) Update(ctx context.Context, pk string, h Header) (Requisition, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE requisitions SET city=$2, process=$3, delivery_place=$4, cost_center=$5,
	observations=$6, checker1=$7, checker2=NULLIF($8::text, ''), approver=$9, updated_at=NOW()
WHERE pk=$1 AND status=$10`,
		pk, h.City, h.Process, h.DeliveryPlace, h.CostCenter, h.Observations, h.Checker1, h.Checker2, h.Approver, string(StatusSaved))
	if err != nil {
		return Requisition{}, err
	}
	if tag.RowsAffected() == 0 {
		return Requisition{}, r.missingOr(ctx, pk, ErrReadOnly)
	}
	return r.Get(ctx, pk)
}

// ChangeStatus moves the requisition from change.From to change.To. The update
// only applies if the stored status still equals change.From.
func (r *Repository) ChangeStatus(ctx context.Context, change StatusChange) (Requisition, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE requisitions
SET status=$3, observations=CASE WHEN $4::text = '' THEN observations ELSE $4::text END, updated_at=NOW()
WHERE pk=$1 AND status=$2`, change.PK, string(change.From), string(change.To), change.Observations)
	if err != nil {
		return Requisition{}, err
	}
	if tag.RowsAffected() == 0 {
		return Requisition{}, r.missingOr(ctx, change.PK, ErrStale)
	}
	return r.Get(ctx, change.PK)
}

// SetAttachment stores the object key of the requisition attachment.
func (r *Repository) SetAttachment(ctx context.Context, pk, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE requisitions SET attachment=$2, updated_at=NOW() WHERE pk=$1`, pk, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateItem adds a line to a Guardada requisition.
func (r *Repository) CreateItem(ctx context.Context, pk string, in ItemInput) (Item, error) {
	sk := "ITEM#" + uuid.NewString()
	tag, err := r.pool.Exec(ctx, `INSERT INTO requisition_items (pk, sk, ingredient_id, gross_cost, quantity, brand, presentation, required_date)
SELECT $1, $2, $3, $4, $5, $6, $7, $8
WHERE EXISTS (SELECT 1 FROM requisitions WHERE pk=$1 AND status=$9)`,
		pk, sk, in.IngredientID, in.GrossCost, in.Quantity, in.Brand, in.Presentation, in.RequiredDate, string(StatusSaved))
	if err != nil {
		return Item{}, err
	}
	if tag.RowsAffected() == 0 {
		return Item{}, r.missingOr(ctx, pk, ErrReadOnly)
	}
	return r.getItem(ctx, pk, sk)
}

// UpdateItem rewrites a line of a Guardada requisition.
func (r *Repository) UpdateItem(ctx context.Context, pk, sk string, in ItemInput) (Item, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE requisition_items i SET ingredient_id=$3, gross_cost=$4, quantity=$5, brand=$6,
	presentation=$7, required_date=$8
FROM requisitions r
WHERE i.pk=$1 AND i.sk=$2 AND r.pk=i.pk AND r.status=$9`,
		pk, sk, in.IngredientID, in.GrossCost, in.Quantity, in.Brand, in.Presentation, in.RequiredDate, string(StatusSaved))
	if err != nil {
		return Item{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getItem(ctx, pk, sk); err != nil {
			return Item{}, err
		}
		return Item{}, ErrReadOnly
	}
	return r.getItem(ctx, pk, sk)
}

// DeleteItem removes a line of a Guardada requisition.
func (r *Repository) DeleteItem(ctx context.Context, pk, sk string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM requisition_items i USING requisitions r
WHERE i.pk=$1 AND i.sk=$2 AND r.pk=i.pk AND r.status=$3`, pk, sk, string(StatusSaved))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getItem(ctx, pk, sk); err != nil {
			return err
		}
		return ErrReadOnly
	}
	return nil
}

func (r *Repository) getItem(ctx context.Context, pk, sk string) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, selectItem+` WHERE i.pk=$1 AND i.sk=$2`, pk, sk))
}

func (r *Repository) missingOr(ctx context.Context, pk string, fallback error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requisitions WHERE pk=$1)`, pk).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return fallback
}
