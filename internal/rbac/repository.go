package rbac

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dagelec/dagelec-erp/internal/platform/db"
)

// Role groups form/action grants.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Repository reads and writes the role/form/action matrix in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserPermissions returns the deduplicated grants of a user, ordered by form
// sort order so that forms of one category are adjacent.
func (r *Repository) UserPermissions(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT f.sort_order, g.form_id, g.action
FROM user_roles ur
JOIN role_grants g ON g.role_id = ur.role_id
JOIN forms f ON f.id = g.form_id
WHERE ur.user_id = $1
ORDER BY f.sort_order, g.form_id, g.action`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			order  int
			entry  Entry
			action string
		)
		if err := rows.Scan(&order, &entry.FormID, &action); err != nil {
			return nil, err
		}
		entry.Action = Action(action)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// EnsureRole upserts a role by name.
func (r *Repository) EnsureRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	var role Role
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
RETURNING id, name, description, created_at`, name, strings.TrimSpace(description)).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	return role, err
}

// SetRoleGrants replaces every grant of a role.
func (r *Repository) SetRoleGrants(ctx context.Context, roleID int64, grants []Entry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_grants WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, g := range grants {
			if _, err := tx.Exec(ctx, `INSERT INTO role_grants (role_id, form_id, action) VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`, roleID, g.FormID, string(g.Action)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignRole links a user to a role.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}
