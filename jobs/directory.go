package jobs

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory resolves recipients from the personnel and users tables.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory constructs PGDirectory.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

// PersonnelEmails implements Directory.
func (d *PGDirectory) PersonnelEmails(ctx context.Context, names []string) ([]string, error) {
	lowered := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			lowered = append(lowered, n)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT DISTINCT email FROM personnel
WHERE lower(name) = ANY($1) AND email IS NOT NULL AND email <> ''
ORDER BY email`, lowered)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UserEmail implements Directory.
func (d *PGDirectory) UserEmail(ctx context.Context, userID int64) (string, error) {
	var addr string
	err := d.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1 AND is_active`, userID).Scan(&addr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return addr, err
}
