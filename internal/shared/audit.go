package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one entry of audit_logs. A zero At is stamped at record time.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// ErrAuditIncomplete is returned for entries missing action, entity or entity id.
var ErrAuditIncomplete = errors.New("audit log requires action, entity and entity id")

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, now: time.Now}
}

type auditRow struct {
	actorID    int64
	action     string
	entity     string
	entityID   string
	meta       []byte
	occurredAt time.Time
}

func (log AuditLog) row(now time.Time) (auditRow, error) {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return auditRow{}, ErrAuditIncomplete
	}
	meta := log.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return auditRow{}, err
	}
	at := log.At
	if at.IsZero() {
		at = now
	}
	return auditRow{
		actorID:    log.ActorID,
		action:     log.Action,
		entity:     log.Entity,
		entityID:   log.EntityID,
		meta:       raw,
		occurredAt: at.UTC(),
	}, nil
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	row, err := log.row(l.now())
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, row.actorID, row.action, row.entity, row.entityID, row.meta, row.occurredAt)
	return err
}
