package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dagelec/dagelec-erp/internal/requisition"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRequisitionNotify mails the people involved in a transition.
	TaskRequisitionNotify = "requisition:notify"
	// TaskExportGenerate renders a requisition export and stores it.
	TaskExportGenerate = "export:generate"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NotifyPayload describes a completed requisition transition.
type NotifyPayload struct {
	PK        string             `json:"pk"`
	Trigger   string             `json:"trigger"`
	Status    requisition.Status `json:"status"`
	ActorID   int64              `json:"actor_id"`
	CreatedBy int64              `json:"created_by"`
	City      string             `json:"city"`
	Process   string             `json:"process"`
	Checkers  []string           `json:"checkers"`
	Approver  string             `json:"approver"`
	Note      string             `json:"note,omitempty"`
}

// NewNotifyTask constructs a requisition notification task.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRequisitionNotify, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// ExportPayload asks for a requisition export.
type ExportPayload struct {
	UserID int64              `json:"user_id"`
	Format string             `json:"format"`
	Filter requisition.Filter `json:"filter"`
}

// NewExportTask constructs an export task.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportGenerate, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Retention(24*time.Hour)), nil
}

// CleanupPayload bounds the age of idempotency keys kept.
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewCleanupTask constructs an idempotency cleanup task.
func NewCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(CleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}
