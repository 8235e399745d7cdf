package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/dagelec/dagelec-erp/internal/jobs"
	"github.com/dagelec/dagelec-erp/internal/requisition"
)

// Directory resolves mail recipients.
type Directory interface {
	// PersonnelEmails maps personnel names to e-mail addresses. Unknown
	// names are omitted.
	PersonnelEmails(ctx context.Context, names []string) ([]string, error)
	UserEmail(ctx context.Context, userID int64) (string, error)
}

// Message is a plain-text mail.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NotifyJob mails the people who must act on, or learn about, a requisition.
// A SEND goes to the checkers and the approver; a review outcome goes to the
// creator.
type NotifyJob struct {
	Directory Directory
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskRequisitionNotify tasks.
func (j *NotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Directory == nil || j.Mailer == nil {
		return errors.New("requisition notify: handler not configured")
	}
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("requisition notify: decode: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskRequisitionNotify)
	err := j.notify(ctx, payload)
	return tracker.End(err)
}

func (j *NotifyJob) notify(ctx context.Context, payload NotifyPayload) error {
	logger := j.logger().With(slog.String("pk", payload.PK), slog.String("trigger", payload.Trigger))
	to, err := j.recipients(ctx, payload)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		logger.Info("no recipients for requisition notification")
		j.Metrics.AddMails("skipped", 1)
		return nil
	}
	msg := composeNotification(payload)
	msg.To = to
	if err := j.Mailer.Send(ctx, msg); err != nil {
		logger.Warn("requisition notification failed", slog.Any("error", err))
		j.Metrics.AddMails("failed", 1)
		return err
	}
	logger.Info("requisition notification sent", slog.Int("recipients", len(to)))
	j.Metrics.AddMails("sent", 1)
	return nil
}

func (j *NotifyJob) recipients(ctx context.Context, payload NotifyPayload) ([]string, error) {
	if payload.Status == requisition.StatusInReview1 || payload.Status == requisition.StatusInReview2 || payload.Status == requisition.StatusInApproval {
		names := append([]string{}, payload.Checkers...)
		if payload.Approver != "" {
			names = append(names, payload.Approver)
		}
		return j.Directory.PersonnelEmails(ctx, names)
	}
	if payload.CreatedBy <= 0 {
		return nil, nil
	}
	addr, err := j.Directory.UserEmail(ctx, payload.CreatedBy)
	if err != nil || addr == "" {
		return nil, err
	}
	return []string{addr}, nil
}

func composeNotification(p NotifyPayload) Message {
	var subject string
	switch p.Status {
	case requisition.StatusApproved:
		subject = fmt.Sprintf("Requisición %s aprobada", p.PK)
	case requisition.StatusRejected:
		subject = fmt.Sprintf("Requisición %s rechazada", p.PK)
	default:
		subject = fmt.Sprintf("Requisición %s pendiente de revisión", p.PK)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Requisición: %s\n", p.PK)
	fmt.Fprintf(&b, "Estado: %s\n", p.Status)
	if p.City != "" {
		fmt.Fprintf(&b, "Ciudad: %s\n", p.City)
	}
	if p.Process != "" {
		fmt.Fprintf(&b, "Proceso: %s\n", p.Process)
	}
	if p.Note != "" {
		fmt.Fprintf(&b, "\nObservaciones:\n%s\n", p.Note)
	}
	return Message{Subject: subject, Body: b.String()}
}

func (j *NotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRequisitionNotify))
	}
	return slog.Default().With(slog.String("job", TaskRequisitionNotify))
}
