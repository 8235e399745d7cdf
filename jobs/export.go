package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dagelec/dagelec-erp/internal/export"
	jobmetrics "github.com/dagelec/dagelec-erp/internal/jobs"
	"github.com/dagelec/dagelec-erp/internal/requisition"
)

// Exporter renders requisition exports.
type Exporter interface {
	Export(ctx context.Context, f requisition.Filter, format export.Format, now time.Time) (export.Artifact, error)
}

// ArtifactStore keeps generated documents.
type ArtifactStore interface {
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error
}

// ExportJob renders a queued export and stores it. The object key is written
// as the task result.
type ExportJob struct {
	Exporter Exporter
	Store    ArtifactStore
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// Handle processes TaskExportGenerate tasks.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Exporter == nil || j.Store == nil {
		return errors.New("export generate: handler not configured")
	}
	var payload ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("export generate: decode: %w", asynq.SkipRetry)
	}
	format, err := export.ParseFormat(payload.Format)
	if err != nil {
		return fmt.Errorf("export generate: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskExportGenerate)
	key, err := j.generate(ctx, payload, format)
	if err == nil && t.ResultWriter() != nil {
		_, err = t.ResultWriter().Write([]byte(key))
	}
	return tracker.End(err)
}

func (j *ExportJob) generate(ctx context.Context, payload ExportPayload, format export.Format) (string, error) {
	art, err := j.Exporter.Export(ctx, payload.Filter, format, j.now())
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%d/%s", payload.UserID, art.Filename)
	if err := j.Store.PutBytes(ctx, key, art.Body, art.ContentType); err != nil {
		return "", err
	}
	j.logger().Info("export stored", slog.String("key", key), slog.Int("bytes", len(art.Body)))
	return key, nil
}

func (j *ExportJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskExportGenerate))
	}
	return slog.Default().With(slog.String("job", TaskExportGenerate))
}
