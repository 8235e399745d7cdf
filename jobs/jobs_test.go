package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/export"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/requisition"
	"github.com/dagelec/dagelec-erp/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: QueueDefault}, nil
}

type fakeDirectory struct {
	people map[string]string
	users  map[int64]string
}

func (d fakeDirectory) PersonnelEmails(ctx context.Context, names []string) ([]string, error) {
	out := []string{}
	for _, n := range names {
		if addr, ok := d.people[n]; ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

func (d fakeDirectory) UserEmail(ctx context.Context, userID int64) (string, error) {
	return d.users[userID], nil
}

type fakeMailer struct {
	sent []Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleRequisition(status requisition.Status) requisition.Requisition {
	return requisition.Requisition{
		PK:        "REQUISITION#007",
		City:      "Bogotá",
		Process:   "Alimentación",
		Checker1:  "Laura Gómez",
		Checker2:  "",
		Approver:  "Carlos Ruiz",
		Status:    status,
		CreatedBy: 3,
	}
}

func TestClientEnqueuesNotification(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	err := client.RequisitionTransitioned(context.Background(), sampleRequisition(requisition.StatusInReview1), rbac.ActionSend, 9)
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskRequisitionNotify, enq.tasks[0].Type())

	var payload NotifyPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, []string{"Laura Gómez"}, payload.Checkers)
	require.Equal(t, "SEND", payload.Trigger)
	require.Equal(t, int64(9), payload.ActorID)

	enq.err = errors.New("redis down")
	require.Error(t, client.RequisitionTransitioned(context.Background(), sampleRequisition(requisition.StatusInReview1), rbac.ActionSend, 9))
}

func TestClientEnqueuesExport(t *testing.T) {
	enq := &fakeEnqueuer{}
	id, err := NewClientWith(enq).EnqueueRequisitionExport(context.Background(), requisition.ExportRequest{UserID: 4, Format: "csv"})
	require.NoError(t, err)
	require.Equal(t, "task-1", id)
	require.Equal(t, TaskExportGenerate, enq.tasks[0].Type())
}

func notifyTask(t *testing.T, r requisition.Requisition) *asynq.Task {
	t.Helper()
	task, err := NewNotifyTask(NotifyPayload{
		PK: r.PK, Status: r.Status, CreatedBy: r.CreatedBy, City: r.City,
		Checkers: []string{r.Checker1}, Approver: r.Approver,
	})
	require.NoError(t, err)
	return task
}

func TestNotifyJobRecipients(t *testing.T) {
	dir := fakeDirectory{
		people: map[string]string{"Laura Gómez": "laura@dagelec.test", "Carlos Ruiz": "carlos@dagelec.test"},
		users:  map[int64]string{3: "creador@dagelec.test"},
	}
	mailer := &fakeMailer{}
	job := &NotifyJob{Directory: dir, Mailer: mailer}

	require.NoError(t, job.Handle(context.Background(), notifyTask(t, sampleRequisition(requisition.StatusInReview1))))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, []string{"laura@dagelec.test", "carlos@dagelec.test"}, mailer.sent[0].To)
	require.Contains(t, mailer.sent[0].Subject, "pendiente de revisión")

	require.NoError(t, job.Handle(context.Background(), notifyTask(t, sampleRequisition(requisition.StatusRejected))))
	require.Len(t, mailer.sent, 2)
	require.Equal(t, []string{"creador@dagelec.test"}, mailer.sent[1].To)
	require.Contains(t, mailer.sent[1].Subject, "rechazada")
}

func TestNotifyJobSkipsWithoutRecipients(t *testing.T) {
	mailer := &fakeMailer{}
	job := &NotifyJob{Directory: fakeDirectory{}, Mailer: mailer}
	require.NoError(t, job.Handle(context.Background(), notifyTask(t, sampleRequisition(requisition.StatusApproved))))
	require.Empty(t, mailer.sent)
}

func TestNotifyJobRetriesMailFailure(t *testing.T) {
	dir := fakeDirectory{users: map[int64]string{3: "creador@dagelec.test"}}
	job := &NotifyJob{Directory: dir, Mailer: &fakeMailer{err: errors.New("smtp 451")}}
	err := job.Handle(context.Background(), notifyTask(t, sampleRequisition(requisition.StatusApproved)))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskRequisitionNotify, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeExporter struct {
	got requisition.Filter
}

func (f *fakeExporter) Export(ctx context.Context, filter requisition.Filter, format export.Format, now time.Time) (export.Artifact, error) {
	f.got = filter
	return export.Artifact{Filename: "requisiciones.csv", ContentType: "text/csv", Body: []byte("a,b\n")}, nil
}

type memoryArtifacts map[string][]byte

func (m memoryArtifacts) PutBytes(ctx context.Context, key string, data []byte, contentType string) error {
	m[key] = data
	return nil
}

func TestExportJobStoresArtifact(t *testing.T) {
	exporter := &fakeExporter{}
	store := memoryArtifacts{}
	job := &ExportJob{Exporter: exporter, Store: store}

	task, err := NewExportTask(ExportPayload{UserID: 4, Format: "csv", Filter: requisition.Filter{City: "Cali"}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "Cali", exporter.got.City)
	require.Equal(t, []byte("a,b\n"), store["exports/4/requisiciones.csv"])

	bad, err := NewExportTask(ExportPayload{UserID: 4, Format: "doc"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return nil
}

func TestCleanupJobDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	task, err := NewCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, (&CleanupJob{Keys: cleaner}).Handle(context.Background(), task))
	require.Equal(t, 7*24*time.Hour, cleaner.olderThan)
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr string
	var got *email.Email
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 2525, From: "erp@dagelec.test"})
	m.send = func(addr string, auth smtp.Auth, e *email.Email) error {
		gotAddr, got = addr, e
		require.Nil(t, auth)
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@b.co"}, Subject: "Hola", Body: "cuerpo"}))
	require.Equal(t, "mail.local:2525", gotAddr)
	require.Equal(t, "erp@dagelec.test", got.From)
	require.Equal(t, []byte("cuerpo"), got.Text)

	require.Error(t, NewSMTPMailer(SMTPConfig{}).Send(context.Background(), Message{}))
}

type fakeInspector struct {
	info *asynq.TaskInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: 2}, nil
}

func (f fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return f.info, f.err
}

type fakePresigner struct{}

func (fakePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://files.local/" + key, nil
}

func exportRouter(inspector Inspector, user string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), shared.NewEphemeralSession(user))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(inspector, fakePresigner{}, nil).MountRoutes(r)
	return r
}

func TestHandlerExportStatus(t *testing.T) {
	payload, _ := json.Marshal(ExportPayload{UserID: 4, Format: "csv"})
	info := &asynq.TaskInfo{ID: "t1", Type: TaskExportGenerate, Payload: payload, State: asynq.TaskStateCompleted, Result: []byte("exports/4/r.csv")}

	rec := httptest.NewRecorder()
	exportRouter(fakeInspector{info: info}, "4").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/t1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body exportStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "https://files.local/exports/4/r.csv", body.URL)
	require.Equal(t, "completed", body.State)

	rec = httptest.NewRecorder()
	exportRouter(fakeInspector{info: info}, "5").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/t1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	exportRouter(fakeInspector{err: asynq.ErrTaskNotFound}, "4").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/zz", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	exportRouter(fakeInspector{}, "4").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":2}`, rec.Body.String())
}
