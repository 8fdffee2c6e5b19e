package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceguard/internal/models"
	"github.com/nikhilbhutani/voiceguard/internal/queue"
	"github.com/nikhilbhutani/voiceguard/internal/webhook"
)

type fakeDeliverer struct {
	enabled bool
	err     error
	reqs    []webhook.DeliveryRequest
}

func (f *fakeDeliverer) Enabled() bool { return f.enabled }

func (f *fakeDeliverer) Deliver(_ context.Context, req webhook.DeliveryRequest) (webhook.DeliveryResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return webhook.DeliveryResult{URL: "http://hook", Status: 500}, f.err
	}
	now := time.Now()
	return webhook.DeliveryResult{URL: "http://hook", Status: 200, DeliveredAt: &now}, nil
}

type fakeRecorder struct{ rows []models.AlertDelivery }

func (f *fakeRecorder) RecordAlertDelivery(_ context.Context, d models.AlertDelivery) error {
	f.rows = append(f.rows, d)
	return nil
}

func alertTask(t *testing.T, p queue.DistressAlertPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(queue.TypeDistressAlert, data)
}

func TestAlertWorkerDelivers(t *testing.T) {
	id := uuid.New()
	d := &fakeDeliverer{enabled: true}
	rec := &fakeRecorder{}
	w := NewAlertWorker(d, rec)

	err := w.ProcessTask(context.Background(), alertTask(t, queue.DistressAlertPayload{
		AnalysisID:    id.String(),
		EnglishText:   "please help me now",
		MatchedPhrase: "help",
		Trigger:       "VOICE_HELP",
	}))
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(d.reqs) != 1 {
		t.Fatalf("deliveries = %d", len(d.reqs))
	}
	var ev alertEvent
	if err := json.Unmarshal(d.reqs[0].Payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Event != webhook.EventDistressDetected || ev.Data.EnglishText != "please help me now" {
		t.Errorf("event = %+v", ev)
	}
	if d.reqs[0].ID != id {
		t.Errorf("delivery id = %s, want %s", d.reqs[0].ID, id)
	}
	if len(rec.rows) != 1 || rec.rows[0].ResponseStatus != 200 {
		t.Errorf("recorded = %+v", rec.rows)
	}
}

func TestAlertWorkerRetriesOnFailure(t *testing.T) {
	d := &fakeDeliverer{enabled: true, err: errors.New("connection refused")}
	rec := &fakeRecorder{}
	w := NewAlertWorker(d, rec)

	err := w.ProcessTask(context.Background(), alertTask(t, queue.DistressAlertPayload{AnalysisID: uuid.NewString()}))
	if err == nil {
		t.Fatal("expected error so the task is retried")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Error("delivery failure must be retried")
	}
	if len(rec.rows) != 1 || rec.rows[0].Error == "" {
		t.Errorf("failed attempt not recorded: %+v", rec.rows)
	}
}

func TestAlertWorkerSkipsBadPayload(t *testing.T) {
	w := NewAlertWorker(&fakeDeliverer{enabled: true}, nil)

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDistressAlert, []byte("not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want SkipRetry", err)
	}

	err = w.ProcessTask(context.Background(), alertTask(t, queue.DistressAlertPayload{AnalysisID: "nope"}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want SkipRetry", err)
	}
}

func TestAlertWorkerDisabled(t *testing.T) {
	d := &fakeDeliverer{enabled: false}
	w := NewAlertWorker(d, nil)
	if err := w.ProcessTask(context.Background(), alertTask(t, queue.DistressAlertPayload{AnalysisID: uuid.NewString()})); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(d.reqs) != 0 {
		t.Error("disabled deliverer was called")
	}
}
