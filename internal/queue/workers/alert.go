package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceguard/internal/models"
	"github.com/nikhilbhutani/voiceguard/internal/queue"
	"github.com/nikhilbhutani/voiceguard/internal/webhook"
)

// Deliverer sends one webhook event.
type Deliverer interface {
	Enabled() bool
	Deliver(ctx context.Context, req webhook.DeliveryRequest) (webhook.DeliveryResult, error)
}

// DeliveryRecorder persists delivery attempts; optional.
type DeliveryRecorder interface {
	RecordAlertDelivery(ctx context.Context, d models.AlertDelivery) error
}

type AlertWorker struct {
	deliverer Deliverer
	recorder  DeliveryRecorder
}

func NewAlertWorker(d Deliverer, rec DeliveryRecorder) *AlertWorker {
	return &AlertWorker{deliverer: d, recorder: rec}
}

type alertEvent struct {
	Event string                     `json:"event"`
	Data  queue.DistressAlertPayload `json:"data"`
}

func (w *AlertWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := queue.DecodeDistressAlert(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	analysisID, err := uuid.Parse(payload.AnalysisID)
	if err != nil {
		return fmt.Errorf("%w: invalid analysis id %q", asynq.SkipRetry, payload.AnalysisID)
	}

	if !w.deliverer.Enabled() {
		slog.Warn("distress alert dropped, no webhook configured", "analysis_id", payload.AnalysisID)
		return nil
	}

	body, err := json.Marshal(alertEvent{Event: webhook.EventDistressDetected, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	slog.Info("delivering distress alert", "analysis_id", payload.AnalysisID, "matched_phrase", payload.MatchedPhrase)

	res, deliverErr := w.deliverer.Deliver(ctx, webhook.DeliveryRequest{
		ID:      analysisID,
		Event:   webhook.EventDistressDetected,
		Payload: body,
	})

	if w.recorder != nil {
		rec := models.AlertDelivery{
			AnalysisID:     analysisID,
			URL:            res.URL,
			ResponseStatus: res.Status,
			DeliveredAt:    res.DeliveredAt,
		}
		if deliverErr != nil {
			rec.Error = deliverErr.Error()
		}
		if err := w.recorder.RecordAlertDelivery(ctx, rec); err != nil {
			slog.Error("failed to record alert delivery", "error", err, "analysis_id", payload.AnalysisID)
		}
	}

	if deliverErr != nil {
		return fmt.Errorf("deliver distress alert %s: %w", payload.AnalysisID, deliverErr)
	}

	slog.Info("distress alert delivered", "analysis_id", payload.AnalysisID, "status", res.Status)
	return nil
}
