package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/voiceguard/internal/config"
)

type Client struct {
	client *asynq.Client
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueDistressAlert schedules webhook delivery for an unsafe analysis.
// The analysis ID doubles as task ID so a retried request cannot alert twice.
func (c *Client) EnqueueDistressAlert(ctx context.Context, payload DistressAlertPayload) error {
	return c.enqueue(ctx, TypeDistressAlert, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(8),
		asynq.Timeout(30*time.Second),
		asynq.TaskID(payload.AnalysisID),
		asynq.Retention(24*time.Hour),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

// DecodeDistressAlert unmarshals a distress alert task payload.
func DecodeDistressAlert(t *asynq.Task) (DistressAlertPayload, error) {
	var p DistressAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal %s payload: %w", t.Type(), err)
	}
	return p, nil
}
