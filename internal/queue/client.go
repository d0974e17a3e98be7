package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/speakify/internal/config"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type UserSource interface {
	UserID() *uuid.UUID
}

type Client struct {
	client enqueuer
	users  UserSource
}

func NewClient(cfg config.RedisConfig, users UserSource) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
		users:  users,
	}
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueAudioDownload(ctx context.Context, payload AudioDownloadPayload) error {
	return c.enqueue(ctx, TypeAudioDownload, payload, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
}

// Open queues a background download of uri. It lets the queue stand in for a
// browser when the converter hands off generated audio.
func (c *Client) Open(ctx context.Context, uri string) error {
	payload := AudioDownloadPayload{URI: uri, RequestedAt: time.Now().UTC()}
	if c.users != nil {
		if id := c.users.UserID(); id != nil {
			payload.UserID = id.String()
		}
	}
	if err := c.EnqueueAudioDownload(ctx, payload); err != nil {
		return err
	}
	slog.Info("queued audio download", "uri", uri)
	return nil
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
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
