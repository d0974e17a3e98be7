package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/speakify/internal/queue"
	"github.com/nikhilbhutani/speakify/internal/storage"
)

const maxDownloadBytes = 100 << 20

type DownloadWorker struct {
	storage    storage.Storage
	bucket     string
	httpClient *http.Client
	maxBytes   int64
}

func NewDownloadWorker(store storage.Storage, bucket string) *DownloadWorker {
	return &DownloadWorker{
		storage:    store,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		maxBytes:   maxDownloadBytes,
	}
}

func (w *DownloadWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.AudioDownloadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	u, err := url.Parse(payload.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("unsupported download uri %q: %w", payload.URI, asynq.SkipRetry)
	}

	slog.Info("downloading audio", "uri", payload.URI, "user_id", payload.UserID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.URI, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("fetch audio: status %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if resp.ContentLength > w.maxBytes {
		return fmt.Errorf("fetch audio: %d bytes exceeds limit of %d: %w", resp.ContentLength, w.maxBytes, asynq.SkipRetry)
	}
	// Read one byte past the limit so an oversized body without a length is caught.
	data, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if int64(len(data)) > w.maxBytes {
		return fmt.Errorf("fetch audio: body exceeds limit of %d bytes: %w", w.maxBytes, asynq.SkipRetry)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	dest := downloadPath(payload.UserID, u)
	if err := w.storage.Upload(ctx, w.bucket, dest, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("store download: %w", err)
	}

	slog.Info("audio downloaded", "uri", payload.URI, "path", dest)
	return nil
}

func downloadPath(userID string, u *url.URL) string {
	owner := "anonymous"
	if _, err := uuid.Parse(userID); err == nil {
		owner = userID
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = uuid.NewString() + ".mp3"
	}
	return path.Join("downloads", owner, name)
}
