// Package multimodal converts directly through speech providers instead of the
// remote Speakify API. Generated audio is written to storage and returned by
// its public URL.
package multimodal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/speakify/internal/models"
	"github.com/nikhilbhutani/speakify/internal/multimodal/stt"
	"github.com/nikhilbhutani/speakify/internal/multimodal/tts"
	"github.com/nikhilbhutani/speakify/internal/storage"
)

type UsageSource interface {
	FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error)
}

// ProviderError carries the provider's explanation of a failed call.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) UserMessage() string { return e.Message }

type Backend struct {
	tts     tts.Provider
	stt     stt.Provider
	storage storage.Storage
	bucket  string
	usage   UsageSource
}

func NewBackend(ttsProvider tts.Provider, sttProvider stt.Provider, store storage.Storage, bucket string, usage UsageSource) *Backend {
	return &Backend{
		tts:     ttsProvider,
		stt:     sttProvider,
		storage: store,
		bucket:  bucket,
		usage:   usage,
	}
}

func (b *Backend) FetchVoices(context.Context) ([]models.Voice, error) {
	return b.tts.Voices(), nil
}

func (b *Backend) ConvertTextToSpeech(ctx context.Context, req models.TextToSpeechRequest) (*models.TextToSpeechResult, error) {
	start := time.Now()
	res, err := b.tts.Synthesize(ctx, tts.SynthesisRequest{Input: req.Text, Voice: req.Voice, Speed: req.Speed})
	if err != nil {
		return nil, providerError(b.tts.Name(), err)
	}

	path := fmt.Sprintf("tts/%s.%s", uuid.NewString(), res.Extension)
	if err := b.storage.Upload(ctx, b.bucket, path, bytes.NewReader(res.Audio), res.ContentType); err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	slog.Info("synthesized audio",
		"provider", b.tts.Name(),
		"voice", req.Voice,
		"bytes", len(res.Audio),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &models.TextToSpeechResult{
		AudioLocation: b.storage.GetPublicURL(b.bucket, path),
		SizeBytes:     int64(len(res.Audio)),
	}, nil
}

func (b *Backend) ConvertSpeechToText(ctx context.Context, file models.AudioFile) (*models.Transcript, error) {
	resp, err := b.stt.Transcribe(ctx, stt.TranscriptionRequest{FileName: file.UploadName(), Audio: file.Data})
	if err != nil {
		return nil, providerError(b.stt.Name(), err)
	}
	return &models.Transcript{Text: resp.Text, Language: resp.Language, Duration: resp.Duration}, nil
}

// FetchUsageSnapshot reports zero counters when no usage source is configured.
func (b *Backend) FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error) {
	if b.usage == nil {
		return &models.UsageSnapshot{}, nil
	}
	return b.usage.FetchUsageSnapshot(ctx)
}

func providerError(name string, err error) error {
	pe := &ProviderError{Provider: name, Err: err}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.Message = apiErr.Message
	}
	return pe
}
