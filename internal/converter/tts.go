package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakify/internal/models"
)

const (
	msgEmptyText       = "Please enter some text"
	msgAudioGenerated  = "Audio generated successfully!"
	msgAudioFailed     = "Failed to generate audio"
	summaryPreviewRune = 100
)

func (c *Converter) SetText(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tts.text = value
}

func (c *Converter) SetVoice(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		id = c.defaultVoiceLocked()
	}
	c.tts.voice = id
}

// SetSpeed stores the speed clamped to [models.MinSpeed, models.MaxSpeed].
func (c *Converter) SetSpeed(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tts.speed = clampSpeed(value)
}

// SubmitTextToSpeech validates the input, issues exactly one conversion request
// and waits for it to resolve.
func (c *Converter) SubmitTextToSpeech(ctx context.Context) error {
	done, err := c.StartTextToSpeech(ctx)
	if err != nil {
		return err
	}
	return <-done
}

// StartTextToSpeech performs validation synchronously and, if the submission is
// accepted, resolves the request in the background. The returned channel yields
// the outcome once the result has been applied (or discarded).
func (c *Converter) StartTextToSpeech(ctx context.Context) (<-chan error, error) {
	req, gen, err := c.beginTextToSpeech(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- c.finishTextToSpeech(ctx, req, gen)
		close(done)
	}()
	return done, nil
}

func (c *Converter) beginTextToSpeech(ctx context.Context) (models.TextToSpeechRequest, uint64, error) {
	c.mu.Lock()

	if c.mode != ModeTextToSpeech {
		c.mu.Unlock()
		return models.TextToSpeechRequest{}, 0, ErrModeInactive
	}
	if c.tts.inFlight {
		c.mu.Unlock()
		return models.TextToSpeechRequest{}, 0, ErrSubmissionInFlight
	}

	req := models.TextToSpeechRequest{
		Text:  c.tts.text,
		Voice: c.tts.voice,
		Speed: c.tts.speed,
	}
	if req.Voice == "" {
		req.Voice = c.defaultVoiceLocked()
	}

	if verr := c.validateText(req.Text); verr != nil {
		// A rejected attempt still supersedes the previous result.
		c.tts.state = Idle[models.TextToSpeechResult]()
		c.mu.Unlock()
		c.notify(ctx, NotifyError, verr.UserMessage())
		return models.TextToSpeechRequest{}, 0, verr
	}

	c.tts.gen++
	gen := c.tts.gen
	c.tts.inFlight = true
	c.tts.state = Pending[models.TextToSpeechResult](nil)
	c.mu.Unlock()

	return req, gen, nil
}

func (c *Converter) finishTextToSpeech(ctx context.Context, req models.TextToSpeechRequest, gen uint64) error {
	start := time.Now()
	res, err := c.transport.ConvertTextToSpeech(ctx, req)
	latency := time.Since(start)

	c.mu.Lock()
	c.tts.inFlight = false
	if gen != c.tts.gen {
		c.mu.Unlock()
		slog.Debug("discarding stale text-to-speech result", "generation", gen)
		return ErrResultDiscarded
	}

	rec := models.ActivityRecord{
		ID:        uuid.New(),
		Kind:      models.KindTextToSpeech,
		Summary:   preview(req.Text),
		LatencyMs: latency.Milliseconds(),
		CreatedAt: start,
	}

	if err == nil && (res == nil || res.AudioLocation == "") {
		err = errors.New("transport returned no audio location")
	}
	if err != nil {
		msg := userMessage(err, msgAudioFailed)
		c.tts.state = Failed[models.TextToSpeechResult](msg, nil)
		c.mu.Unlock()

		slog.Warn("text-to-speech conversion failed", "voice", req.Voice, "error", err)
		rec.Outcome = models.OutcomeFailed
		c.record(ctx, rec)
		c.notify(ctx, NotifyError, msg)
		return fmt.Errorf("text to speech: %w", err)
	}

	c.tts.state = Succeeded(*res)
	// The transcript slot must not outlive a successful synthesis.
	c.asr.state = Idle[models.Transcript]()
	c.mu.Unlock()

	slog.Info("text-to-speech conversion succeeded", "voice", req.Voice, "latency_ms", rec.LatencyMs)
	rec.Outcome = models.OutcomeSucceeded
	rec.SizeBytes = res.SizeBytes
	c.record(ctx, rec)
	c.notify(ctx, NotifySuccess, msgAudioGenerated)
	c.RefreshUsage(ctx)
	return nil
}

// DownloadResult hands the held audio reference to the opener. It does nothing
// when no audio reference is held.
func (c *Converter) DownloadResult(ctx context.Context) error {
	c.mu.Lock()
	res := c.tts.state.Result()
	c.mu.Unlock()

	if res == nil {
		return nil
	}
	if c.opener == nil {
		return fmt.Errorf("download: no opener configured")
	}
	if err := c.opener.Open(ctx, res.AudioLocation); err != nil {
		slog.Warn("failed to open audio result", "uri", res.AudioLocation, "error", err)
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

func (c *Converter) validateText(text string) *ValidationError {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Reason: "empty text", Message: msgEmptyText}
	}
	if n := utf8.RuneCountInString(text); n > c.limits.MaxTextLength {
		return &ValidationError{
			Reason:  "text too long",
			Message: fmt.Sprintf("Text is too long (%d characters, maximum %d)", n, c.limits.MaxTextLength),
		}
	}
	return nil
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= summaryPreviewRune {
		return s
	}
	r := []rune(s)
	return string(r[:summaryPreviewRune]) + "..."
}
