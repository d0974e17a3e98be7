package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakify/internal/models"
)

const (
	msgNoFile             = "Please upload an audio file"
	msgTranscribed        = "Transcription completed!"
	msgTranscribeFailed   = "Failed to transcribe audio"
	msgCopied             = "Copied to clipboard!"
	msgCopyFailed         = "Failed to copy to clipboard"
	msgUnsupportedFormat  = "Unsupported audio format (accepted: %s)"
	msgFileTooLarge       = "File is too large (maximum %d MB)"
	msgFileSelectedFormat = "File %q selected"
)

// SelectFile replaces the current file selection. A transcript that is already
// displayed stays until the next submission or mode switch.
func (c *Converter) SelectFile(ctx context.Context, file models.AudioFile) {
	c.mu.Lock()
	f := file
	c.asr.file = &f
	c.mu.Unlock()

	c.notify(ctx, NotifySuccess, fmt.Sprintf(msgFileSelectedFormat, file.Name))
}

// SubmitSpeechToText validates the selected file, issues exactly one
// transcription request and waits for it to resolve.
func (c *Converter) SubmitSpeechToText(ctx context.Context) error {
	done, err := c.StartSpeechToText(ctx)
	if err != nil {
		return err
	}
	return <-done
}

// StartSpeechToText is the non-blocking form of SubmitSpeechToText.
func (c *Converter) StartSpeechToText(ctx context.Context) (<-chan error, error) {
	file, gen, err := c.beginSpeechToText(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- c.finishSpeechToText(ctx, file, gen)
		close(done)
	}()
	return done, nil
}

func (c *Converter) beginSpeechToText(ctx context.Context) (models.AudioFile, uint64, error) {
	c.mu.Lock()

	if c.mode != ModeSpeechToText {
		c.mu.Unlock()
		return models.AudioFile{}, 0, ErrModeInactive
	}
	if c.asr.inFlight {
		c.mu.Unlock()
		return models.AudioFile{}, 0, ErrSubmissionInFlight
	}

	if verr := c.validateFile(c.asr.file); verr != nil {
		c.asr.state = Idle[models.Transcript]()
		c.mu.Unlock()
		c.notify(ctx, NotifyError, verr.UserMessage())
		return models.AudioFile{}, 0, verr
	}

	file := *c.asr.file
	c.asr.gen++
	gen := c.asr.gen
	c.asr.inFlight = true
	c.asr.state = Pending(c.asr.state.Result())
	c.mu.Unlock()

	return file, gen, nil
}

func (c *Converter) finishSpeechToText(ctx context.Context, file models.AudioFile, gen uint64) error {
	start := time.Now()
	tr, err := c.transport.ConvertSpeechToText(ctx, file)
	latency := time.Since(start)

	c.mu.Lock()
	c.asr.inFlight = false
	if gen != c.asr.gen {
		c.mu.Unlock()
		slog.Debug("discarding stale speech-to-text result", "generation", gen)
		return ErrResultDiscarded
	}

	rec := models.ActivityRecord{
		ID:        uuid.New(),
		Kind:      models.KindSpeechToText,
		Summary:   file.Name,
		SizeBytes: file.Size(),
		LatencyMs: latency.Milliseconds(),
		CreatedAt: start,
	}

	if err == nil && tr == nil {
		err = errors.New("transport returned no transcript")
	}
	if err != nil {
		msg := userMessage(err, msgTranscribeFailed)
		// The previously displayed transcript, if any, is kept.
		c.asr.state = Failed(msg, c.asr.state.Result())
		c.mu.Unlock()

		slog.Warn("speech-to-text conversion failed", "file", file.Name, "error", err)
		rec.Outcome = models.OutcomeFailed
		c.record(ctx, rec)
		c.notify(ctx, NotifyError, msg)
		return fmt.Errorf("speech to text: %w", err)
	}

	c.asr.state = Succeeded(*tr)
	c.mu.Unlock()

	slog.Info("speech-to-text conversion succeeded", "file", file.Name, "chars", len(tr.Text), "latency_ms", rec.LatencyMs)
	rec.Outcome = models.OutcomeSucceeded
	c.record(ctx, rec)
	c.notify(ctx, NotifySuccess, msgTranscribed)
	c.RefreshUsage(ctx)
	return nil
}

// CopyResult copies the displayed transcript to the clipboard. It does nothing
// when there is no transcript.
func (c *Converter) CopyResult(ctx context.Context) error {
	c.mu.Lock()
	tr := c.asr.state.Result()
	c.mu.Unlock()

	if tr == nil {
		return nil
	}

	var err error
	if c.clipboard == nil {
		err = errors.New("no clipboard configured")
	} else {
		err = c.clipboard.Copy(ctx, tr.Text)
	}
	if err != nil {
		slog.Warn("failed to copy transcript", "error", err)
		c.notify(ctx, NotifyError, msgCopyFailed)
		return fmt.Errorf("copy transcript: %w", err)
	}

	c.notify(ctx, NotifySuccess, msgCopied)
	return nil
}

func (c *Converter) validateFile(file *models.AudioFile) *ValidationError {
	if file == nil {
		return &ValidationError{Reason: "no file", Message: msgNoFile}
	}
	if file.Size() > c.limits.MaxUploadBytes {
		return &ValidationError{
			Reason:  "file too large",
			Message: fmt.Sprintf(msgFileTooLarge, c.limits.MaxUploadBytes>>20),
		}
	}
	if !slices.Contains(c.limits.AcceptedFormats, file.Format()) {
		return &ValidationError{
			Reason:  "unsupported format",
			Message: fmt.Sprintf(msgUnsupportedFormat, strings.ToUpper(strings.Join(c.limits.AcceptedFormats, ", "))),
		}
	}
	return nil
}
