package converter

import (
	"context"
	"errors"
	"testing"

	"github.com/nikhilbhutani/speakify/internal/models"
)

func newSpeechHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	if err := h.conv.SelectMode(ModeSpeechToText); err != nil {
		t.Fatalf("SelectMode err: %v", err)
	}
	return h
}

func TestSubmitSpeechToTextWithoutFile(t *testing.T) {
	h := newSpeechHarness(t)

	err := h.conv.SubmitSpeechToText(context.Background())

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != "no file" {
		t.Fatalf("expected no file validation error, got %v", err)
	}
	if h.transport.asrCallCount() != 0 {
		t.Fatal("transport should never be invoked")
	}
	if got := h.conv.SpeechToTextState().Phase(); got != PhaseIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if last := h.notifier.last(); last.Kind != NotifyError || last.Message != msgNoFile {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestSubmitSpeechToTextValidatesFile(t *testing.T) {
	tests := []struct {
		name   string
		file   models.AudioFile
		reason string
	}{
		{name: "too large", file: audioFile("big.mp3", 10<<20+1), reason: "file too large"},
		{name: "unsupported extension", file: models.AudioFile{Name: "notes.txt", Data: []byte("x")}, reason: "unsupported format"},
		{name: "unknown content type", file: models.AudioFile{Name: "blob", ContentType: "video/mp4", Data: []byte("x")}, reason: "unsupported format"},
	}

	for _, tt := range tests {
		h := newSpeechHarness(t)
		h.conv.SelectFile(context.Background(), tt.file)

		err := h.conv.SubmitSpeechToText(context.Background())

		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Reason != tt.reason {
			t.Errorf("%s: expected %q, got %v", tt.name, tt.reason, err)
		}
		if h.transport.asrCallCount() != 0 {
			t.Errorf("%s: transport should not be called", tt.name)
		}
	}
}

func TestSubmitSpeechToTextAcceptsContentTypeWithoutExtension(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), models.AudioFile{Name: "recording", ContentType: "audio/ogg; codecs=opus", Data: []byte("x")})

	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}
}

func TestSubmitSpeechToTextAcceptsContentTypeForOddExtension(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), models.AudioFile{Name: "rec.2024", ContentType: "audio/mpeg", Data: []byte("x")})

	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}
}

func TestSubmitSpeechToTextEmptyTranscriptIsSuccess(t *testing.T) {
	h := newSpeechHarness(t)
	h.transport.asrFn = func(context.Context, models.AudioFile) (*models.Transcript, error) {
		return &models.Transcript{Text: ""}, nil
	}
	h.conv.SelectFile(context.Background(), audioFile("silence.wav", 16))

	if got := h.conv.Snapshot().ASR.TranscriptState; got != TranscriptNone {
		t.Fatalf("expected no transcript before submission, got %s", got)
	}

	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}

	view := h.conv.Snapshot().ASR
	if view.Status != PhaseSucceeded {
		t.Fatalf("expected succeeded, got %s", view.Status)
	}
	if view.TranscriptState != TranscriptEmpty {
		t.Fatalf("expected empty transcript state, got %s", view.TranscriptState)
	}
	if view.Transcript == nil || *view.Transcript != "" {
		t.Fatalf("expected present empty transcript, got %v", view.Transcript)
	}
	if h.notifier.last().Message != msgTranscribed {
		t.Fatalf("unexpected notification %+v", h.notifier.last())
	}
}

func TestSubmitSpeechToTextFailureKeepsPriorTranscript(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), audioFile("first.mp3", 32))
	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("first submit err: %v", err)
	}

	g := newGate()
	h.transport.asrFn = func(context.Context, models.AudioFile) (*models.Transcript, error) {
		g.wait()
		return nil, &apiError{msg: "file too large"}
	}
	h.conv.SelectFile(context.Background(), audioFile("second.mp3", 64))

	done, err := h.conv.StartSpeechToText(context.Background())
	if err != nil {
		t.Fatalf("start err: %v", err)
	}
	<-g.entered

	pending := h.conv.SpeechToTextState()
	if pending.Phase() != PhasePending {
		t.Fatalf("expected pending, got %s", pending.Phase())
	}
	if tr := pending.Result(); tr == nil || tr.Text != "hello" {
		t.Fatalf("expected prior transcript retained while pending, got %+v", tr)
	}

	close(g.release)
	if err := <-done; err == nil {
		t.Fatal("expected transport error")
	}

	st := h.conv.SpeechToTextState()
	if st.Phase() != PhaseFailed {
		t.Fatalf("expected failed, got %s", st.Phase())
	}
	if tr := st.Result(); tr == nil || tr.Text != "hello" {
		t.Fatalf("expected prior transcript unchanged, got %+v", tr)
	}
	if last := h.notifier.last(); last.Kind != NotifyError || last.Message != "file too large" {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestSelectFileKeepsTranscript(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), audioFile("a.mp3", 8))
	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}

	h.conv.SelectFile(context.Background(), audioFile("b.wav", 8))

	view := h.conv.Snapshot().ASR
	if view.FileName != "b.wav" {
		t.Fatalf("expected replaced file, got %q", view.FileName)
	}
	if view.Transcript == nil || *view.Transcript != "hello" {
		t.Fatalf("expected transcript kept, got %v", view.Transcript)
	}
}

func TestSubmitSpeechToTextWhilePendingIsNoop(t *testing.T) {
	h := newSpeechHarness(t)
	g := newGate()
	h.transport.asrFn = func(context.Context, models.AudioFile) (*models.Transcript, error) {
		g.wait()
		return &models.Transcript{Text: "done"}, nil
	}
	h.conv.SelectFile(context.Background(), audioFile("a.mp3", 8))

	done, err := h.conv.StartSpeechToText(context.Background())
	if err != nil {
		t.Fatalf("start err: %v", err)
	}
	<-g.entered

	if _, err := h.conv.StartSpeechToText(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}

	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("submission err: %v", err)
	}
	if n := h.transport.asrCallCount(); n != 1 {
		t.Fatalf("expected one transport call, got %d", n)
	}
}

func TestCopyResult(t *testing.T) {
	h := newSpeechHarness(t)

	if err := h.conv.CopyResult(context.Background()); err != nil {
		t.Fatalf("copy without transcript err: %v", err)
	}
	if len(h.clipboard.copied) != 0 || len(h.notifier.all()) != 0 {
		t.Fatal("expected no-op without transcript")
	}

	h.conv.SelectFile(context.Background(), audioFile("a.mp3", 8))
	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}

	if err := h.conv.CopyResult(context.Background()); err != nil {
		t.Fatalf("copy err: %v", err)
	}
	if len(h.clipboard.copied) != 1 || h.clipboard.copied[0] != "hello" {
		t.Fatalf("unexpected clipboard contents: %v", h.clipboard.copied)
	}
	if last := h.notifier.last(); last.Kind != NotifySuccess || last.Message != msgCopied {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestCopyResultFailureNotifies(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), audioFile("a.mp3", 8))
	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}
	h.clipboard.err = errors.New("no display")

	if err := h.conv.CopyResult(context.Background()); err == nil {
		t.Fatal("expected copy error")
	}
	if last := h.notifier.last(); last.Kind != NotifyError || last.Message != msgCopyFailed {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestRejectedSubmitReturnsSpeechToTextToIdle(t *testing.T) {
	h := newSpeechHarness(t)
	h.conv.SelectFile(context.Background(), audioFile("a.mp3", 8))
	if err := h.conv.SubmitSpeechToText(context.Background()); err != nil {
		t.Fatalf("submit err: %v", err)
	}

	h.conv.SelectFile(context.Background(), models.AudioFile{Name: "notes.txt", Data: []byte("x")})
	err := h.conv.SubmitSpeechToText(context.Background())

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != "unsupported format" {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if got := h.conv.SpeechToTextState().Phase(); got != PhaseIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if h.transport.asrCallCount() != 1 {
		t.Fatal("rejected submission must not reach the transport")
	}
}
