package converter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nikhilbhutani/speakify/internal/models"
)

type fakeTransport struct {
	mu sync.Mutex

	voices    []models.Voice
	voicesErr error

	ttsFn    func(ctx context.Context, req models.TextToSpeechRequest) (*models.TextToSpeechResult, error)
	ttsCalls []models.TextToSpeechRequest

	asrFn    func(ctx context.Context, file models.AudioFile) (*models.Transcript, error)
	asrCalls []models.AudioFile

	usage      *models.UsageSnapshot
	usageErr   error
	usageCalls int
	usageFn    func(ctx context.Context) (*models.UsageSnapshot, error)
}

func (f *fakeTransport) FetchVoices(ctx context.Context) ([]models.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voices, f.voicesErr
}

func (f *fakeTransport) ConvertTextToSpeech(ctx context.Context, req models.TextToSpeechRequest) (*models.TextToSpeechResult, error) {
	f.mu.Lock()
	f.ttsCalls = append(f.ttsCalls, req)
	fn := f.ttsFn
	f.mu.Unlock()

	if fn == nil {
		return &models.TextToSpeechResult{AudioLocation: "https://cdn/x.mp3"}, nil
	}
	return fn(ctx, req)
}

func (f *fakeTransport) ConvertSpeechToText(ctx context.Context, file models.AudioFile) (*models.Transcript, error) {
	f.mu.Lock()
	f.asrCalls = append(f.asrCalls, file)
	fn := f.asrFn
	f.mu.Unlock()

	if fn == nil {
		return &models.Transcript{Text: "hello"}, nil
	}
	return fn(ctx, file)
}

func (f *fakeTransport) FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error) {
	f.mu.Lock()
	f.usageCalls++
	fn := f.usageFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	return f.usage, nil
}

func (f *fakeTransport) ttsCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ttsCalls)
}

func (f *fakeTransport) asrCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.asrCalls)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

func (r *recordingNotifier) count(kind NotificationKind) int {
	n := 0
	for _, s := range r.all() {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) last() Notification {
	all := r.all()
	if len(all) == 0 {
		return Notification{}
	}
	return all[len(all)-1]
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (f *fakeClipboard) Copy(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(ctx context.Context, uri string) error {
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, uri)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func (f *fakeRecorder) Record(ctx context.Context, rec models.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

// apiError mimics a transport error carrying a user-facing message.
type apiError struct{ msg string }

func (e *apiError) Error() string       { return "remote: " + e.msg }
func (e *apiError) UserMessage() string { return e.msg }

var errNetwork = errors.New("connection reset")

type harness struct {
	conv      *Converter
	transport *fakeTransport
	notifier  *recordingNotifier
	clipboard *fakeClipboard
	opener    *fakeOpener
	recorder  *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		notifier:  &recordingNotifier{},
		clipboard: &fakeClipboard{},
		opener:    &fakeOpener{},
		recorder:  &fakeRecorder{},
	}
	conv, err := New(Options{
		Transport: h.transport,
		Notifier:  h.notifier,
		Clipboard: h.clipboard,
		Opener:    h.opener,
		Recorder:  h.recorder,
	})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	h.conv = conv
	return h
}

// gate blocks a transport call until released, so tests can act while a
// request is pending.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.entered <- struct{}{}
	<-g.release
}

func audioFile(name string, size int) models.AudioFile {
	return models.AudioFile{Name: name, ContentType: "audio/mpeg", Data: make([]byte, size)}
}
