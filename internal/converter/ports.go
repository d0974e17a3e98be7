package converter

import (
	"context"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// Transport performs the remote calls. Retries, if any, live behind it.
type Transport interface {
	FetchVoices(ctx context.Context) ([]models.Voice, error)
	ConvertTextToSpeech(ctx context.Context, req models.TextToSpeechRequest) (*models.TextToSpeechResult, error)
	ConvertSpeechToText(ctx context.Context, file models.AudioFile) (*models.Transcript, error)
	FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error)
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

// Notifier delivers toast-style messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// Opener hands a URI to something outside the process (a browser, a download
// queue).
type Opener interface {
	Open(ctx context.Context, uri string) error
}

// Recorder receives one record per resolved conversion.
type Recorder interface {
	Record(ctx context.Context, rec models.ActivityRecord) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
