package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// Limits are the client-side preconditions checked before any transport call.
type Limits struct {
	MaxTextLength   int      // characters; default 4000
	MaxUploadBytes  int64    // default 10 MiB
	AcceptedFormats []string // lower-case extensions; default mp3, wav, ogg, webm, m4a
	DefaultVoice    string   // default models.DefaultVoice
}

func DefaultLimits() Limits {
	return Limits{
		MaxTextLength:   4000,
		MaxUploadBytes:  10 << 20,
		AcceptedFormats: []string{"mp3", "wav", "ogg", "webm", "m4a"},
		DefaultVoice:    models.DefaultVoice,
	}
}

type Options struct {
	Transport Transport
	Notifier  Notifier
	Clipboard Clipboard
	Opener    Opener
	Recorder  Recorder // optional
	Limits    Limits
}

// Converter orchestrates the text-to-speech and speech-to-text workflows, the
// mode selector that gates them, and the usage counters.
//
// Every state mutation happens under mu. The lock is never held across a
// collaborator call; results are applied only when the generation captured at
// submission still matches the workflow's current generation.
type Converter struct {
	transport Transport
	notifier  Notifier
	clipboard Clipboard
	opener    Opener
	recorder  Recorder
	limits    Limits

	mu     sync.Mutex
	mode   ConversionMode
	tts    ttsWorkflow
	asr    asrWorkflow
	voices []models.Voice
	usage  models.UsageSnapshot
	// usageGen orders overlapping refreshes; only the latest one is applied.
	usageGen uint64
}

type ttsWorkflow struct {
	text     string
	voice    string
	speed    float64
	state    State[models.TextToSpeechResult]
	gen      uint64
	inFlight bool
}

type asrWorkflow struct {
	file     *models.AudioFile
	state    State[models.Transcript]
	gen      uint64
	inFlight bool
}

func New(opts Options) (*Converter, error) {
	if opts.Transport == nil {
		return nil, errors.New("converter: transport is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	def := DefaultLimits()
	if opts.Limits.MaxTextLength <= 0 {
		opts.Limits.MaxTextLength = def.MaxTextLength
	}
	if opts.Limits.MaxUploadBytes <= 0 {
		opts.Limits.MaxUploadBytes = def.MaxUploadBytes
	}
	if len(opts.Limits.AcceptedFormats) == 0 {
		opts.Limits.AcceptedFormats = def.AcceptedFormats
	}
	if opts.Limits.DefaultVoice == "" {
		opts.Limits.DefaultVoice = def.DefaultVoice
	}

	return &Converter{
		transport: opts.Transport,
		notifier:  opts.Notifier,
		clipboard: opts.Clipboard,
		opener:    opts.Opener,
		recorder:  opts.Recorder,
		limits:    opts.Limits,
		mode:      ModeTextToSpeech,
		tts: ttsWorkflow{
			voice: opts.Limits.DefaultVoice,
			speed: models.DefaultSpeed,
			state: Idle[models.TextToSpeechResult](),
		},
		asr: asrWorkflow{
			state: Idle[models.Transcript](),
		},
	}, nil
}

// Activate loads the voice catalog and the first usage snapshot.
func (c *Converter) Activate(ctx context.Context) {
	c.LoadVoices(ctx)
	c.RefreshUsage(ctx)
}

// Limits returns the preconditions the converter validates against.
func (c *Converter) Limits() Limits {
	l := c.limits
	l.AcceptedFormats = slices.Clone(l.AcceptedFormats)
	return l
}

func (c *Converter) Mode() ConversionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SelectMode switches the active workflow. Selecting the current mode does
// nothing. Otherwise both workflows' displayed results and the file selection
// are discarded, and any in-flight request becomes stale.
func (c *Converter) SelectMode(target ConversionMode) error {
	if !target.Valid() {
		return fmt.Errorf("select mode: %w", errors.New("invalid conversion mode"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if target == c.mode {
		return nil
	}

	slog.Debug("switching conversion mode", "from", c.mode, "to", target)
	c.mode = target
	c.resetResultsLocked()
	return nil
}

// Reset returns the converter to its initial state, e.g. after logout. Input
// fields are cleared as well as results.
func (c *Converter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ModeTextToSpeech
	c.resetResultsLocked()
	c.tts.text = ""
	c.tts.voice = c.defaultVoiceLocked()
	c.tts.speed = models.DefaultSpeed
	c.usage = models.UsageSnapshot{}
	c.usageGen++
}

func (c *Converter) resetResultsLocked() {
	c.tts.state = Idle[models.TextToSpeechResult]()
	c.tts.gen++
	c.asr.state = Idle[models.Transcript]()
	c.asr.file = nil
	c.asr.gen++
}

type TranscriptState string

const (
	TranscriptNone  TranscriptState = "none"
	TranscriptEmpty TranscriptState = "empty"
	TranscriptReady TranscriptState = "ready"
)

// View is a consistent copy of everything the UI renders.
type View struct {
	Mode   ConversionMode       `json:"mode"`
	TTS    TTSView              `json:"tts"`
	ASR    ASRView              `json:"asr"`
	Usage  models.UsageSnapshot `json:"usage"`
	Voices []models.Voice       `json:"voices"`
}

type TTSView struct {
	Text          string  `json:"text"`
	Voice         string  `json:"voice"`
	Speed         float64 `json:"speed"`
	Status        Phase   `json:"status"`
	AudioLocation string  `json:"audio_location,omitempty"`
	Message       string  `json:"message,omitempty"`
	Busy          bool    `json:"busy"`
}

type ASRView struct {
	FileName        string          `json:"file_name,omitempty"`
	FileSize        int64           `json:"file_size,omitempty"`
	Status          Phase           `json:"status"`
	Transcript      *string         `json:"transcript"`
	TranscriptState TranscriptState `json:"transcript_state"`
	Message         string          `json:"message,omitempty"`
	Busy            bool            `json:"busy"`
}

func (c *Converter) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Mode:   c.mode,
		Usage:  c.usage,
		Voices: slices.Clone(c.voices),
		TTS: TTSView{
			Text:    c.tts.text,
			Voice:   c.tts.voice,
			Speed:   c.tts.speed,
			Status:  c.tts.state.Phase(),
			Message: c.tts.state.Message(),
			Busy:    c.tts.inFlight,
		},
		ASR: ASRView{
			Status:          c.asr.state.Phase(),
			Message:         c.asr.state.Message(),
			Busy:            c.asr.inFlight,
			TranscriptState: TranscriptNone,
		},
	}

	if res := c.tts.state.Result(); res != nil {
		v.TTS.AudioLocation = res.AudioLocation
	}
	if c.asr.file != nil {
		v.ASR.FileName = c.asr.file.Name
		v.ASR.FileSize = c.asr.file.Size()
	}
	if tr := c.asr.state.Result(); tr != nil {
		text := tr.Text
		v.ASR.Transcript = &text
		v.ASR.TranscriptState = TranscriptReady
		if text == "" {
			v.ASR.TranscriptState = TranscriptEmpty
		}
	}
	return v
}

func (c *Converter) TextToSpeechState() State[models.TextToSpeechResult] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tts.state
}

func (c *Converter) SpeechToTextState() State[models.Transcript] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asr.state
}

func (c *Converter) notify(ctx context.Context, kind NotificationKind, msg string) {
	c.notifier.Notify(ctx, Notification{Kind: kind, Message: msg})
}

func (c *Converter) record(ctx context.Context, rec models.ActivityRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		slog.Warn("failed to record conversion activity", "kind", rec.Kind, "error", err)
	}
}

func (c *Converter) defaultVoiceLocked() string {
	if len(c.voices) > 0 {
		return c.voices[0].ID
	}
	return c.limits.DefaultVoice
}

func clampSpeed(v float64) float64 {
	if math.IsNaN(v) {
		return models.DefaultSpeed
	}
	return math.Min(models.MaxSpeed, math.Max(models.MinSpeed, v))
}
