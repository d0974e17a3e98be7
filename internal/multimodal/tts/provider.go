package tts

import (
	"context"

	"github.com/nikhilbhutani/speakify/internal/models"
)

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Input string
	Voice string
	Speed float64
}

// SynthesisResult holds the generated audio and its encoding.
type SynthesisResult struct {
	Audio       []byte
	ContentType string // "audio/mpeg" (OpenAI) or "audio/wav" (Piper)
	Extension   string // "mp3" or "wav"
}

// Provider is the interface for text-to-speech backends.
type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Voices() []models.Voice
	Name() string
}
