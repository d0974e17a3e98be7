package stt

import "context"

// TranscriptionRequest holds the parameters for audio transcription. FileName
// carries the extension the backend uses to detect the format.
type TranscriptionRequest struct {
	FileName string
	Audio    []byte
	Language string
	Prompt   string
}

// TranscriptionResponse holds the transcription result.
type TranscriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}
