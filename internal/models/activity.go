package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversionKind string

const (
	KindTextToSpeech ConversionKind = "text-to-speech"
	KindSpeechToText ConversionKind = "speech-to-text"
)

type ConversionOutcome string

const (
	OutcomeSucceeded ConversionOutcome = "succeeded"
	OutcomeFailed    ConversionOutcome = "failed"
)

// ActivityRecord describes one resolved conversion. It never carries the
// conversion result itself.
type ActivityRecord struct {
	ID        uuid.UUID         `json:"id"`
	UserID    *uuid.UUID        `json:"user_id,omitempty"`
	Kind      ConversionKind    `json:"kind"`
	Outcome   ConversionOutcome `json:"outcome"`
	Summary   string            `json:"summary"`
	SizeBytes int64             `json:"size_bytes"`
	LatencyMs int64             `json:"latency_ms"`
	CreatedAt time.Time         `json:"created_at"`
}

type HistoryItem struct {
	ID        string         `json:"id"`
	Kind      ConversionKind `json:"type"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

type HistoryPage struct {
	Items  []HistoryItem `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
