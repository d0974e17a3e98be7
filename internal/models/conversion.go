package models

import (
	"path/filepath"
	"strings"
)

const (
	MinSpeed     = 0.25
	MaxSpeed     = 4.0
	DefaultSpeed = 1.0
)

type TextToSpeechRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type TextToSpeechResult struct {
	AudioLocation string `json:"audio_location"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
}

// Transcript is the outcome of a successful speech-to-text call. An empty Text
// is a valid, completed result.
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// AudioFile is a user-selected audio blob. Data is held in memory so the same
// selection can be submitted more than once.
type AudioFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f AudioFile) Size() int64 { return int64(len(f.Data)) }

// audioExtensions maps recognised file extensions to their format name.
var audioExtensions = map[string]string{
	"mp3":  "mp3",
	"mpga": "mp3",
	"mpeg": "mp3",
	"wav":  "wav",
	"wave": "wav",
	"ogg":  "ogg",
	"oga":  "ogg",
	"webm": "webm",
	"m4a":  "m4a",
	"flac": "flac",
}

// Format reports the audio format from the file extension, falling back to the
// content type when the extension is not an audio one. An unrecognised pair
// yields the raw extension. The result is lower-case without a leading dot.
func (f AudioFile) Format() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
	if format, ok := audioExtensions[ext]; ok {
		return format
	}
	if format := formatFromContentType(f.ContentType); format != "" {
		return format
	}
	return ext
}

func formatFromContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg":
		return "ogg"
	case "audio/webm":
		return "webm"
	case "audio/mp4", "audio/x-m4a":
		return "m4a"
	case "audio/flac", "audio/x-flac":
		return "flac"
	}
	return ""
}

// UploadName returns Name carrying an audio extension that matches Format, for
// services that infer the format from the file name.
func (f AudioFile) UploadName() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
	if _, ok := audioExtensions[ext]; ok {
		return f.Name
	}
	format := f.Format()
	if format == "" || format == ext {
		return f.Name
	}
	name := f.Name
	if name == "" {
		name = "audio"
	}
	return name + "." + format
}
