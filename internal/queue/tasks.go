package queue

import "time"

const (
	TypeAudioDownload = "audio:download"
)

// AudioDownloadPayload asks a worker to fetch generated audio and keep a copy
// in storage under downloads/.
type AudioDownloadPayload struct {
	URI         string    `json:"uri"`
	UserID      string    `json:"user_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
