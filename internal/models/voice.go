package models

// DefaultVoice is used when the voice catalog is empty or unavailable.
const DefaultVoice = "alloy"

type Voice struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}
