package stt

// LocalConfig holds configuration for the local whisper.cpp STT backend.
type LocalConfig struct {
	BaseURL string // default: "http://localhost:8178"
}

// Local wraps OpenAI pointing at a local whisper.cpp server started with its
// OpenAI-compatible route, e.g. ./server -m models/ggml-base.en.bin --port 8178.
type Local struct {
	*OpenAI
}

func NewLocal(cfg LocalConfig) *Local {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8178"
	}
	return &Local{OpenAI: NewOpenAI(OpenAIConfig{BaseURL: baseURL})}
}

func (l *Local) Name() string { return "local-whisper" }
