package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
	if cfg.Converter.MaxTextLength != 4000 || cfg.Converter.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected converter limits: %+v", cfg.Converter)
	}
	if cfg.Converter.DefaultVoice != "alloy" {
		t.Fatalf("unexpected default voice %q", cfg.Converter.DefaultVoice)
	}
	if cfg.API.Backend != "speakify" || cfg.API.MaxRetries != 2 {
		t.Fatalf("unexpected api config: %+v", cfg.API)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SPEAKIFY_API_URL", "https://api.example.com/api/")
	t.Setenv("VOICE_CACHE_TTL", "5m")
	t.Setenv("MAX_UPLOAD_MB", "25")
	t.Setenv("ACCEPTED_AUDIO_FORMATS", " MP3, flac ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.API.BaseURL != "https://api.example.com/api" {
		t.Errorf("base url not trimmed: %q", cfg.API.BaseURL)
	}
	if cfg.Redis.VoiceTTL != 5*time.Minute {
		t.Errorf("voice ttl = %v", cfg.Redis.VoiceTTL)
	}
	if cfg.Converter.MaxUploadBytes != 25<<20 {
		t.Errorf("max upload = %d", cfg.Converter.MaxUploadBytes)
	}
	if got := strings.Join(cfg.Converter.AcceptedFormats, ","); got != "mp3,flac" {
		t.Errorf("accepted formats = %q", got)
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERVER_PORT", "eighty"},
		{"REDIS_DB", "x"},
		{"VOICE_CACHE_TTL", "forever"},
		{"MAX_TEXT_LENGTH", "4k"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("expected error naming %s, got %v", tt.key, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.API.Backend = "grpc" },
			wantErr: "unknown SPEAKIFY_BACKEND",
		},
		{
			name: "direct backend needs openai key",
			mutate: func(c *Config) {
				c.API.Backend = "openai"
				c.TTS.OpenAIKey = ""
			},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "local piper needs model",
			mutate: func(c *Config) {
				c.API.Backend = "openai"
				c.TTS.Backend = "local"
			},
			wantErr: "TTS_LOCAL_PIPER_MODEL",
		},
		{
			name: "supabase needs credentials",
			mutate: func(c *Config) {
				c.API.Backend = "openai"
				c.TTS.OpenAIKey = "sk-test"
				c.Storage.Backend = "supabase"
			},
			wantErr: "SUPABASE_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load err: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFilesURL(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		public string
		want   string
	}{
		{name: "loopback", host: "127.0.0.1", want: "http://127.0.0.1:8080/files"},
		{name: "wildcard ipv4", host: "0.0.0.0", want: "http://localhost:8080/files"},
		{name: "wildcard ipv6", host: "::", want: "http://localhost:8080/files"},
		{name: "ipv6 host", host: "::1", want: "http://[::1]:8080/files"},
		{name: "explicit", host: "0.0.0.0", public: "https://audio.example.com/files/", want: "https://audio.example.com/files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SERVER_HOST", tt.host)
			t.Setenv("STORAGE_PUBLIC_URL", tt.public)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load err: %v", err)
			}
			if got := cfg.FilesURL(); got != tt.want {
				t.Errorf("FilesURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
