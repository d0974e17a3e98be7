package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	STT       STTConfig
	TTS       TTSConfig
	Converter ConverterConfig
	Desktop   DesktopConfig
	Notify    NotifyConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// APIConfig configures the transport. Backend "speakify" talks to the remote
// Speakify service; "openai" converts directly through the STT/TTS providers.
type APIConfig struct {
	Backend    string
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type AuthConfig struct {
	JWTSecret string // optional; when empty, session tokens are decoded without verification
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	VoiceTTL time.Duration
}

type StorageConfig struct {
	Backend       string // "supabase" or "local"
	SupabaseURL   string
	SupabaseKey   string
	Bucket        string
	LocalDir      string
	PublicBaseURL string // where browsers reach LocalDir; empty derives it from the server address
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type TTSConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBinPath  string // default: "piper"
	LocalModel    string // required when backend=local
}

type ConverterConfig struct {
	MaxTextLength   int
	MaxUploadBytes  int64
	AcceptedFormats []string
	DefaultVoice    string
}

// DesktopConfig picks how clipboard writes and external opens are performed.
// "browser" pushes them to connected UI clients, "system" shells out to the
// platform tools, "queue" (opener only) enqueues a background download.
type DesktopConfig struct {
	Clipboard string
	Opener    string
}

type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	voiceTTL, err := getEnvDuration("VOICE_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_CACHE_TTL: %w", err)
	}

	timeout, err := getEnvDuration("SPEAKIFY_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEAKIFY_TIMEOUT: %w", err)
	}

	maxRetries, err := getEnvInt("SPEAKIFY_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEAKIFY_MAX_RETRIES: %w", err)
	}

	maxText, err := getEnvInt("MAX_TEXT_LENGTH", 4000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TEXT_LENGTH: %w", err)
	}

	maxUploadMB, err := getEnvInt("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			Port:           port,
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		},
		API: APIConfig{
			Backend:    getEnv("SPEAKIFY_BACKEND", "speakify"),
			BaseURL:    strings.TrimRight(getEnv("SPEAKIFY_API_URL", "http://localhost:5000/api"), "/"),
			Token:      getEnv("SPEAKIFY_TOKEN", ""),
			Timeout:    timeout,
			MaxRetries: maxRetries,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SPEAKIFY_JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			VoiceTTL: voiceTTL,
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "local"),
			SupabaseURL:   getEnv("SUPABASE_URL", ""),
			SupabaseKey:   getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:        getEnv("STORAGE_BUCKET", "audio"),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "data/audio"),
			PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		TTS: TTSConfig{
			Backend:       getEnv("TTS_BACKEND", "openai"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("TTS_OPENAI_MODEL", ""),
			LocalBinPath:  getEnv("TTS_LOCAL_PIPER_BIN", "piper"),
			LocalModel:    getEnv("TTS_LOCAL_PIPER_MODEL", ""),
		},
		Converter: ConverterConfig{
			MaxTextLength:   maxText,
			MaxUploadBytes:  int64(maxUploadMB) << 20,
			AcceptedFormats: getEnvList("ACCEPTED_AUDIO_FORMATS", []string{"mp3", "wav", "ogg", "webm", "m4a"}),
			DefaultVoice:    getEnv("DEFAULT_VOICE", "alloy"),
		},
		Desktop: DesktopConfig{
			Clipboard: getEnv("CLIPBOARD_BACKEND", "browser"),
			Opener:    getEnv("OPENER_BACKEND", "browser"),
		},
		Notify: NotifyConfig{
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// FilesURL is the public base URL of locally stored audio. A wildcard listen
// host is replaced with localhost, since browsers cannot dial it.
func (c *Config) FilesURL() string {
	if c.Storage.PublicBaseURL != "" {
		return c.Storage.PublicBaseURL
	}
	host := c.Server.Host
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port)) + "/files"
}

func (c *Config) Validate() error {
	var missing []string
	switch c.API.Backend {
	case "speakify":
		if c.API.BaseURL == "" {
			missing = append(missing, "SPEAKIFY_API_URL")
		}
	case "openai":
		if c.TTS.Backend == "openai" && c.TTS.OpenAIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if c.TTS.Backend == "local" && c.TTS.LocalModel == "" {
			missing = append(missing, "TTS_LOCAL_PIPER_MODEL")
		}
		if c.Storage.Backend == "supabase" && (c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "") {
			missing = append(missing, "SUPABASE_URL", "SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unknown SPEAKIFY_BACKEND %q", c.API.Backend)
	}
	if c.Desktop.Opener == "queue" && c.Storage.Backend == "supabase" && c.Storage.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
