package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/speakify/internal/activity"
	"github.com/nikhilbhutani/speakify/internal/api"
	"github.com/nikhilbhutani/speakify/internal/api/handlers"
	"github.com/nikhilbhutani/speakify/internal/auth"
	"github.com/nikhilbhutani/speakify/internal/cache"
	"github.com/nikhilbhutani/speakify/internal/config"
	"github.com/nikhilbhutani/speakify/internal/converter"
	"github.com/nikhilbhutani/speakify/internal/database"
	"github.com/nikhilbhutani/speakify/internal/desktop"
	"github.com/nikhilbhutani/speakify/internal/multimodal"
	"github.com/nikhilbhutani/speakify/internal/multimodal/stt"
	"github.com/nikhilbhutani/speakify/internal/multimodal/tts"
	"github.com/nikhilbhutani/speakify/internal/notify"
	"github.com/nikhilbhutani/speakify/internal/queue"
	"github.com/nikhilbhutani/speakify/internal/speakify"
	"github.com/nikhilbhutani/speakify/internal/storage"
	"github.com/nikhilbhutani/speakify/migrations"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	session := auth.NewSession(cfg.API.Token, cfg.Auth.JWTSecret)
	checks := map[string]handlers.Pinger{}

	// Database (optional). Without it there is no local activity history.
	var store *activity.Store
	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without activity history", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, migrations.FS); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			store = activity.NewStore(db, session)
			checks["database"] = pingPool(db)
		}
	}

	// Redis (optional). Backs the voice catalog cache.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	redisUp := rdb.Ping(ctx).Err() == nil
	if !redisUp {
		slog.Warn("redis unavailable, running without voice cache", "addr", cfg.Redis.Addr)
	}

	var files storage.Storage
	var filesDir string
	switch cfg.Storage.Backend {
	case "supabase":
		files = storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	default:
		local := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.FilesURL())
		files = local
		filesDir = local.Root()
	}

	transport, history := buildTransport(cfg, session, files, store)
	if redisUp {
		redisCache := cache.NewCache(rdb, "speakify:")
		transport = cache.NewCatalogTransport(transport, redisCache, cfg.Redis.VoiceTTL)
		checks["redis"] = handlers.PingFunc(redisCache.Ping)
	}

	hub := notify.NewHub(cfg.Server.AllowedOrigins)
	defer hub.Close()

	notifiers := notify.Multi{hub, notify.Logger{}}
	if cfg.Notify.WebhookURL != "" {
		wh := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret)
		defer wh.Close()
		notifiers = append(notifiers, wh)
	}

	var clipboard converter.Clipboard = hub
	if cfg.Desktop.Clipboard == "system" {
		clipboard = desktop.New()
	}

	var opener converter.Opener = hub
	switch cfg.Desktop.Opener {
	case "system":
		opener = desktop.New()
	case "queue":
		qc := queue.NewClient(cfg.Redis, session)
		defer qc.Close()
		opener = qc
	}

	opts := converter.Options{
		Transport: transport,
		Notifier:  notifiers,
		Clipboard: clipboard,
		Opener:    opener,
		Limits: converter.Limits{
			MaxTextLength:   cfg.Converter.MaxTextLength,
			MaxUploadBytes:  cfg.Converter.MaxUploadBytes,
			AcceptedFormats: cfg.Converter.AcceptedFormats,
			DefaultVoice:    cfg.Converter.DefaultVoice,
		},
	}
	if store != nil {
		opts.Recorder = store
	}
	conv, err := converter.New(opts)
	if err != nil {
		slog.Error("failed to build converter", "error", err)
		os.Exit(1)
	}

	session.OnLogout(func(context.Context) {
		conv.Reset()
		hub.PublishState(conv.Snapshot())
	})

	conv.Activate(ctx)

	router := api.NewRouter(api.Deps{
		Converter:      conv,
		Session:        session,
		History:        history,
		Hub:            hub,
		Checks:         checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequireAuth:    cfg.API.Backend == "speakify",
		FilesDir:       filesDir,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting speakify", "addr", cfg.Addr(), "backend", cfg.API.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// buildTransport returns the converter transport and, when one exists, the
// history source behind it.
func buildTransport(cfg *config.Config, session *auth.Session, files storage.Storage, store *activity.Store) (converter.Transport, handlers.HistorySource) {
	if cfg.API.Backend == "speakify" {
		client := speakify.NewClient(cfg.API.BaseURL, session,
			speakify.WithTimeout(cfg.API.Timeout),
			speakify.WithMaxRetries(cfg.API.MaxRetries),
		)
		return client, client
	}

	var ttsProvider tts.Provider
	switch cfg.TTS.Backend {
	case "local":
		ttsProvider = tts.NewLocal(tts.LocalConfig{
			PiperBinPath: cfg.TTS.LocalBinPath,
			ModelPath:    cfg.TTS.LocalModel,
		})
	default:
		ttsProvider = tts.NewOpenAI(tts.OpenAIConfig{
			APIKey:  cfg.TTS.OpenAIKey,
			BaseURL: cfg.TTS.OpenAIBaseURL,
			Model:   cfg.TTS.OpenAIModel,
		})
	}

	var sttProvider stt.Provider
	switch cfg.STT.Backend {
	case "local":
		sttProvider = stt.NewLocal(stt.LocalConfig{BaseURL: cfg.STT.LocalBaseURL})
	default:
		sttProvider = stt.NewOpenAI(stt.OpenAIConfig{
			APIKey:  cfg.STT.OpenAIKey,
			BaseURL: cfg.STT.OpenAIBaseURL,
			Model:   cfg.STT.OpenAIModel,
		})
	}

	slog.Info("using direct providers", "tts", ttsProvider.Name(), "stt", sttProvider.Name())

	if store == nil {
		return multimodal.NewBackend(ttsProvider, sttProvider, files, cfg.Storage.Bucket, nil), nil
	}
	return multimodal.NewBackend(ttsProvider, sttProvider, files, cfg.Storage.Bucket, store), store
}

func pingPool(db *pgxpool.Pool) handlers.Pinger {
	return handlers.PingFunc(db.Ping)
}
