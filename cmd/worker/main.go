package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/speakify/internal/config"
	"github.com/nikhilbhutani/speakify/internal/queue"
	"github.com/nikhilbhutani/speakify/internal/queue/workers"
	"github.com/nikhilbhutani/speakify/internal/storage"
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

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: workerLogger{},
		},
	)

	var store storage.Storage
	switch cfg.Storage.Backend {
	case "supabase":
		store = storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	default:
		store = storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.FilesURL())
	}

	registry := queue.NewHandlersRegistry()

	downloadWorker := workers.NewDownloadWorker(store, cfg.Storage.Bucket)
	registry.Register(queue.TypeAudioDownload, asynq.HandlerFunc(downloadWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 4, "task_types", registry.Types(), "storage", cfg.Storage.Backend)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

// workerLogger routes asynq's internal logging through slog.
type workerLogger struct{}

func (workerLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (workerLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (workerLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (workerLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (workerLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
