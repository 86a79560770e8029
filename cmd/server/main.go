// Free Talk English Tutor server
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

	"github.com/ashureev/freetalk/internal/api"
	"github.com/ashureev/freetalk/internal/config"
	"github.com/ashureev/freetalk/internal/llm"
	"github.com/ashureev/freetalk/internal/middleware"
	"github.com/ashureev/freetalk/internal/session"
	"github.com/ashureev/freetalk/internal/transcript"
	"github.com/ashureev/freetalk/internal/tutor"
	"github.com/ashureev/freetalk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"chat_model", cfg.OpenAI.ChatModel,
		"max_history", cfg.Session.MaxHistory,
		"session_timeout", cfg.Session.Timeout,
	)

	// Initialize dependencies.
	store := session.NewStore(session.Options{
		MaxHistory: cfg.Session.MaxHistory,
		Timeout:    cfg.Session.Timeout,
	})

	client := llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		ChatModel:   cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		TTSModel:    cfg.OpenAI.TTSModel,
		Voice:       cfg.OpenAI.Voice,
	})

	var archive *transcript.SQLiteStore
	var recorder tutor.Recorder
	if cfg.Transcript.Enabled {
		archive, err = transcript.Open(cfg.Transcript.DBPath)
		if err != nil {
			slog.Error("Failed to open transcript database", "error", err, "path", cfg.Transcript.DBPath)
			os.Exit(1)
		}
		defer func() {
			if closeErr := archive.Close(); closeErr != nil {
				slog.Error("Failed to close transcript database", "error", closeErr)
			}
		}()
		recorder = archive
		slog.Info("Transcript archive enabled", "path", cfg.Transcript.DBPath)
	}

	orchestrator := tutor.NewOrchestrator(store, client, client, recorder, logger)

	// Initialize handlers.
	apiHandler := api.NewHandler(orchestrator, cfg.MaxRequestBodySize)
	if archive != nil {
		apiHandler.WithArchive(archive)
	}
	chatSocket := api.NewChatSocket(orchestrator, cfg.AllowedOrigins, cfg.MaxRequestBodySize)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	apiHandler.RegisterRoutes(r)
	r.Get("/ws/chat", chatSocket.ServeHTTP)

	// Serve embedded front-end (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, store, cfg.Session.SweepInterval)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
