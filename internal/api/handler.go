// Package api provides HTTP handlers for the tutor API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/freetalk/internal/domain"
	"github.com/ashureev/freetalk/internal/tutor"
	"github.com/go-chi/chi/v5"
)

const (
	// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
	defaultMaxRequestBodySize = 1 << 20
	healthCheckTimeout        = 5 * time.Second
)

// Tutor is the conversation surface the handlers depend on.
type Tutor interface {
	NewSession() string
	Chat(ctx context.Context, userMessage, sessionID string) (tutor.Reply, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	ActiveSessions() int
}

// Archive is the read side of the transcript archive.
type Archive interface {
	Ping(ctx context.Context) error
	SessionTurns(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

// Handler serves the session, chat, speech, transcript and health endpoints.
type Handler struct {
	tutor       Tutor
	archive     Archive
	maxBodySize int64
}

// NewHandler creates a new Handler. A non-positive maxBodySize selects the default.
func NewHandler(t Tutor, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{tutor: t, maxBodySize: maxBodySize}
}

// WithArchive enables the transcript endpoint and the archive health check.
func (h *Handler) WithArchive(a Archive) *Handler {
	h.archive = a
	return h
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session/create", h.CreateSession)
		r.Get("/session/{id}/transcript", h.Transcript)
		r.Post("/chat", h.Chat)
		r.Post("/tts", h.TTS)
		r.Get("/health", h.Health)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into v. An empty body is
// accepted when allowEmpty is set.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	Error(w, http.StatusBadRequest, "invalid request body")
	return false
}

// errorStatus maps a tutor error to an HTTP status and user-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tutor.ErrMessageTooLong):
		return http.StatusBadRequest, "Message too long."
	case errors.Is(err, tutor.ErrSessionExpired):
		return http.StatusNotFound, "Session expired. Create a new session."
	case errors.Is(err, tutor.ErrEmptyText):
		return http.StatusBadRequest, "Text is required for TTS."
	case errors.Is(err, tutor.ErrGeneration):
		return http.StatusInternalServerError, "Chat error: " + providerMessage(err, tutor.ErrGeneration)
	case errors.Is(err, tutor.ErrSynthesis):
		return http.StatusInternalServerError, "TTS error: " + providerMessage(err, tutor.ErrSynthesis)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func providerMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
