package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/freetalk/internal/domain"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type sessionCreateResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatRequest struct {
	UserMessage string `json:"user_message"`
	SessionID   string `json:"session_id"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type healthResponse struct {
	Status         string            `json:"status"`
	ActiveSessions int               `json:"active_sessions"`
	Checks         map[string]string `json:"checks,omitempty"`
}

type transcriptResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
}

// CreateSession handles POST /api/session/create. The request body is ignored.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.tutor.NewSession()
	JSON(w, http.StatusOK, sessionCreateResponse{
		SessionID: id,
		Message:   "Free talk session created.",
	})
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	reply, err := h.tutor.Chat(r.Context(), req.UserMessage, req.SessionID)
	if err != nil {
		status, msg := errorStatus(err)
		slog.Warn("Chat request failed",
			"session_id", req.SessionID,
			"status", status,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		Error(w, status, msg)
		return
	}

	JSON(w, http.StatusOK, reply)
}

// TTS handles POST /api/tts and responds with MP3 audio.
func (h *Handler) TTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	audio, err := h.tutor.Speak(r.Context(), req.Text)
	if err != nil {
		status, msg := errorStatus(err)
		slog.Warn("TTS request failed",
			"status", status,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		Error(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		slog.Debug("failed to write audio response", "error", err)
	}
}

// Transcript handles GET /api/session/{id}/transcript. It reads the archive,
// so turns of expired sessions stay available.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		Error(w, http.StatusNotFound, "Transcript archive is disabled.")
		return
	}

	id := chi.URLParam(r, "id")
	turns, err := h.archive.SessionTurns(r.Context(), id)
	if err != nil {
		slog.Error("Transcript lookup failed",
			"session_id", id,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}

	JSON(w, http.StatusOK, transcriptResponse{SessionID: id, Turns: turns})
}

// Health handles GET /api/health. With the archive enabled, an unreachable
// database reports degraded with 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:         "ok",
		ActiveSessions: h.tutor.ActiveSessions(),
	}
	statusCode := http.StatusOK

	if h.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp.Checks = map[string]string{"transcript": "ok"}
		if err := h.archive.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			resp.Status = "degraded"
			resp.Checks["transcript"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		}
	}

	JSON(w, statusCode, resp)
}
