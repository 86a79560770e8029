package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsError is sent in place of a reply when a turn fails.
type wsError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ChatSocket serves chat turns over a WebSocket connection. Each JSON frame
// carries one chat request and is answered with one reply or error frame.
type ChatSocket struct {
	tutor          Tutor
	originPatterns []string
	readLimit      int64
}

// NewChatSocket creates a WebSocket chat handler.
func NewChatSocket(t Tutor, originPatterns []string, readLimit int64) *ChatSocket {
	if readLimit <= 0 {
		readLimit = defaultMaxRequestBodySize
	}
	return &ChatSocket{tutor: t, originPatterns: originHosts(originPatterns), readLimit: readLimit}
}

// originHosts strips URL schemes, since origin patterns match on host.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		hosts = append(hosts, strings.TrimSuffix(o, "/"))
	}
	return hosts
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(s.readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	slog.Info("Chat socket connected", "ip", r.RemoteAddr)

	// The session sticks to the connection once the first turn resolves it.
	sessionID := ""
	for {
		var req chatRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				slog.Info("Chat socket disconnected", "session_id", sessionID)
			} else {
				slog.Warn("Chat socket read failed", "session_id", sessionID, "error", err)
			}
			return
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		reply, err := s.tutor.Chat(ctx, req.UserMessage, req.SessionID)
		if err != nil {
			status, msg := errorStatus(err)
			slog.Warn("Chat socket turn failed", "session_id", req.SessionID, "status", status, "error", err)
			if err := wsjson.Write(ctx, ws, wsError{Error: msg, Status: status}); err != nil {
				slog.Debug("Failed to write chat socket error", "error", err)
				return
			}
			continue
		}

		sessionID = reply.SessionID
		if err := wsjson.Write(ctx, ws, reply); err != nil {
			slog.Debug("Failed to write chat socket reply", "error", err)
			return
		}
	}
}
