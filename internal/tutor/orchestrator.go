// Package tutor turns learner chat turns into model calls and stored exchanges.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/freetalk/internal/domain"
)

const (
	// MaxMessageLength is the longest accepted learner message, in characters.
	MaxMessageLength = 4000
	// MaxSpeechLength is the longest text sent to speech synthesis; longer
	// text is truncated.
	MaxSpeechLength = 2000
)

var (
	// ErrMessageTooLong is returned when a trimmed message exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("message too long")
	// ErrSessionExpired is returned when the session id is unknown or has expired.
	ErrSessionExpired = errors.New("session expired, create a new session")
	// ErrEmptyText is returned when speech is requested for blank text.
	ErrEmptyText = errors.New("text is required")
	// ErrGeneration wraps a failure of the reply generator.
	ErrGeneration = errors.New("chat error")
	// ErrSynthesis wraps a failure of the speech synthesizer.
	ErrSynthesis = errors.New("tts error")
)

// Sessions is the session state the orchestrator works against.
// *session.Store implements it.
type Sessions interface {
	Create() string
	Get(id string) (domain.Session, bool)
	AddMessage(id string, role domain.Role, content string) (domain.Turn, bool)
	History(id string) []domain.Message
	MarkGreeted(id string) bool
	Len() int
}

// Generator produces a reply for a message list.
type Generator interface {
	Complete(ctx context.Context, msgs []domain.Message) (string, error)
}

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Recorder archives stored turns. Recorder failures never fail a request.
type Recorder interface {
	RecordTurn(ctx context.Context, sessionID string, turn domain.Turn) error
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Text         string `json:"reply"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// Orchestrator handles chat turns against a session store.
type Orchestrator struct {
	store       Sessions
	generator   Generator
	synthesizer Synthesizer
	recorder    Recorder
	logger      *slog.Logger
}

// NewOrchestrator creates an orchestrator. recorder may be nil.
func NewOrchestrator(store Sessions, generator Generator, synthesizer Synthesizer, recorder Recorder, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       store,
		generator:   generator,
		synthesizer: synthesizer,
		recorder:    recorder,
		logger:      logger,
	}
}

// NewSession creates an empty session and returns its id.
func (o *Orchestrator) NewSession() string {
	id := o.store.Create()
	o.logger.Info("Session created", "session_id", id)
	return id
}

// ActiveSessions returns the number of sessions held by the store.
func (o *Orchestrator) ActiveSessions() int {
	return o.store.Len()
}

// Chat handles one learner turn. An empty sessionID starts a new session.
// The first turn of a session always returns the greeting without calling
// the generator, and the triggering message is not stored.
func (o *Orchestrator) Chat(ctx context.Context, userMessage, sessionID string) (Reply, error) {
	msg := strings.TrimSpace(userMessage)
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return Reply{}, ErrMessageTooLong
	}

	if sessionID == "" {
		sessionID = o.NewSession()
	}
	sess, ok := o.store.Get(sessionID)
	if !ok {
		return Reply{}, ErrSessionExpired
	}

	if !sess.Metadata.Greeted {
		if !o.store.MarkGreeted(sessionID) {
			return Reply{}, ErrSessionExpired
		}
		o.appendTurn(ctx, sessionID, domain.RoleAssistant, Greeting)
		o.logger.Info("Greeting sent", "session_id", sessionID)
		return Reply{Text: Greeting, SessionID: sessionID, MessageCount: 1}, nil
	}

	prompt := BuildPrompt(o.store.History(sessionID), msg)

	o.logger.Info("Chat request",
		"session_id", sessionID,
		"message_length", utf8.RuneCountInString(msg),
		"prompt_messages", len(prompt),
	)

	reply, err := o.generator.Complete(ctx, prompt)
	if err != nil {
		o.logger.Error("Chat generation failed", "session_id", sessionID, "error", err)
		return Reply{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	o.appendTurn(ctx, sessionID, domain.RoleUser, msg)
	o.appendTurn(ctx, sessionID, domain.RoleAssistant, reply)

	count := 0
	if updated, ok := o.store.Get(sessionID); ok {
		count = len(updated.History)
	}

	return Reply{Text: reply, SessionID: sessionID, MessageCount: count}, nil
}

// Speak synthesizes speech for text, truncating it to MaxSpeechLength
// characters.
func (o *Orchestrator) Speak(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	text = truncateRunes(text, MaxSpeechLength)

	audio, err := o.synthesizer.Synthesize(ctx, text)
	if err != nil {
		o.logger.Error("Speech synthesis failed", "text_length", len(text), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return audio, nil
}

func (o *Orchestrator) appendTurn(ctx context.Context, sessionID string, role domain.Role, content string) {
	turn, ok := o.store.AddMessage(sessionID, role, content)
	if !ok {
		o.logger.Warn("Session vanished before turn was stored", "session_id", sessionID, "role", role)
		return
	}
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordTurn(ctx, sessionID, turn); err != nil {
		o.logger.Warn("failed to record transcript turn", "session_id", sessionID, "error", err)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
