package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/freetalk/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		ChatModel:   "gpt-4o-mini",
		Temperature: 0.7,
		TTSModel:    "tts-1",
		Voice:       "alloy",
	})
}

func TestCompleteSendsMessages(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Great! Why?"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	})

	reply, err := client.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "be a tutor"},
		{Role: domain.RoleUser, Content: "I like tea"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Great! Why?" {
		t.Errorf("unexpected reply %q", reply)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", got.Model)
	}
	if got.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "I like tea" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	})

	_, err := client.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected provider message in error, got %q", err.Error())
	}
}

func TestCompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	})

	if _, err := client.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	var got struct {
		Model string `json:"model"`
		Input string `json:"input"`
		Voice string `json:"voice"`
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	})

	audio, err := client.Synthesize(context.Background(), "Hello learner")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "ID3fake-mp3" {
		t.Errorf("unexpected audio %q", audio)
	}
	if got.Model != "tts-1" || got.Voice != "alloy" || got.Input != "Hello learner" {
		t.Errorf("unexpected speech request %+v", got)
	}
}

func TestMessagesToOpenAI(t *testing.T) {
	out := MessagesToOpenAI([]domain.Message{
		{Role: domain.RoleAssistant, Content: "hello"},
	})
	if len(out) != 1 || out[0].Role != "assistant" || out[0].Content != "hello" {
		t.Errorf("unexpected conversion %+v", out)
	}
}
