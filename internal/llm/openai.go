// Package llm wraps the OpenAI chat completion and speech APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/freetalk/internal/domain"
	ai "github.com/sashabaranov/go-openai"
)

var errNoChoices = errors.New("completion returned no choices")

// Config holds OpenAI client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	Temperature float32
	TTSModel    string
	Voice       string
}

// OpenAIClient implements text generation and speech synthesis.
type OpenAIClient struct {
	client *ai.Client
	cfg    Config
}

// NewOpenAIClient creates a client for the given configuration.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	clientCfg := ai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: ai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Complete sends msgs to the chat completion endpoint and returns the reply
// text of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, msgs []domain.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, ai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    MessagesToOpenAI(msgs),
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	slog.Debug("Chat completion finished",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

// Synthesize converts text to MP3 audio.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, ai.CreateSpeechRequest{
		Model:          ai.SpeechModel(c.cfg.TTSModel),
		Input:          text,
		Voice:          ai.SpeechVoice(c.cfg.Voice),
		ResponseFormat: ai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer func() {
		if closeErr := resp.Close(); closeErr != nil {
			slog.Debug("failed to close speech response", "error", closeErr)
		}
	}()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return audio, nil
}

// MessagesToOpenAI converts domain messages to the OpenAI wire format.
func MessagesToOpenAI(msgs []domain.Message) []ai.ChatCompletionMessage {
	result := make([]ai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		result[i] = ai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return result
}
