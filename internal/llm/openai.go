/*
Package llm provides the production Generator implementation backing call
synthesis.

It speaks the OpenAI chat-completions protocol, which also covers
llama.cpp, vLLM, Ollama and other self-hosted servers exposing a
compatible endpoint.
*/
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// defaultMaxTokens bounds a call descriptor response; descriptors are
	// small JSON objects, not essays.
	defaultMaxTokens = 1024

	// defaultTemperature keeps endpoint selection near-deterministic.
	defaultTemperature = 0.1
)

// Options configures the OpenAI-compatible client.
type Options struct {
	// BaseURL of the chat-completions server. Empty means api.openai.com.
	BaseURL string

	// APIKey for the server. May be empty for local servers.
	APIKey string

	// Model is the model identifier to request.
	Model string
}

// Client implements synth.Generator over an OpenAI-compatible API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a chat-completions generator.
func NewClient(opts Options) (*Client, error) {
	if opts.Model == "" {
		return nil, errors.New("llm model is required")
	}

	var clientOpts []option.RequestOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Client{
		client: openai.NewClient(clientOpts...),
		model:  opts.Model,
	}, nil
}

// Generate sends the prompt as a single user message and returns the raw
// completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(defaultMaxTokens),
		Temperature: openai.Float(defaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("empty completion")
	}

	return completion.Choices[0].Message.Content, nil
}
