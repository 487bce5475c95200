// Package openai adapts the OpenAI API to the text and image backends used
// by the crawler.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/newscrawler/internal/summarize"
)

const DefaultTextModel = "gpt-4o-mini"

// jsonObjectInstruction is appended to the system message in JSON mode, which
// only allows a top-level object.
const jsonObjectInstruction = `Return a single JSON object of the form {"items": [...]} with every result inside "items", even when there is only one.`

// Backend is a summarize.Backend using chat completions.
type Backend struct {
	client *openai.Client
	model  string
}

func NewBackend(apiKey, model string) *Backend {
	return NewBackendWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewBackendWithConfig allows a custom base URL or HTTP client.
func NewBackendWithConfig(cfg openai.ClientConfig, model string) *Backend {
	if model == "" {
		model = DefaultTextModel
	}
	return &Backend{client: openai.NewClientWithConfig(cfg), model: model}
}

func (b *Backend) Generate(ctx context.Context, req summarize.Request) (string, error) {
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n" + jsonObjectInstruction)
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	// No completion cap: a batch of full rewrites must not be cut off before
	// its closing bracket.
	creq := openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ImageGenerator creates news illustrations.
type ImageGenerator struct {
	client *openai.Client
	model  string
}

func NewImageGenerator(apiKey, model string) *ImageGenerator {
	return NewImageGeneratorWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewImageGeneratorWithConfig(cfg openai.ClientConfig, model string) *ImageGenerator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &ImageGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate returns the raw image bytes for prompt. It makes a single attempt.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image in response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return data, nil
}

// IsDefinitive reports whether err means the image model is not available to
// this account at all, so further attempts are pointless.
func IsDefinitive(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return definitiveStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return definitiveStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func definitiveStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusNotFound
}
