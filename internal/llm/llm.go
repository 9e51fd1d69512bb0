// Package llm wraps the text-generation model used to draft book
// structures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultTimeout = 90 * time.Second

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("text generation not configured: set GEMINI_API_KEY or gemini.api_key")

// Request is a single structured-output generation call.
type Request struct {
	Prompt      string
	Temperature float32
	TopP        float32 // 0 leaves the model default
}

// Client generates JSON text from a prompt.
type Client interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
	Name() string
}

// Config describes how to build a client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// New builds a Gemini-backed client.
func New(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiClient{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

type geminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func (g *geminiClient) Name() string { return "gemini:" + g.model }

func (g *geminiClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
	}
	if req.TopP > 0 {
		cfg.TopP = genai.Ptr(req.TopP)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from model")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("model returned no text")
	}
	return b.String(), nil
}

// Func adapts a function to Client.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) GenerateJSON(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
func (f Func) Name() string                                                    { return "func" }
