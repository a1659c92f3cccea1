// Package generator produces code reviews with the backend's hosted LLM.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/config"
	"github.com/codecritic/codecritic/internal/prompt"
)

// Generator runs one streaming review generation. onChunk receives every
// content chunk in order; the returned string is the complete review.
type Generator interface {
	Review(ctx context.Context, code string, language catalog.LanguageID, onChunk func(chunk string)) (string, error)
}

type ollamaGenerator struct {
	model   llms.Model
	prompts *prompt.Manager
	logger  *slog.Logger
}

// NewOllama creates a Generator backed by the Ollama model named in cfg.
func NewOllama(cfg *config.AIConfig, prompts *prompt.Manager, logger *slog.Logger) (Generator, error) {
	model, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaHost),
		ollama.WithModel(cfg.GeneratorModel),
		ollama.WithHTTPClient(newHTTPClient()),
		ollama.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ollama at %s: %w", cfg.OllamaHost, err)
	}

	return &ollamaGenerator{model: model, prompts: prompts, logger: logger}, nil
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   15 * time.Minute,
	}
}

func (g *ollamaGenerator) Review(ctx context.Context, code string, language catalog.LanguageID, onChunk func(string)) (string, error) {
	p, err := g.prompts.CodeReview(code, language)
	if err != nil {
		return "", err
	}

	start := time.Now()
	review, err := llms.GenerateFromSinglePrompt(ctx, g.model, p,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onChunk(string(chunk))
			return nil
		}),
	)
	if err != nil {
		return "", fmt.Errorf("review generation failed: %w", err)
	}

	g.logger.Info("review generated",
		"language", language,
		"duration", time.Since(start),
		"length", len(review),
	)
	return review, nil
}
