// Package llm provides local model inference: an Engine abstraction over
// the model runtime and an Adapter exposing the single chat operation the
// review flow uses.
package llm

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
)

// Engine runs a model runtime. Reload swaps the loaded model; StreamChat
// runs one streaming completion against the currently loaded model.
type Engine interface {
	// Reload loads modelID, reporting human-readable progress through
	// progress. It may take a long time on first load.
	Reload(ctx context.Context, modelID catalog.ChatModelID, progress func(text string)) error
	// StreamChat sends prompt as a single user message and invokes onDelta
	// for every incremental content chunk, in order. It returns once the
	// stream ends.
	StreamChat(ctx context.Context, prompt string, onDelta func(delta string)) error
}

// ollamaEngine is an Engine backed by a local Ollama runtime.
type ollamaEngine struct {
	host   string
	logger *slog.Logger
	model  llms.Model
}

// NewOllamaEngine creates an Engine talking to the Ollama server at host.
func NewOllamaEngine(host string, logger *slog.Logger) Engine {
	return &ollamaEngine{host: host, logger: logger}
}

// newOllamaHTTPClient builds an HTTP client with generous timeouts; local
// inference on modest hardware is slow.
func newOllamaHTTPClient() *http.Client {
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

func (e *ollamaEngine) Reload(ctx context.Context, modelID catalog.ChatModelID, progress func(string)) error {
	progress(fmt.Sprintf("Loading model %s...", modelID))

	model, err := ollama.New(
		ollama.WithServerURL(e.host),
		ollama.WithModel(string(modelID)),
		ollama.WithHTTPClient(newOllamaHTTPClient()),
		ollama.WithLogger(e.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to ollama at %s: %w", e.host, err)
	}

	// A tiny completion forces the runtime to page the model in, so the
	// first real request is not charged the load time.
	if _, err := model.Call(ctx, "ok"); err != nil {
		return fmt.Errorf("model %s did not come up: %w", modelID, err)
	}

	e.model = model
	progress(fmt.Sprintf("Model %s ready.", modelID))
	return nil
}

func (e *ollamaEngine) StreamChat(ctx context.Context, prompt string, onDelta func(string)) error {
	if e.model == nil {
		return fmt.Errorf("no model loaded")
	}

	_, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onDelta(string(chunk))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("streaming completion failed: %w", err)
	}
	return nil
}
