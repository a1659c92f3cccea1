package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/codecritic/codecritic/internal/catalog"
)

// Adapter owns the local inference engine and exposes the single chat
// operation the review flow needs. It lazily (re)loads a model on demand
// and streams cumulative completions to a callback.
//
// Callers only ever receive the full-so-far text, never a raw delta, so
// displaying a response is always "replace the shown text".
type Adapter struct {
	mu          sync.Mutex
	engine      Engine
	logger      *slog.Logger
	initialized bool
	loadedModel catalog.ChatModelID
}

// NewAdapter creates an Adapter over the given engine.
func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	return &Adapter{engine: engine, logger: logger}
}

// Chat runs one chat completion for prompt against modelID. If the engine
// has no model loaded, or a different one, it reloads first, forwarding
// loading-progress text to onUpdate. During generation onUpdate receives
// the cumulative response text after every delta. The final cumulative
// text is returned.
//
// Calls are serialized per adapter; the engine holds exactly one model and
// a concurrent reload would invalidate it under an in-flight generation.
func (a *Adapter) Chat(ctx context.Context, prompt string, modelID catalog.ChatModelID, onUpdate func(text string)) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized || a.loadedModel != modelID {
		if err := a.engine.Reload(ctx, modelID, onUpdate); err != nil {
			// Leave the adapter unloaded; the next call retries the load.
			a.initialized = false
			a.loadedModel = ""
			return "", fmt.Errorf("failed to initialize model: %w", err)
		}
		a.initialized = true
		a.loadedModel = modelID
		a.logger.Info("local model loaded", "model", modelID)
	}

	var content strings.Builder
	err := a.engine.StreamChat(ctx, prompt, func(delta string) {
		if delta == "" {
			return
		}
		content.WriteString(delta)
		onUpdate(content.String())
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return content.String(), nil
}
