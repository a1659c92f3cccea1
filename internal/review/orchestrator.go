// Package review coordinates the full "submit code, get review" cycle. The
// Orchestrator owns the transient submission state and routes each
// submission either through the hosted-API path (server-sent byte stream)
// or the local-inference path (adapter-streamed tokens).
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/codecritic/codecritic/internal/appapi"
	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/jobs"
	"github.com/codecritic/codecritic/internal/kvstore"
	"github.com/codecritic/codecritic/internal/prompt"
)

// ErrSubmissionInFlight is returned when Submit is called while a previous
// submission is still running. Submissions are never queued or raced.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// API is the slice of the application server the orchestrator talks to.
// *appapi.Client satisfies it.
type API interface {
	StreamAIReview(ctx context.Context, req appapi.AIReviewRequest) (io.ReadCloser, error)
}

// LocalChat runs a completion on the local inference adapter.
// *llm.Adapter satisfies it.
type LocalChat interface {
	Chat(ctx context.Context, prompt string, modelID catalog.ChatModelID, onUpdate func(text string)) (string, error)
}

// Options wires an Orchestrator. Notify, OnReviewChanged, OnNavigate and
// InvalidateHistory may be nil.
type Options struct {
	API       API
	Local     LocalChat
	Prompts   *prompt.Manager
	Persister jobs.Dispatcher
	Store     kvstore.Store
	Logger    *slog.Logger

	// Notify surfaces an error as a transient user-facing notification.
	Notify func(message string)
	// OnReviewChanged receives the full review text whenever it changes.
	OnReviewChanged func(text string)
	// OnNavigate receives the review id a reload could recover from.
	OnNavigate func(id string)
	// InvalidateHistory is called after every submission, success or not.
	InvalidateHistory func()
}

// Orchestrator owns one editor's submission state. Methods are safe for
// concurrent use, but only one submission runs at a time.
type Orchestrator struct {
	opts  Options
	ready atomic.Bool

	mu       sync.Mutex
	code     string
	text     string
	hasText  bool // false until first content arrives
	modelID  catalog.ChatModelID
	language catalog.LanguageID
	reviewID string
}

// NewOrchestrator creates an Orchestrator with the default model and
// language, overridden by any selection persisted in opts.Store.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		opts:     opts,
		modelID:  catalog.DefaultChatModelID,
		language: catalog.DefaultLanguageID,
	}
	o.ready.Store(true)

	if opts.Store != nil {
		if v, ok := opts.Store.Get(catalog.KeyChatModelID); ok {
			if id := catalog.ChatModelID(v); id.Valid() {
				o.modelID = id
			}
		}
		if v, ok := opts.Store.Get(catalog.KeyLanguageID); ok {
			if id := catalog.LanguageID(v); id.Valid() {
				o.language = id
			}
		}
	}
	return o
}

// SetCode replaces the editor contents.
func (o *Orchestrator) SetCode(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.code = code
}

// SelectModel switches the chat model and persists the selection.
func (o *Orchestrator) SelectModel(id catalog.ChatModelID) error {
	if !id.Valid() {
		return fmt.Errorf("unknown chat model %q", id)
	}
	o.mu.Lock()
	o.modelID = id
	o.mu.Unlock()

	if o.opts.Store != nil {
		return o.opts.Store.Set(catalog.KeyChatModelID, string(id))
	}
	return nil
}

// SelectLanguage switches the programming language and persists the
// selection.
func (o *Orchestrator) SelectLanguage(id catalog.LanguageID) error {
	if !id.Valid() {
		return fmt.Errorf("unknown programming language %q", id)
	}
	o.mu.Lock()
	o.language = id
	o.mu.Unlock()

	if o.opts.Store != nil {
		return o.opts.Store.Set(catalog.KeyLanguageID, string(id))
	}
	return nil
}

// Model returns the selected chat model.
func (o *Orchestrator) Model() catalog.ChatModelID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modelID
}

// Language returns the selected programming language.
func (o *Orchestrator) Language() catalog.LanguageID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.language
}

// Ready reports whether a new submission can start.
func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

// ReviewText returns the currently displayed review text and whether any
// content has arrived yet.
func (o *Orchestrator) ReviewText() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text, o.hasText
}

// ReviewID returns the identifier of the current submission, empty before
// the first one.
func (o *Orchestrator) ReviewID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reviewID
}

// Submit runs one full submission cycle for the current editor contents.
// It rejects re-entrant calls with ErrSubmissionInFlight. Whatever
// happens, the readiness flag is restored and the history listing is
// invalidated before it returns.
func (o *Orchestrator) Submit(ctx context.Context) error {
	if !o.ready.CompareAndSwap(true, false) {
		return ErrSubmissionInFlight
	}
	defer func() {
		o.ready.Store(true)
		if o.opts.InvalidateHistory != nil {
			o.opts.InvalidateHistory()
		}
	}()

	id := uuid.NewString()

	o.mu.Lock()
	code := o.code
	modelID := o.modelID
	language := o.language
	o.reviewID = id
	o.text = ""
	o.hasText = false
	o.mu.Unlock()

	if o.opts.OnNavigate != nil {
		o.opts.OnNavigate(id)
	}
	o.publish("")

	model, ok := catalog.ChatModelByID(modelID)
	if !ok {
		err := fmt.Errorf("failed to find chat model %q", modelID)
		o.notifyError(err)
		return err
	}

	var err error
	if model.IsOnline {
		err = o.submitOnline(ctx, id, code, modelID, language)
	} else {
		err = o.submitLocal(ctx, id, code, modelID, language)
	}
	if err != nil {
		o.notifyError(err)
		return err
	}
	return nil
}

// submitOnline sends the code to the hosted-review endpoint and appends
// each received chunk to the displayed review, in receipt order.
func (o *Orchestrator) submitOnline(ctx context.Context, id, code string, modelID catalog.ChatModelID, language catalog.LanguageID) error {
	body, err := o.opts.API.StreamAIReview(ctx, appapi.AIReviewRequest{
		ID:           id,
		Code:         code,
		ModelID:      modelID,
		LanguageType: language,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			o.append(string(buf[:n]))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("review stream interrupted: %w", readErr)
		}
	}
}

// submitLocal runs the review on the local inference adapter, replacing
// the displayed text with every cumulative update, then persists the
// finished review in the background.
func (o *Orchestrator) submitLocal(ctx context.Context, id, code string, modelID catalog.ChatModelID, language catalog.LanguageID) error {
	if o.opts.Local == nil {
		return fmt.Errorf("local inference is not available")
	}

	p, err := o.opts.Prompts.CodeReview(code, language)
	if err != nil {
		return err
	}

	final, err := o.opts.Local.Chat(ctx, p, modelID, func(text string) {
		o.replace(text)
	})
	if err != nil {
		return err
	}

	job := jobs.PersistJob{Params: backend.CreateReviewParams{
		ID:          id,
		Code:        code,
		ChatModelID: modelID,
		Language:    language,
		Review:      final,
	}}
	if dispatchErr := o.opts.Persister.Dispatch(ctx, job); dispatchErr != nil {
		o.opts.Logger.Error("failed to queue review for persistence", "review_id", id, "error", dispatchErr)
	}
	return nil
}

func (o *Orchestrator) append(chunk string) {
	o.mu.Lock()
	o.text += chunk
	o.hasText = true
	text := o.text
	o.mu.Unlock()
	o.publish(text)
}

func (o *Orchestrator) replace(text string) {
	o.mu.Lock()
	o.text = text
	o.hasText = true
	o.mu.Unlock()
	o.publish(text)
}

func (o *Orchestrator) publish(text string) {
	if o.opts.OnReviewChanged != nil {
		o.opts.OnReviewChanged(text)
	}
}

// notifyError surfaces a failure as a notification: the detailed message
// for application errors, the raw message for anything else.
func (o *Orchestrator) notifyError(err error) {
	if o.opts.Notify == nil {
		return
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		o.opts.Notify(appErr.DetailedMessage())
		return
	}
	o.opts.Notify(err.Error())
}
