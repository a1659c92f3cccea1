package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecritic/codecritic/internal/appapi"
	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/jobs"
	"github.com/codecritic/codecritic/internal/kvstore"
	"github.com/codecritic/codecritic/internal/prompt"
)

// chunkReader yields one canned chunk per Read call, so the orchestrator
// observes the same chunk boundaries the network produced.
type chunkReader struct {
	chunks []string
	pos    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	r.pos++
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

type fakeAPI struct {
	chunks  []string
	err     error
	gotReq  appapi.AIReviewRequest
	started chan struct{} // closed when the stream request arrives, if set
	release chan struct{} // blocks the response until closed, if set
}

func (f *fakeAPI) StreamAIReview(_ context.Context, req appapi.AIReviewRequest) (io.ReadCloser, error) {
	f.gotReq = req
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &chunkReader{chunks: f.chunks}, nil
}

type fakeLocal struct {
	updates []string
	final   string
	err     error
}

func (f *fakeLocal) Chat(_ context.Context, _ string, _ catalog.ChatModelID, onUpdate func(string)) (string, error) {
	for _, u := range f.updates {
		onUpdate(u)
	}
	return f.final, f.err
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []jobs.PersistJob
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job jobs.PersistJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeDispatcher) Stop() {}

type harness struct {
	api         *fakeAPI
	local       *fakeLocal
	dispatcher  *fakeDispatcher
	store       *kvstore.Memory
	notices     []string
	displayed   []string
	navigations []string
	invalidated int
}

func newHarness(t *testing.T) (*Orchestrator, *harness) {
	t.Helper()
	mgr, err := prompt.NewManager()
	require.NoError(t, err)

	h := &harness{
		api:        &fakeAPI{},
		local:      &fakeLocal{},
		dispatcher: &fakeDispatcher{},
		store:      kvstore.NewMemory(),
	}

	o := NewOrchestrator(Options{
		API:               h.api,
		Local:             h.local,
		Prompts:           mgr,
		Persister:         h.dispatcher,
		Store:             h.store,
		Logger:            slog.New(slog.DiscardHandler),
		Notify:            func(msg string) { h.notices = append(h.notices, msg) },
		OnReviewChanged:   func(text string) { h.displayed = append(h.displayed, text) },
		OnNavigate:        func(id string) { h.navigations = append(h.navigations, id) },
		InvalidateHistory: func() { h.invalidated++ },
	})
	return o, h
}

func TestSubmit_OnlineAppendsChunksInOrder(t *testing.T) {
	o, h := newHarness(t)
	h.api.chunks = []string{"## Review\n", "Looks ", "good."}
	o.SetCode("print('hi')")

	require.NoError(t, o.Submit(context.Background()))

	text, has := o.ReviewText()
	assert.True(t, has)
	assert.Equal(t, "## Review\nLooks good.", text)

	// Displayed states: cleared, then one append per chunk.
	assert.Equal(t, []string{"", "## Review\n", "## Review\nLooks ", "## Review\nLooks good."}, h.displayed)

	assert.Equal(t, "print('hi')", h.api.gotReq.Code)
	assert.Equal(t, catalog.DefaultChatModelID, h.api.gotReq.ModelID)
	require.Len(t, h.navigations, 1)
	assert.Equal(t, h.navigations[0], h.api.gotReq.ID)

	assert.True(t, o.Ready())
	assert.Equal(t, 1, h.invalidated)
	assert.Empty(t, h.notices)
	assert.Empty(t, h.dispatcher.jobs, "online path persists server-side")
}

func TestSubmit_OnlineAPIErrorNotifiesDetailedMessage(t *testing.T) {
	o, h := newHarness(t)
	h.api.err = apperr.New(apperr.CodeUnauthorized)

	err := o.Submit(context.Background())
	require.Error(t, err)

	require.Len(t, h.notices, 1)
	assert.Contains(t, h.notices[0], "You need to sign in")

	// Readiness restored and history invalidated even on failure.
	assert.True(t, o.Ready())
	assert.Equal(t, 1, h.invalidated)
}

func TestSubmit_LocalReplacesAndPersists(t *testing.T) {
	o, h := newHarness(t)
	require.NoError(t, o.SelectModel(catalog.ModelTinySwallow))
	require.NoError(t, o.SelectLanguage(catalog.LangJavaScript))
	o.SetCode("const x = 1;")

	h.local.updates = []string{"Loading model...", "Nice", "Nice code."}
	h.local.final = "Nice code."

	require.NoError(t, o.Submit(context.Background()))

	text, _ := o.ReviewText()
	assert.Equal(t, "Nice code.", text)
	// Replace semantics: each displayed state is the latest cumulative text.
	assert.Equal(t, []string{"", "Loading model...", "Nice", "Nice code."}, h.displayed)

	require.Len(t, h.dispatcher.jobs, 1)
	job := h.dispatcher.jobs[0]
	assert.Equal(t, o.ReviewID(), job.Params.ID)
	assert.Equal(t, backend.CreateReviewParams{
		ID:          o.ReviewID(),
		Code:        "const x = 1;",
		ChatModelID: catalog.ModelTinySwallow,
		Language:    catalog.LangJavaScript,
		Review:      "Nice code.",
	}, job.Params)
}

func TestSubmit_LocalErrorNotifiesRawMessage(t *testing.T) {
	o, h := newHarness(t)
	require.NoError(t, o.SelectModel(catalog.ModelLlama32))
	h.local.err = fmt.Errorf("failed to generate response: oom")

	err := o.Submit(context.Background())
	require.Error(t, err)

	require.Len(t, h.notices, 1)
	assert.Equal(t, "failed to generate response: oom", h.notices[0])
	assert.True(t, o.Ready())
	assert.Empty(t, h.dispatcher.jobs)
}

func TestSubmit_RejectsReentrant(t *testing.T) {
	o, h := newHarness(t)
	h.api.started = make(chan struct{})
	h.api.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- o.Submit(context.Background()) }()

	<-h.api.started
	assert.False(t, o.Ready())
	assert.ErrorIs(t, o.Submit(context.Background()), ErrSubmissionInFlight)

	close(h.api.release)
	require.NoError(t, <-done)
	assert.True(t, o.Ready())
}

func TestSubmit_GeneratesFreshIDAndClearsReview(t *testing.T) {
	o, h := newHarness(t)
	h.api.chunks = []string{"first"}
	require.NoError(t, o.Submit(context.Background()))
	firstID := o.ReviewID()

	h.api.chunks = []string{"second"}
	h.displayed = nil
	require.NoError(t, o.Submit(context.Background()))

	assert.NotEqual(t, firstID, o.ReviewID())
	assert.Equal(t, "", h.displayed[0], "review cleared before new content")
	text, _ := o.ReviewText()
	assert.Equal(t, "second", text)
}

func TestSelectionPersistedAndRestored(t *testing.T) {
	o, h := newHarness(t)
	require.NoError(t, o.SelectModel(catalog.ModelTinySwallow))
	require.NoError(t, o.SelectLanguage(catalog.LangJavaScript))

	restored := NewOrchestrator(Options{Store: h.store})
	assert.Equal(t, catalog.ModelTinySwallow, restored.Model())
	assert.Equal(t, catalog.LangJavaScript, restored.Language())
}

func TestSelection_RejectsUnknownIDs(t *testing.T) {
	o, _ := newHarness(t)
	assert.Error(t, o.SelectModel("gpt-999"))
	assert.Error(t, o.SelectLanguage("fortran"))
	assert.Equal(t, catalog.DefaultChatModelID, o.Model())
}

func TestNewOrchestrator_IgnoresInvalidStoredSelection(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(catalog.KeyChatModelID, "withdrawn-model"))

	o := NewOrchestrator(Options{Store: store})
	assert.Equal(t, catalog.DefaultChatModelID, o.Model())
}

func TestSubmit_StreamInterruptedMidway(t *testing.T) {
	o, h := newHarness(t)
	// An error after partial content: partial text is kept, error notified.
	o.opts.API = &streamAPI{stream: &erroringReader{
		data: "partial ",
		err:  fmt.Errorf("connection reset"),
	}}

	err := o.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review stream interrupted")
	require.Len(t, h.notices, 1)

	text, _ := o.ReviewText()
	assert.Equal(t, "partial ", text)
	assert.True(t, o.Ready())
}

type erroringReader struct {
	data string
	err  error
	done bool
}

func (r *erroringReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

func (r *erroringReader) Close() error { return nil }

type streamAPI struct {
	stream io.ReadCloser
}

func (s *streamAPI) StreamAIReview(context.Context, appapi.AIReviewRequest) (io.ReadCloser, error) {
	return s.stream, nil
}

func TestSubmit_PersistDispatchFailureDoesNotFailSubmit(t *testing.T) {
	o, h := newHarness(t)
	require.NoError(t, o.SelectModel(catalog.ModelTinySwallow))
	h.local.final = "done"
	h.dispatcher.err = fmt.Errorf("queue full")

	require.NoError(t, o.Submit(context.Background()))
	assert.Empty(t, h.notices)
}
