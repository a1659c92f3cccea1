package jobs

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/core"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []backend.CreateReviewParams
	block chan struct{}
}

func (s *recordingSaver) CreateReview(_ context.Context, _ string, params backend.CreateReviewParams) (*core.Review, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, params)
	return &core.Review{ID: params.ID}, nil
}

func (s *recordingSaver) savedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.saved))
	for i, p := range s.saved {
		ids[i] = p.ID
	}
	return ids
}

func TestDispatchAndStopDrains(t *testing.T) {
	saver := &recordingSaver{}
	d := NewDispatcher(saver, 2, slog.New(slog.DiscardHandler))

	for _, id := range []string{"rev-1", "rev-2", "rev-3"} {
		require.NoError(t, d.Dispatch(context.Background(), PersistJob{
			Token:  "tok",
			Params: backend.CreateReviewParams{ID: id},
		}))
	}

	d.Stop()
	assert.ElementsMatch(t, []string{"rev-1", "rev-2", "rev-3"}, saver.savedIDs())
}

func TestDispatch_QueueFull(t *testing.T) {
	saver := &recordingSaver{block: make(chan struct{})}
	d := NewDispatcher(saver, 1, slog.New(slog.DiscardHandler))

	// One job occupies the worker, the rest fill the buffered queue.
	var err error
	for i := 0; i < 102; i++ {
		err = d.Dispatch(context.Background(), PersistJob{Params: backend.CreateReviewParams{ID: "r"}})
		if err != nil {
			break
		}
	}
	assert.Error(t, err, "a full queue must reject new jobs")

	close(saver.block)
	d.Stop()
}

func TestDefaultsToOneWorker(t *testing.T) {
	saver := &recordingSaver{}
	d := NewDispatcher(saver, 0, slog.New(slog.DiscardHandler))

	require.NoError(t, d.Dispatch(context.Background(), PersistJob{Params: backend.CreateReviewParams{ID: "rev-x"}}))

	deadline := time.After(2 * time.Second)
	for len(saver.savedIDs()) == 0 {
		select {
		case <-deadline:
			t.Fatal("job was never processed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	d.Stop()
}
