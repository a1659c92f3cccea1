package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecritic/codecritic/internal/apperr"
	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/session"
)

type fakeReviewService struct {
	createErr   error
	created     *backend.CreateReviewParams
	streamBody  string
	streamErr   error
	streamed    *backend.CreateAIReviewParams
	getErr      error
	gotID       string
	found       *core.Review
	deleteErr   error
	deletedID   string
	listErr     error
	listed      *backend.ListReviewsParams
	page        *core.HistoryPage
	tokensSeen  []string
}

func (f *fakeReviewService) CreateReview(_ context.Context, token string, params backend.CreateReviewParams) (*core.Review, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	f.created = &params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &core.Review{
		ID:          params.ID,
		Code:        params.Code,
		Review:      params.Review,
		ChatModelID: params.ChatModelID,
		Language:    params.Language,
		CreatedAt:   time.Now(),
	}, nil
}

func (f *fakeReviewService) CreateReviewWithAI(_ context.Context, token string, params backend.CreateAIReviewParams) (io.ReadCloser, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	f.streamed = &params
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.streamBody)), nil
}

func (f *fakeReviewService) GetReview(_ context.Context, token, id string) (*core.Review, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	f.gotID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.found != nil {
		return f.found, nil
	}
	return &core.Review{ID: id}, nil
}

func (f *fakeReviewService) DeleteReview(_ context.Context, token, id string) error {
	f.tokensSeen = append(f.tokensSeen, token)
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeReviewService) ListReviews(_ context.Context, token string, params backend.ListReviewsParams) (*core.HistoryPage, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	f.listed = &params
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.page != nil {
		return f.page, nil
	}
	return &core.HistoryPage{Reviews: []core.Review{}}, nil
}

func newReviewHandler(svc *fakeReviewService) *ReviewHandler {
	return NewReviewHandler(svc, slog.New(slog.DiscardHandler))
}

func withSession(r *http.Request) *http.Request {
	return r.WithContext(session.NewContext(r.Context(), &session.Session{
		UserID:      "user-1",
		UserType:    session.UserTypeRegular,
		AccessToken: "backend-token",
	}))
}

func decodeEnvelope(t *testing.T, res *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	return env.ErrorCode, env.Message
}

const reviewID = "8b8f1f7e-1111-4222-8333-444455556666"

const validReviewBody = `{
	"id": "` + reviewID + `",
	"code": "print('hi')",
	"review": "LGTM",
	"modelId": "gpt-4o-mini",
	"languageType": "python"
}`

const validAIBody = `{"id":"` + reviewID + `","code":"x=1","modelId":"gpt-4o-mini","languageType":"python"}`

func TestCreate_Saves(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(validReviewBody)))
	res := httptest.NewRecorder()
	h.Create(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "LGTM", svc.created.Review)
	assert.Equal(t, []string{"backend-token"}, svc.tokensSeen)
}

func TestCreate_ValidationBeforeSession(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	// No session on the request: the malformed body must still win.
	req := httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(`{"id":""}`))
	res := httptest.NewRecorder()
	h.Create(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	code, _ := decodeEnvelope(t, res)
	assert.Equal(t, "VALIDATION_ERROR", code)
	assert.Nil(t, svc.created)
}

func TestCreate_RequiresSession(t *testing.T) {
	h := newReviewHandler(&fakeReviewService{})

	req := httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(validReviewBody))
	res := httptest.NewRecorder()
	h.Create(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	code, _ := decodeEnvelope(t, res)
	assert.Equal(t, "UNAUTHORIZED", code)
}

func TestCreateAI_StreamsPlainText(t *testing.T) {
	svc := &fakeReviewService{streamBody: "## Review\nLooks good."}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/review/ai", strings.NewReader(validAIBody)))
	res := httptest.NewRecorder()
	h.CreateAI(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/plain", res.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", res.Header().Get("Cache-Control"))
	assert.Equal(t, "## Review\nLooks good.", res.Body.String())
	assert.True(t, res.Flushed)

	require.NotNil(t, svc.streamed)
	assert.Equal(t, reviewID, svc.streamed.ID)
}

func TestCreateAI_MapsUpstreamError(t *testing.T) {
	svc := &fakeReviewService{streamErr: apperr.New(apperr.CodeForbidden)}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/review/ai", strings.NewReader(validAIBody)))
	res := httptest.NewRecorder()
	h.CreateAI(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	code, _ := decodeEnvelope(t, res)
	assert.Equal(t, "FORBIDDEN", code)
}

func TestCreateAI_RejectsUnknownModel(t *testing.T) {
	h := newReviewHandler(&fakeReviewService{})

	body := `{"id":"` + reviewID + `","code":"x=1","modelId":"gpt-99","languageType":"python"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/review/ai", strings.NewReader(body)))
	res := httptest.NewRecorder()
	h.CreateAI(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestCreate_RejectsNonUUIDID(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	body := `{"id":"r1","code":"x=1","review":"ok","modelId":"gpt-4o-mini","languageType":"python"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(body)))
	res := httptest.NewRecorder()
	h.Create(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	code, msg := decodeEnvelope(t, res)
	assert.Equal(t, "VALIDATION_ERROR", code)
	assert.Contains(t, msg, "UUID")
	assert.Nil(t, svc.created)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGet_ReturnsReview(t *testing.T) {
	svc := &fakeReviewService{found: &core.Review{ID: reviewID, Review: "LGTM"}}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/review/"+reviewID, nil))
	req = withURLParam(req, "id", reviewID)
	res := httptest.NewRecorder()
	h.Get(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, reviewID, svc.gotID)
	assert.Equal(t, []string{"backend-token"}, svc.tokensSeen)

	var out core.Review
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "LGTM", out.Review)
}

func TestGet_RequiresSession(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/review/"+reviewID, nil), "id", reviewID)
	res := httptest.NewRecorder()
	h.Get(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, svc.gotID)
}

func TestGet_MapsNotFound(t *testing.T) {
	svc := &fakeReviewService{getErr: apperr.New(apperr.CodeNotFound)}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/review/"+reviewID, nil))
	req = withURLParam(req, "id", reviewID)
	res := httptest.NewRecorder()
	h.Get(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
	code, _ := decodeEnvelope(t, res)
	assert.Equal(t, "NOT_FOUND", code)
}

func TestDelete_RequiresID(t *testing.T) {
	h := newReviewHandler(&fakeReviewService{})

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/review", nil))
	res := httptest.NewRecorder()
	h.Delete(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDelete_Forwards(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/review?id=r42", nil))
	res := httptest.NewRecorder()
	h.Delete(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":200}`, res.Body.String())
	assert.Equal(t, "r42", svc.deletedID)
}

func TestDelete_NotOwnerMapsForbidden(t *testing.T) {
	svc := &fakeReviewService{deleteErr: apperr.New(apperr.CodeForbidden)}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/review?id=r42", nil))
	res := httptest.NewRecorder()
	h.Delete(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestHistory_DefaultsLimit(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	res := httptest.NewRecorder()
	h.History(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, svc.listed)
	assert.Equal(t, 10, svc.listed.Limit)
}

func TestHistory_BothCursorsRejectedBeforeSession(t *testing.T) {
	svc := &fakeReviewService{}
	h := newReviewHandler(svc)

	// Anonymous request: the cursor conflict must be reported, not 401.
	req := httptest.NewRequest(http.MethodGet, "/api/history?starting_after=a&ending_before=b", nil)
	res := httptest.NewRecorder()
	h.History(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	code, msg := decodeEnvelope(t, res)
	assert.Equal(t, "VALIDATION_ERROR", code)
	assert.Contains(t, msg, "starting_after")
	assert.Nil(t, svc.listed)
}

func TestHistory_ForwardsCursor(t *testing.T) {
	svc := &fakeReviewService{page: &core.HistoryPage{HasMore: true}}
	h := newReviewHandler(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/history?limit=20&ending_before=r9", nil))
	res := httptest.NewRecorder()
	h.History(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 20, svc.listed.Limit)
	assert.Equal(t, "r9", svc.listed.EndingBefore)

	var page struct {
		HasMore bool `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &page))
	assert.True(t, page.HasMore)
}

func TestHistory_BadLimitFallsBackToDefault(t *testing.T) {
	for _, limit := range []string{"0", "-1", "ten"} {
		svc := &fakeReviewService{}
		h := newReviewHandler(svc)

		req := withSession(httptest.NewRequest(http.MethodGet, "/api/history?limit="+limit, nil))
		res := httptest.NewRecorder()
		h.History(res, req)

		require.Equal(t, http.StatusOK, res.Code, "limit=%s", limit)
		require.NotNil(t, svc.listed, "limit=%s", limit)
		assert.Equal(t, 10, svc.listed.Limit, "limit=%s", limit)
	}
}
