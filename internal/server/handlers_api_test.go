package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
)

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleSentimentFallsBackToFreshComputation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/sentiment", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 0, snap.Overall.Total)
}

func TestHandleSentimentServesCachedSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)

	cached := domain.Snapshot{Overall: domain.SentimentCounts{Positive: 9, Total: 9}}
	require.NoError(t, srv.snapCache.Put(context.Background(), cached))

	rec := doRequest(t, srv, http.MethodGet, "/api/sentiment", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 9, snap.Overall.Positive)
}

func TestHandleGetComment(t *testing.T) {
	srv, store := newTestServer(t)
	c := seedRawComment(t, store)

	rec := doRequest(t, srv, http.MethodGet, "/api/comments/"+c.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, domain.StatusRaw, got.Status)
}

func TestHandleGetCommentNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/comments/0b2f7a26-93c7-4aee-b2dc-2f5e81a5ac50", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetCommentInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/comments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueueStatus(t *testing.T) {
	srv, store := newTestServer(t)
	seedRawComment(t, store)
	failed := seedRawComment(t, store)
	require.NoError(t, store.MarkFailed(context.Background(), failed.ID, domain.MaxProcessingAttempts, "boom"))

	rec := doRequest(t, srv, http.MethodGet, "/api/queue/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status["raw"])
	assert.Equal(t, 1, status["failed"])
	assert.Equal(t, 0, status["analyzed"])
}

func TestHandleQueueRetryRequeuesFailedComment(t *testing.T) {
	srv, store := newTestServer(t)
	c := seedRawComment(t, store)
	require.NoError(t, store.MarkFailed(context.Background(), c.ID, domain.MaxProcessingAttempts, "boom"))

	rec := doRequest(t, srv, http.MethodPost, "/api/queue/retry/"+c.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRaw, got.Status)
	assert.Equal(t, 0, got.ProcessingAttempts)
}

func TestHandleQueueRetryRejectsNonFailedComment(t *testing.T) {
	srv, store := newTestServer(t)
	c := seedRawComment(t, store)

	rec := doRequest(t, srv, http.MethodPost, "/api/queue/retry/"+c.ID.String(), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleQueueFail(t *testing.T) {
	srv, store := newTestServer(t)
	c := seedRawComment(t, store)

	rec := doRequest(t, srv, http.MethodPost, "/api/queue/fail/"+c.ID.String(), `{"reason": "stuck for days"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.ProcessingError)
	assert.Equal(t, "stuck for days", *got.ProcessingError)
}

func TestHandleQueueFailRejectsTerminalComment(t *testing.T) {
	srv, store := newTestServer(t)
	c := seedRawComment(t, store)
	require.NoError(t, store.MarkFailed(context.Background(), c.ID, domain.MaxProcessingAttempts, "boom"))

	rec := doRequest(t, srv, http.MethodPost, "/api/queue/fail/"+c.ID.String(), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
