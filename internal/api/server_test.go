package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/localstore"
	"github.com/pders01/reviewq/internal/queue"
)

var fixedNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type failingBackend struct {
	err error
}

func (f failingBackend) Search(context.Context, content.SearchRequest) (*content.SearchResponse, error) {
	return nil, f.err
}

func (f failingBackend) Retire(context.Context, string) error {
	return f.err
}

func seededBackend(t *testing.T) *localstore.Backend {
	t.Helper()

	b, err := localstore.Open(config.LocalConfig{Path: localstore.MemoryPath, Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	items := []content.Item{
		{Identifier: "do_1", Name: "Algebra I", PrimaryCategory: "Course", Status: "Review", MimeType: "application/vnd.ekstep.content-collection", LastUpdatedOn: "2025-01-10T11:00:00.000+0000"},
		{Identifier: "do_2", Name: "Fractions", PrimaryCategory: "Learning Resource", Status: "FlagReview", MimeType: "application/pdf", LastUpdatedOn: "2025-01-09T12:00:00.000+0000"},
		{Identifier: "do_3", Name: "Published", PrimaryCategory: "Course", Status: "Live", MimeType: "application/pdf"},
	}
	for i := 0; i < 10; i++ {
		items = append(items, content.Item{
			Identifier:      "do_bulk_" + string(rune('a'+i)),
			Name:            "Geometry " + string(rune('A'+i)),
			PrimaryCategory: "Learning Resource",
			Status:          "Review",
			MimeType:        "video/mp4",
			LastUpdatedOn:   "2024-12-01T10:00:00.000+0000",
		})
	}

	_, err = b.Seed(&content.SearchResponse{
		Content: items,
		QuestionSet: []content.Item{
			{Identifier: "do_q1", Name: "Algebra Quiz", PrimaryCategory: "Practice Question Set", Status: "Review", MimeType: "application/vnd.sunbird.questionset", LastUpdatedOn: "2025-01-08T12:00:00.000+0000"},
		},
	})
	require.NoError(t, err)
	return b
}

func newTestHandler(t *testing.T, backend interface {
	queue.Querier
	queue.Deleter
}, logger *zap.Logger) http.Handler {
	t.Helper()

	cfg := config.TestConfig()
	router, err := queue.NewRouter(cfg.Routes)
	require.NoError(t, err)

	return NewRouter(cfg, Deps{
		Querier: backend,
		Deleter: backend,
		Router:  router,
		Logger:  logger,
		Version: "1.2.3",
		Now:     func() time.Time { return fixedNow },
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeQueue(t *testing.T, rec *httptest.ResponseRecorder) queueResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out queueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListQueue(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	out := decodeQueue(t, do(t, h, http.MethodGet, "/api/v1/queue", ""))

	assert.Equal(t, 13, out.TotalCount, "the Live item is excluded")
	assert.Equal(t, 2, out.PageCount)
	assert.True(t, out.ShowPagination)
	assert.Equal(t, "Last Updated", out.Sort)
	assert.Equal(t, []string{}, out.Categories)
	require.Len(t, out.Rows, 10)
	assert.Equal(t, "do_1", out.Rows[0].Identifier)
	assert.Equal(t, "1 hour ago", out.Rows[0].LastUpdated)
	assert.Equal(t, "2025-01-10T11:00:00Z", out.Rows[0].LastUpdatedOn)
}

func TestListQueueQueryParameters(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	tests := []struct {
		name    string
		target  string
		wantIDs []string
		check   func(t *testing.T, out queueResponse)
	}{
		{
			name:    "search is lowercased and matches question sets",
			target:  "/api/v1/queue?q=ALGEBRA",
			wantIDs: []string{"do_1", "do_q1"},
			check: func(t *testing.T, out queueResponse) {
				assert.Equal(t, "algebra", out.Query)
				assert.True(t, out.Rows[1].QuestionSet)
				assert.False(t, out.ShowPagination)
			},
		},
		{
			name:    "category filter",
			target:  "/api/v1/queue?category=Course",
			wantIDs: []string{"do_1"},
		},
		{
			name:    "created on sorts ascending",
			target:  "/api/v1/queue?q=algebra&sort=created",
			wantIDs: []string{"do_1", "do_q1"},
			check: func(t *testing.T, out queueResponse) {
				assert.Equal(t, "Created On", out.Sort)
			},
		},
		{
			name:    "second page",
			target:  "/api/v1/queue?page=1",
			wantIDs: []string{"do_bulk_h", "do_bulk_i", "do_bulk_j"},
			check: func(t *testing.T, out queueResponse) {
				assert.Equal(t, 1, out.Page)
			},
		},
		{
			name:    "repeated and comma separated categories",
			target:  "/api/v1/queue?category=Course&category=Practice%20Question%20Set,Course",
			wantIDs: []string{"do_1", "do_q1"},
			check: func(t *testing.T, out queueResponse) {
				assert.Equal(t, []string{"Course", "Practice Question Set"}, out.Categories)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := decodeQueue(t, do(t, h, http.MethodGet, tt.target, ""))
			var ids []string
			for _, row := range out.Rows {
				ids = append(ids, row.Identifier)
			}
			assert.Equal(t, tt.wantIDs, ids)
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestListQueueBadRequest(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	for _, target := range []string{
		"/api/v1/queue?page=-1",
		"/api/v1/queue?page=two",
		"/api/v1/queue?sort=title",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListQueueUpstreamFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := newTestHandler(t, failingBackend{err: &content.APIError{Op: "search", StatusCode: 500}}, zap.New(core))

	rec := do(t, h, http.MethodGet, "/api/v1/queue", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Error, "HTTP 500")
	assert.NotEmpty(t, out.RequestID)

	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestRouteItem(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	rec := do(t, h, http.MethodPost, "/api/v1/queue/route", `{"identifier":"do_q1","mimeType":"application/vnd.sunbird.questionset"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "question_set", out["class"])
	assert.Equal(t, "/editor", out["path"])
	assert.Equal(t, "review", out["mode"])
	assert.Equal(t, "http://editor.test/editor?identifier=do_q1&mode=review", out["url"])
}

func TestRouteItemErrors(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unsupported media type", `{"identifier":"do_1","mimeType":"image/png"}`, http.StatusUnprocessableEntity},
		{"missing media type", `{"identifier":"do_1"}`, http.StatusUnprocessableEntity},
		{"bad identifier", `{"identifier":"../etc","mimeType":"application/pdf"}`, http.StatusBadRequest},
		{"malformed body", `{"identifier":`, http.StatusBadRequest},
		{"unknown field", `{"identifier":"do_1","mime":"application/pdf"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/queue/route", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRetireItem(t *testing.T) {
	backend := seededBackend(t)
	h := newTestHandler(t, backend, nil)

	rec := do(t, h, http.MethodDelete, "/api/v1/queue/do_2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	out := decodeQueue(t, do(t, h, http.MethodGet, "/api/v1/queue?category=Learning%20Resource", ""))
	assert.Equal(t, 10, out.TotalCount)
	for _, row := range out.Rows {
		assert.NotEqual(t, "do_2", row.Identifier)
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/queue/do_2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "retiring twice")

	rec = do(t, h, http.MethodDelete, "/api/v1/queue/do_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetireItemUpstreamFailure(t *testing.T) {
	h := newTestHandler(t, failingBackend{err: errors.New("connection reset")}, nil)

	rec := do(t, h, http.MethodDelete, "/api/v1/queue/do_1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestHandler(t, seededBackend(t), nil)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, config.BackendLocal, health.Backend)
	assert.NotEmpty(t, health.SeededAt)

	do(t, h, http.MethodGet, "/api/v1/queue", "")

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "reviewq_queue_fetches_total")
	assert.Contains(t, body, `reviewq_http_requests_total{method="GET",route="/api/v1/queue`)
}

func TestHealthzWithoutSeedReporter(t *testing.T) {
	h := newTestHandler(t, failingBackend{err: errors.New("unused")}, nil)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Empty(t, health.SeededAt)
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := newTestHandler(t, seededBackend(t), zap.New(core))

	do(t, h, http.MethodGet, "/healthz", "")

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/healthz", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
