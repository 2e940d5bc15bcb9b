package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/jchen1/qs/internal/auth"
	"github.com/jchen1/qs/internal/domain"
	"github.com/jchen1/qs/internal/queue"
)

type captureQueue struct {
	mu    sync.Mutex
	tasks []domain.Task
}

func (q *captureQueue) Push(ctx context.Context, task domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *captureQueue) Pop(ctx context.Context, timeout time.Duration) (queue.Lease, error) {
	return nil, nil
}

func newTestRouter(q *captureQueue) *mux.Router {
	router := mux.NewRouter()
	NewHandler(q, time.UTC).RegisterRoutes(router)
	return router
}

func postGraphQL(t *testing.T, router *mux.Router, claims *auth.Claims, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(payload))
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func ingestClaims(userID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		Subject:   userID.String(),
		Scopes:    map[string]struct{}{auth.ScopeIngestWrite: {}},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) (map[string]any, []any) {
	t.Helper()
	var parsed struct {
		Data   map[string]any `json:"data"`
		Errors []any          `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed.Data, parsed.Errors
}

func TestIngestMeasurementSingleDay(t *testing.T) {
	q := &captureQueue{}
	router := newTestRouter(q)
	userID := uuid.New()

	rec := postGraphQL(t, router, ingestClaims(userID), map[string]any{
		"query": `mutation IngestMeasurement($service: String!, $metric: String!, $date: String) {
			ingestMeasurement(service: $service, metric: $metric, date: $date) { taskId state }
		}`,
		"operationName": "IngestMeasurement",
		"variables": map[string]any{
			"service": "fitbit",
			"metric":  "step",
			"date":    "2024-01-01",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	data, gqlErrors := decodeResponse(t, rec)
	require.Empty(t, gqlErrors)

	result, ok := data["ingestMeasurement"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "queued", result["state"])
	require.Equal(t, "ingest_day", result["type"])

	require.Len(t, q.tasks, 1)
	task := q.tasks[0]
	require.Equal(t, domain.TaskIngestDay, task.Type)
	require.Equal(t, userID, task.UserID)
	require.Equal(t, domain.MetricStep, task.Metric)
	require.Equal(t, "2024-01-01", task.Date.String())
}

func TestIngestMeasurementBulk(t *testing.T) {
	q := &captureQueue{}
	router := newTestRouter(q)

	rec := postGraphQL(t, router, ingestClaims(uuid.New()), map[string]any{
		"query": `mutation { ingestMeasurement(service: "fitbit", metric: "calorie", date: "2024-01-01", numDays: 7) { taskId } }`,
		"variables": map[string]any{
			"service": "fitbit",
			"metric":  "calorie",
			"date":    "2024-01-01",
			"numDays": 7,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	_, gqlErrors := decodeResponse(t, rec)
	require.Empty(t, gqlErrors)

	require.Len(t, q.tasks, 1)
	task := q.tasks[0]
	require.Equal(t, domain.TaskBulkIngest, task.Type)
	require.Equal(t, "2024-01-01", task.StartDate.String())
	require.Equal(t, 7, task.NumDays)
}

func TestIngestMeasurementValidation(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]any
	}{
		{"unsupported service", map[string]any{"service": "garmin", "metric": "step"}},
		{"unknown metric", map[string]any{"service": "fitbit", "metric": "pulse"}},
		{"malformed date", map[string]any{"service": "fitbit", "metric": "step", "date": "01/02/2024"}},
		{"negative numDays", map[string]any{"service": "fitbit", "metric": "step", "numDays": -2}},
		{"fractional numDays", map[string]any{"service": "fitbit", "metric": "step", "numDays": 1.5}},
		{"missing service", map[string]any{"metric": "step"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &captureQueue{}
			router := newTestRouter(q)

			rec := postGraphQL(t, router, ingestClaims(uuid.New()), map[string]any{
				"operationName": "IngestMeasurement",
				"query":         "mutation IngestMeasurement { ingestMeasurement }",
				"variables":     tc.vars,
			})

			require.Equal(t, http.StatusOK, rec.Code)
			_, gqlErrors := decodeResponse(t, rec)
			require.NotEmpty(t, gqlErrors)
			require.Empty(t, q.tasks)
		})
	}
}

func TestIngestMeasurementRequiresScope(t *testing.T) {
	q := &captureQueue{}
	router := newTestRouter(q)

	claims := &auth.Claims{Subject: uuid.NewString(), Scopes: map[string]struct{}{}}
	rec := postGraphQL(t, router, claims, map[string]any{
		"operationName": "IngestMeasurement",
		"query":         "mutation IngestMeasurement { ingestMeasurement }",
		"variables":     map[string]any{"service": "fitbit", "metric": "step"},
	})

	_, gqlErrors := decodeResponse(t, rec)
	require.NotEmpty(t, gqlErrors)
	require.Empty(t, q.tasks)
}

func TestIngestMeasurementRequiresClaims(t *testing.T) {
	q := &captureQueue{}
	router := newTestRouter(q)

	rec := postGraphQL(t, router, nil, map[string]any{
		"operationName": "IngestMeasurement",
		"query":         "mutation IngestMeasurement { ingestMeasurement }",
		"variables":     map[string]any{"service": "fitbit", "metric": "step"},
	})

	_, gqlErrors := decodeResponse(t, rec)
	require.NotEmpty(t, gqlErrors)
	require.Empty(t, q.tasks)
}

func TestUnsupportedOperation(t *testing.T) {
	router := newTestRouter(&captureQueue{})

	rec := postGraphQL(t, router, ingestClaims(uuid.New()), map[string]any{
		"query": "query { whoami }",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	_, gqlErrors := decodeResponse(t, rec)
	require.NotEmpty(t, gqlErrors)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&captureQueue{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
