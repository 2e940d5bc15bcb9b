// Package api exposes the GraphQL-over-HTTP mutation surface that enqueues
// ingestion tasks.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/jchen1/qs/internal/auth"
	"github.com/jchen1/qs/internal/domain"
	"github.com/jchen1/qs/internal/observability"
	"github.com/jchen1/qs/internal/queue"
)

// SupportedService is the only provider tasks can currently target.
const SupportedService = "fitbit"

// Handler serves GraphQL operations backed by the task queue.
type Handler struct {
	queue       queue.Queue
	defaultZone *time.Location
}

// NewHandler builds a Handler. defaultZone supplies "today" when a mutation
// omits its date.
func NewHandler(q queue.Queue, defaultZone *time.Location) *Handler {
	return &Handler{queue: q, defaultZone: defaultZone}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/graphql", h.handleGraphQL).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// graphQLRequest models one GraphQL operation payload.
type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// graphQLResponse is the standard GraphQL response envelope.
type graphQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// graphQLError models one GraphQL error message item.
type graphQLError struct {
	Message string `json:"message"`
}

func (h *Handler) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, graphQLErrorResponse("invalid request body: "+err.Error()))
		return
	}

	result, err := h.execute(r, req)
	if err != nil {
		writeJSON(w, http.StatusOK, graphQLErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, graphQLResponse{Data: result})
}

func (h *Handler) execute(r *http.Request, req graphQLRequest) (map[string]any, error) {
	switch resolveOperation(req) {
	case "ingestMeasurement":
		return h.ingestMeasurement(r, req.Variables)
	default:
		return nil, errors.New("unsupported operation")
	}
}

// ingestMeasurement enqueues a single-day or bulk ingestion task for the
// authenticated user.
func (h *Handler) ingestMeasurement(r *http.Request, vars map[string]any) (map[string]any, error) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, errors.New("not authenticated")
	}
	if !claims.HasScope(auth.ScopeIngestWrite) {
		return nil, errors.New("missing ingest:write scope")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	input, err := parseIngestInput(vars, h.defaultZone)
	if err != nil {
		return nil, err
	}

	var task domain.Task
	if input.numDays == 1 {
		task = domain.NewIngestDay(userID, input.service, input.metric, input.date)
	} else {
		task = domain.NewBulkIngest(userID, input.service, input.metric, input.date, input.numDays)
	}

	if err := h.queue.Push(r.Context(), task); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}
	observability.RecordTaskEnqueued(task.Type)

	return map[string]any{
		"ingestMeasurement": map[string]any{
			"taskId":  task.ID.String(),
			"type":    string(task.Type),
			"service": task.Service,
			"metric":  string(task.Metric),
			"date":    input.date.String(),
			"numDays": input.numDays,
			"state":   "queued",
		},
	}, nil
}

type ingestInput struct {
	service string
	metric  domain.Metric
	date    domain.Date
	numDays int
}

// parseIngestInput validates mutation variables: only the fitbit service is
// supported, the metric must be a known kind, numDays must be non-negative,
// and the date defaults to today in the service's default zone.
func parseIngestInput(vars map[string]any, defaultZone *time.Location) (ingestInput, error) {
	if vars == nil {
		return ingestInput{}, errors.New("variables are required")
	}

	service, _ := vars["service"].(string)
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return ingestInput{}, errors.New("variables.service is required")
	}
	if service != SupportedService {
		return ingestInput{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, service)
	}

	metricName, _ := vars["metric"].(string)
	if strings.TrimSpace(metricName) == "" {
		return ingestInput{}, errors.New("variables.metric is required")
	}
	metric, err := domain.ParseMetric(metricName)
	if err != nil {
		return ingestInput{}, err
	}

	date := domain.DateOf(time.Now().In(defaultZone))
	if rawDate, ok := vars["date"].(string); ok && rawDate != "" {
		date, err = domain.ParseDate(rawDate)
		if err != nil {
			return ingestInput{}, err
		}
	}

	numDays := 1
	if rawDays, ok := vars["numDays"]; ok {
		parsed, ok := rawDays.(float64)
		if !ok || parsed != float64(int(parsed)) {
			return ingestInput{}, errors.New("variables.numDays must be an integer")
		}
		numDays = int(parsed)
		if numDays < 0 {
			return ingestInput{}, fmt.Errorf("variables.numDays must be non-negative, got %d", numDays)
		}
	}

	return ingestInput{service: service, metric: metric, date: date, numDays: numDays}, nil
}

func resolveOperation(req graphQLRequest) string {
	name := strings.TrimSpace(req.OperationName)
	switch name {
	case "IngestMeasurement", "ingestMeasurement":
		return "ingestMeasurement"
	}

	if strings.Contains(strings.ToLower(req.Query), "ingestmeasurement") {
		return "ingestMeasurement"
	}
	return ""
}

func graphQLErrorResponse(message string) graphQLResponse {
	return graphQLResponse{Errors: []graphQLError{{Message: message}}}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
