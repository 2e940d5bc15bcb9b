package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jchen1/qs/internal/domain"
	"github.com/jchen1/qs/internal/fitbit"
	"github.com/jchen1/qs/internal/observability"
	"github.com/jchen1/qs/internal/queue"
)

// CredentialSource supplies a currently-valid credential for a user and
// provider, refreshing if needed.
type CredentialSource interface {
	Access(ctx context.Context, userID uuid.UUID, provider string) (*domain.Credential, error)
}

// IntradayFetcher retrieves one day's raw samples for a metric.
type IntradayFetcher interface {
	IntradayForDay(ctx context.Context, metric domain.Metric, day domain.Date, accessToken string) ([]fitbit.RawSample, error)
}

// MeasurementStore persists one day's normalized batch.
type MeasurementStore interface {
	InsertBatch(ctx context.Context, batch domain.Batch) (int, error)
}

// Ingestor dispatches tasks by variant: bulk tasks fan out into daily tasks
// re-enqueued on the queue, daily tasks run the refresh/fetch/normalize/
// persist pipeline.
type Ingestor struct {
	queue       queue.Queue
	credentials CredentialSource
	fetcher     IntradayFetcher
	store       MeasurementStore
	defaultZone *time.Location
	logger      *log.Logger
}

// NewIngestor constructs an Ingestor. defaultZone is used when a credential
// carries no timezone of its own.
func NewIngestor(q queue.Queue, credentials CredentialSource, fetcher IntradayFetcher, store MeasurementStore, defaultZone *time.Location, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		queue:       q,
		credentials: credentials,
		fetcher:     fetcher,
		store:       store,
		defaultZone: defaultZone,
		logger:      log.New(log.Writer(), "[ingest] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestorOption configures optional behaviour for the Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestorLogger overrides the ingestor's logger.
func WithIngestorLogger(logger *log.Logger) IngestorOption {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// Handle routes one task to its variant handler.
func (i *Ingestor) Handle(ctx context.Context, task domain.Task) error {
	switch task.Type {
	case domain.TaskIngestDay:
		return i.ingestDay(ctx, task)
	case domain.TaskBulkIngest:
		return i.fanOut(ctx, task)
	default:
		return fmt.Errorf("task %s: unknown type %q", task.ID, task.Type)
	}
}

// fanOut expands a bulk task into one fresh daily task per offset day. A
// push failure stops the expansion and fails the bulk task; sub-tasks
// already enqueued stay valid, so the operator only re-submits the missing
// range.
func (i *Ingestor) fanOut(ctx context.Context, task domain.Task) error {
	for day := 0; day < task.NumDays; day++ {
		sub := domain.NewIngestDay(task.UserID, task.Service, task.Metric, task.StartDate.AddDays(day))
		if err := i.queue.Push(ctx, sub); err != nil {
			observability.RecordFanOut(day)
			return fmt.Errorf("task %s: enqueue day %s (%d of %d): %w", task.ID, sub.Date, day+1, task.NumDays, err)
		}
	}
	observability.RecordFanOut(task.NumDays)
	return nil
}

// ingestDay runs the full daily pipeline. Individual samples that fail
// normalization are dropped with a warning; the task only fails when the
// credential, the fetch, or the batch insert fails.
func (i *Ingestor) ingestDay(ctx context.Context, task domain.Task) error {
	cred, err := i.credentials.Access(ctx, task.UserID, task.Service)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.ID, err)
	}

	samples, err := i.fetcher.IntradayForDay(ctx, task.Metric, task.Date, cred.AccessToken)
	if err != nil {
		return fmt.Errorf("task %s: fetch %s for %s: %w", task.ID, task.Metric, task.Date, err)
	}

	batch, dropped := fitbit.Normalize(task.Metric, task.UserID, task.Date, i.zoneFor(cred), samples)
	for _, dropErr := range dropped {
		observability.RecordSampleDropped(task.Metric)
		i.logger.Printf("task %s: dropping sample: %v", task.ID, dropErr)
	}

	inserted, err := i.store.InsertBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("task %s: persist %s batch for %s: %w", task.ID, task.Metric, task.Date, err)
	}

	i.logger.Printf("task %s: persisted %d of %d %s records for %s", task.ID, inserted, batch.Len(), task.Metric, task.Date)
	return nil
}

func (i *Ingestor) zoneFor(cred *domain.Credential) *time.Location {
	if cred.Timezone == "" {
		return i.defaultZone
	}
	loc, err := time.LoadLocation(cred.Timezone)
	if err != nil {
		i.logger.Printf("invalid timezone %q for user %s, using default: %v", cred.Timezone, cred.UserID, err)
		return i.defaultZone
	}
	return loc
}
