package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TaskType tags the two task variants carried on the queue.
type TaskType string

const (
	// TaskIngestDay pulls one metric for one calendar day.
	TaskIngestDay TaskType = "ingest_day"
	// TaskBulkIngest fans out into NumDays TaskIngestDay tasks.
	TaskBulkIngest TaskType = "bulk_ingest"
)

// Task is one unit of ingestion work. It is serialized onto the queue as
// JSON; Date applies to ingest_day tasks, StartDate/NumDays to bulk_ingest.
type Task struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      TaskType  `json:"type"`
	Service   string    `json:"service"`
	Metric    Metric    `json:"metric"`
	Date      Date      `json:"date"`
	StartDate Date      `json:"start_date"`
	NumDays   int       `json:"num_days"`
}

// NewIngestDay builds a single-day ingestion task with a fresh id.
func NewIngestDay(userID uuid.UUID, service string, metric Metric, date Date) Task {
	return Task{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    TaskIngestDay,
		Service: service,
		Metric:  metric,
		Date:    date,
	}
}

// NewBulkIngest builds a multi-day ingestion task with a fresh id.
func NewBulkIngest(userID uuid.UUID, service string, metric Metric, start Date, numDays int) Task {
	return Task{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      TaskBulkIngest,
		Service:   service,
		Metric:    metric,
		StartDate: start,
		NumDays:   numDays,
	}
}

// Validate checks structural invariants before a task is enqueued or
// dispatched.
func (t Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("task missing id")
	}
	if t.UserID == uuid.Nil {
		return fmt.Errorf("task %s missing user id", t.ID)
	}
	if _, err := ParseMetric(string(t.Metric)); err != nil {
		return err
	}
	switch t.Type {
	case TaskIngestDay:
		if t.Date.IsZero() {
			return fmt.Errorf("task %s missing date", t.ID)
		}
	case TaskBulkIngest:
		if t.StartDate.IsZero() {
			return fmt.Errorf("task %s missing start date", t.ID)
		}
		if t.NumDays < 0 {
			return fmt.Errorf("task %s: num_days must be non-negative, got %d", t.ID, t.NumDays)
		}
	default:
		return fmt.Errorf("task %s: unknown type %q", t.ID, t.Type)
	}
	return nil
}
