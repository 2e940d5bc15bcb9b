// Package domain defines the ingestion vocabulary: tasks, metric kinds,
// measurement records, and credentials.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metric enumerates the supported intraday measurement kinds. The set is
// closed: each variant maps to its own record shape and Postgres table.
type Metric string

const (
	MetricStep      Metric = "step"
	MetricCalorie   Metric = "calorie"
	MetricDistance  Metric = "distance"
	MetricElevation Metric = "elevation"
	MetricFloor     Metric = "floor"
)

// Metrics lists every supported metric kind.
var Metrics = []Metric{MetricStep, MetricCalorie, MetricDistance, MetricElevation, MetricFloor}

// ParseMetric maps a user-supplied name onto a Metric.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case MetricStep:
		return MetricStep, nil
	case MetricCalorie:
		return MetricCalorie, nil
	case MetricDistance:
		return MetricDistance, nil
	case MetricElevation:
		return MetricElevation, nil
	case MetricFloor:
		return MetricFloor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Resource returns the provider's activity resource path segment for the
// metric.
func (m Metric) Resource() string {
	switch m {
	case MetricStep:
		return "steps"
	case MetricCalorie:
		return "calories"
	case MetricDistance:
		return "distance"
	case MetricElevation:
		return "elevation"
	case MetricFloor:
		return "floors"
	default:
		return string(m)
	}
}

// Step is one per-minute step-count datapoint.
type Step struct {
	Time   time.Time
	UserID uuid.UUID
	Source string
	Count  int
}

// Calorie is one per-minute calorie datapoint with the provider's activity
// level and METs value.
type Calorie struct {
	Time   time.Time
	UserID uuid.UUID
	Source string
	Count  float64
	Level  int
	METs   int
}

// Distance is one per-minute distance datapoint.
type Distance struct {
	Time   time.Time
	UserID uuid.UUID
	Source string
	Count  float64
}

// Elevation is one per-minute elevation datapoint.
type Elevation struct {
	Time   time.Time
	UserID uuid.UUID
	Source string
	Count  float64
}

// Floor is one per-minute floors-climbed datapoint.
type Floor struct {
	Time   time.Time
	UserID uuid.UUID
	Source string
	Count  int
}

// Batch holds one day's normalized records for exactly one metric kind; only
// the slice matching the requested metric is populated, mirroring the
// provider's response envelope.
type Batch struct {
	Steps      []Step
	Calories   []Calorie
	Distances  []Distance
	Elevations []Elevation
	Floors     []Floor
}

// Len returns the total number of records across all kinds.
func (b Batch) Len() int {
	return len(b.Steps) + len(b.Calories) + len(b.Distances) + len(b.Elevations) + len(b.Floors)
}

// IsEmpty reports whether the batch holds no records.
func (b Batch) IsEmpty() bool {
	return b.Len() == 0
}
