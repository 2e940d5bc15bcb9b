package fitbit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jchen1/qs/internal/domain"
)

// Source identifies records ingested through this package.
const Source = "fitbit"

// ErrSkippedLocalTime marks a sample whose wall-clock time does not exist in
// the target zone (a spring-forward gap). The sample is dropped; the rest of
// the batch is unaffected.
var ErrSkippedLocalTime = errors.New("local time skipped by DST transition")

// ToUTC resolves the provider's local wall-clock time on day into a UTC
// instant using loc's offset at that calendar moment. Ambiguous times during
// a fall-back transition resolve to the earlier instant; nonexistent times
// return ErrSkippedLocalTime.
func ToUTC(day domain.Date, loc *time.Location, timeOfDay string) (time.Time, error) {
	clock, err := time.Parse("15:04:05", timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", timeOfDay, err)
	}

	local := time.Date(day.Year, day.Month, day.Day, clock.Hour(), clock.Minute(), clock.Second(), 0, loc)

	// time.Date normalizes a nonexistent wall-clock time to the other side
	// of the gap, so a round-trip mismatch means the sample's minute was
	// skipped by the transition.
	if local.Hour() != clock.Hour() || local.Minute() != clock.Minute() || local.Second() != clock.Second() {
		return time.Time{}, fmt.Errorf("%w: %s %s in %s", ErrSkippedLocalTime, day, timeOfDay, loc)
	}

	return local.UTC(), nil
}

// Normalize converts one day's raw samples into typed records for metric.
// Samples that fail time resolution or carry the wrong value shape are
// returned as errors alongside the batch; they never fail the whole day.
func Normalize(metric domain.Metric, userID uuid.UUID, day domain.Date, loc *time.Location, samples []RawSample) (domain.Batch, []error) {
	var batch domain.Batch
	var dropped []error

	for _, sample := range samples {
		ts, err := ToUTC(day, loc, sample.TimeOfDay)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		if err := appendRecord(&batch, metric, userID, ts, sample); err != nil {
			dropped = append(dropped, err)
		}
	}

	return batch, dropped
}

func appendRecord(batch *domain.Batch, metric domain.Metric, userID uuid.UUID, ts time.Time, sample RawSample) error {
	switch metric {
	case domain.MetricStep:
		if sample.Kind != SampleIntegral {
			return wrongKindError(metric, sample)
		}
		batch.Steps = append(batch.Steps, domain.Step{Time: ts, UserID: userID, Source: Source, Count: sample.IntValue})
	case domain.MetricCalorie:
		if sample.Kind != SampleCaloric {
			return wrongKindError(metric, sample)
		}
		batch.Calories = append(batch.Calories, domain.Calorie{Time: ts, UserID: userID, Source: Source, Count: sample.FloatValue, Level: sample.Level, METs: sample.METs})
	case domain.MetricDistance:
		if sample.Kind != SampleFloat {
			return wrongKindError(metric, sample)
		}
		batch.Distances = append(batch.Distances, domain.Distance{Time: ts, UserID: userID, Source: Source, Count: sample.FloatValue})
	case domain.MetricElevation:
		if sample.Kind != SampleFloat {
			return wrongKindError(metric, sample)
		}
		batch.Elevations = append(batch.Elevations, domain.Elevation{Time: ts, UserID: userID, Source: Source, Count: sample.FloatValue})
	case domain.MetricFloor:
		if sample.Kind != SampleIntegral {
			return wrongKindError(metric, sample)
		}
		batch.Floors = append(batch.Floors, domain.Floor{Time: ts, UserID: userID, Source: Source, Count: sample.IntValue})
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownMetric, metric)
	}
	return nil
}

func wrongKindError(metric domain.Metric, sample RawSample) error {
	return fmt.Errorf("sample at %s has wrong value shape for metric %s", sample.TimeOfDay, metric)
}
