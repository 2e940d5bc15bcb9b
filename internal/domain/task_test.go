package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDateAddDaysCrossesBoundaries(t *testing.T) {
	cases := []struct {
		name string
		start   Date
		days int
		want Date
	}{
		{"same month", NewDate(2024, time.January, 1), 2, NewDate(2024, time.January, 3)},
		{"month boundary", NewDate(2024, time.January, 31), 1, NewDate(2024, time.February, 1)},
		{"leap day", NewDate(2024, time.February, 28), 1, NewDate(2024, time.February, 29)},
		{"year boundary", NewDate(2023, time.December, 31), 1, NewDate(2024, time.January, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.start.AddDays(tc.days))
		})
	}
}

func TestDateStringAndParseRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	require.Equal(t, "2024-03-05", d.String())

	parsed, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	require.Equal(t, d, parsed)

	_, err = ParseDate("03/05/2024")
	require.Error(t, err)
}

func TestTaskQueuePayloadRoundTrip(t *testing.T) {
	task := NewBulkIngest(uuid.New(), "fitbit", MetricStep, NewDate(2024, time.January, 1), 3)

	payload, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded Task
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, task, decoded)
}

func TestTaskValidate(t *testing.T) {
	userID := uuid.New()

	t.Run("valid ingest day", func(t *testing.T) {
		require.NoError(t, NewIngestDay(userID, "fitbit", MetricStep, NewDate(2024, time.January, 1)).Validate())
	})

	t.Run("zero day bulk is valid", func(t *testing.T) {
		require.NoError(t, NewBulkIngest(userID, "fitbit", MetricFloor, NewDate(2024, time.January, 1), 0).Validate())
	})

	t.Run("negative num days", func(t *testing.T) {
		task := NewBulkIngest(userID, "fitbit", MetricStep, NewDate(2024, time.January, 1), -1)
		require.Error(t, task.Validate())
	})

	t.Run("missing date", func(t *testing.T) {
		task := NewIngestDay(userID, "fitbit", MetricStep, Date{})
		require.Error(t, task.Validate())
	})

	t.Run("unknown metric", func(t *testing.T) {
		task := NewIngestDay(userID, "fitbit", Metric("heartrate"), NewDate(2024, time.January, 1))
		require.ErrorIs(t, task.Validate(), ErrUnknownMetric)
	})

	t.Run("unknown type", func(t *testing.T) {
		task := Task{ID: uuid.New(), UserID: userID, Type: "reindex", Metric: MetricStep}
		require.Error(t, task.Validate())
	})
}

func TestParseMetric(t *testing.T) {
	for _, m := range Metrics {
		parsed, err := ParseMetric(string(m))
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}

	parsed, err := ParseMetric(" Step ")
	require.NoError(t, err)
	require.Equal(t, MetricStep, parsed)

	_, err = ParseMetric("mood")
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMetricResource(t *testing.T) {
	require.Equal(t, "steps", MetricStep.Resource())
	require.Equal(t, "calories", MetricCalorie.Resource())
	require.Equal(t, "distance", MetricDistance.Resource())
	require.Equal(t, "elevation", MetricElevation.Resource())
	require.Equal(t, "floors", MetricFloor.Resource())
}
