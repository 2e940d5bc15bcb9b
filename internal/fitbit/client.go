// Package fitbit integrates with the Fitbit Web API: intraday activity
// fetches, wall-clock normalization, and OAuth token refresh.
package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jchen1/qs/internal/domain"
)

// DefaultAPIURL is the production Fitbit API base.
const DefaultAPIURL = "https://api.fitbit.com"

// SampleKind tags the three raw sample shapes the intraday API returns.
type SampleKind int

const (
	// SampleIntegral carries a whole-number value (steps, floors).
	SampleIntegral SampleKind = iota
	// SampleFloat carries a fractional value (distance, elevation).
	SampleFloat
	// SampleCaloric carries a fractional value plus activity level and METs.
	SampleCaloric
)

// RawSample is one decoded per-minute datapoint as the provider reports it:
// a local wall-clock time string and a numeric value. It is consumed
// immediately by normalization.
type RawSample struct {
	TimeOfDay  string
	Kind       SampleKind
	IntValue   int
	FloatValue float64
	Level      int
	METs       int
}

type integralEntry struct {
	Time  string `json:"time"`
	Value int    `json:"value"`
}

type floatEntry struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type caloricEntry struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
	Level int     `json:"level"`
	METs  int     `json:"mets"`
}

type integralDataset struct {
	Dataset []integralEntry `json:"dataset"`
}

type floatDataset struct {
	Dataset []floatEntry `json:"dataset"`
}

type caloricDataset struct {
	Dataset []caloricEntry `json:"dataset"`
}

// intradayResponse is the shared response envelope. The API populates
// exactly one dataset field per request, matching the resource in the URL.
type intradayResponse struct {
	StepsIntraday     *integralDataset `json:"activities-steps-intraday"`
	CaloriesIntraday  *caloricDataset  `json:"activities-calories-intraday"`
	DistanceIntraday  *floatDataset    `json:"activities-distance-intraday"`
	ElevationIntraday *floatDataset    `json:"activities-elevation-intraday"`
	FloorsIntraday    *integralDataset `json:"activities-floors-intraday"`
}

// samples extracts the dataset matching metric into the provider-neutral
// RawSample shape. A missing dataset yields nil, not an error.
func (r intradayResponse) samples(metric domain.Metric) []RawSample {
	switch metric {
	case domain.MetricStep:
		if r.StepsIntraday == nil {
			return nil
		}
		out := make([]RawSample, 0, len(r.StepsIntraday.Dataset))
		for _, e := range r.StepsIntraday.Dataset {
			out = append(out, RawSample{TimeOfDay: e.Time, Kind: SampleIntegral, IntValue: e.Value})
		}
		return out
	case domain.MetricFloor:
		if r.FloorsIntraday == nil {
			return nil
		}
		out := make([]RawSample, 0, len(r.FloorsIntraday.Dataset))
		for _, e := range r.FloorsIntraday.Dataset {
			out = append(out, RawSample{TimeOfDay: e.Time, Kind: SampleIntegral, IntValue: e.Value})
		}
		return out
	case domain.MetricDistance:
		if r.DistanceIntraday == nil {
			return nil
		}
		out := make([]RawSample, 0, len(r.DistanceIntraday.Dataset))
		for _, e := range r.DistanceIntraday.Dataset {
			out = append(out, RawSample{TimeOfDay: e.Time, Kind: SampleFloat, FloatValue: e.Value})
		}
		return out
	case domain.MetricElevation:
		if r.ElevationIntraday == nil {
			return nil
		}
		out := make([]RawSample, 0, len(r.ElevationIntraday.Dataset))
		for _, e := range r.ElevationIntraday.Dataset {
			out = append(out, RawSample{TimeOfDay: e.Time, Kind: SampleFloat, FloatValue: e.Value})
		}
		return out
	case domain.MetricCalorie:
		if r.CaloriesIntraday == nil {
			return nil
		}
		out := make([]RawSample, 0, len(r.CaloriesIntraday.Dataset))
		for _, e := range r.CaloriesIntraday.Dataset {
			out = append(out, RawSample{TimeOfDay: e.Time, Kind: SampleCaloric, FloatValue: e.Value, Level: e.Level, METs: e.METs})
		}
		return out
	default:
		return nil
	}
}

// Client fetches intraday activity datasets with a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient constructs a Client against baseURL (tests point it at a stub
// server; production uses DefaultAPIURL).
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// IntradayForDay issues one authenticated GET for (metric, day) and decodes
// the envelope. A day the provider has no data for returns an empty slice.
func (c *Client) IntradayForDay(ctx context.Context, metric domain.Metric, day domain.Date, accessToken string) ([]RawSample, error) {
	endpoint := fmt.Sprintf("%s/1/user/-/activities/%s/date/%s/1d/1min/time/00:00/23:59.json",
		c.baseURL, metric.Resource(), day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fitbit intraday request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fitbit intraday request: unexpected status %d", resp.StatusCode)
	}

	var envelope intradayResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode fitbit intraday response: %w", err)
	}

	return envelope.samples(metric), nil
}
