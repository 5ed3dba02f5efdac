package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts accepted for health bridge timestamps, tried in order.
const (
	SampleTimeLayout     = "2006-01-02 15:04:05 -0700"
	SampleDateOnlyLayout = "2006-01-02"
)

// SampleTime decodes the bridge's "2006-01-02 15:04:05 -0700" timestamps,
// RFC 3339, or a bare date.
type SampleTime struct {
	time.Time
}

func (t *SampleTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.Parse(s)
}

func (t SampleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(SampleTimeLayout))
}

// Parse sets t from s.
func (t *SampleTime) Parse(s string) error {
	var firstErr error
	for _, layout := range []string{SampleTimeLayout, time.RFC3339, SampleDateOnlyLayout} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("cannot parse sample time %q: %w", s, firstErr)
}

// SamplesPayload is a batch pushed by the device health bridge.
type SamplesPayload struct {
	Metrics []MetricSeries `json:"metrics"`
	Sleep   []SleepNight   `json:"sleep"`
}

// MetricSeries is a named metric with its data points.
type MetricSeries struct {
	Name  string        `json:"name"`
	Units string        `json:"units"`
	Data  []MetricPoint `json:"data"`
}

// MetricPoint is one quantity sample.
type MetricPoint struct {
	Date   SampleTime `json:"date"`
	Qty    float64    `json:"qty"`
	Source string     `json:"source,omitempty"`
}

// SleepNight is an aggregated night of sleep. Durations are in hours.
type SleepNight struct {
	Date       string     `json:"date"`
	TotalSleep float64    `json:"totalSleep"`
	Core       float64    `json:"core"`
	Deep       float64    `json:"deep"`
	REM        float64    `json:"rem"`
	InBed      float64    `json:"inBed"`
	SleepStart SampleTime `json:"sleepStart"`
	SleepEnd   SampleTime `json:"sleepEnd"`
}
