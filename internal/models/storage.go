package models

import "time"

// HealthMetricRow is a health sample (nutrition, energy, body metrics) pushed
// by the device health bridge.
type HealthMetricRow struct {
	Time       time.Time `json:"time"`
	MetricName string    `json:"metric_name"`
	Source     string    `json:"source"`
	Units      string    `json:"units"`
	Qty        float64   `json:"qty"`
}

// SleepSessionRow is one night of sleep, keyed by wake-up date.
type SleepSessionRow struct {
	Date       time.Time `json:"date"`
	TotalSleep float64   `json:"total_sleep"`
	Core       float64   `json:"core"`
	Deep       float64   `json:"deep"`
	REM        float64   `json:"rem"`
	InBed      float64   `json:"in_bed"`
	SleepStart time.Time `json:"sleep_start"`
	SleepEnd   time.Time `json:"sleep_end"`
}

// HealthWorkoutRow is a finished workout forwarded to the health store.
type HealthWorkoutRow struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	DurationSec        float64   `json:"duration_sec"`
	ActiveEnergyBurned float64   `json:"active_energy_burned"`
	ActiveEnergyUnits  string    `json:"active_energy_units"`
}
