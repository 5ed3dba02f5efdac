package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
)

// Nutrition metric names summed per day by the analytics queries.
const (
	MetricDietaryEnergy = "dietary_energy"
	MetricProtein       = "protein"
	MetricCarbohydrates = "carbohydrates"
	MetricTotalFat      = "total_fat"
	MetricFiber         = "fiber"
	MetricWater         = "dietary_water"
	MetricBodyMass      = "body_mass"
	MetricSleepAnalysis = "sleep_analysis"
)

// NutritionMetrics lists the metrics reported by the nutrition summary.
var NutritionMetrics = []string{
	MetricDietaryEnergy,
	MetricProtein,
	MetricCarbohydrates,
	MetricTotalFat,
	MetricFiber,
	MetricWater,
}

var allowedMetrics = map[string]bool{
	MetricDietaryEnergy: true,
	MetricProtein:       true,
	MetricCarbohydrates: true,
	MetricTotalFat:      true,
	MetricFiber:         true,
	MetricWater:         true,
	MetricBodyMass:      true,
	MetricActiveEnergy:  true,
}

// IsMetricAllowed reports whether samples named name are stored.
func IsMetricAllowed(name string) bool {
	return allowedMetrics[name]
}

// Ingester stores samples pushed by the device health bridge.
type Ingester struct {
	store Store
	log   *slog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(store Store, log *slog.Logger) *Ingester {
	return &Ingester{store: store, log: log}
}

// Ingest stores allowed metric samples and sleep nights. Unknown metrics are
// rejected by name; the rest of the payload is still stored.
func (in *Ingester) Ingest(ctx context.Context, payload *models.SamplesPayload) (*ingest.Result, error) {
	result := &ingest.Result{}

	var rows []models.HealthMetricRow
	rejected := map[string]bool{}
	for _, m := range payload.Metrics {
		if !IsMetricAllowed(m.Name) {
			if !rejected[m.Name] {
				result.RejectedNames = append(result.RejectedNames, m.Name)
				rejected[m.Name] = true
			}
			result.MetricsRejected += len(m.Data)
			continue
		}
		for _, dp := range m.Data {
			result.MetricsReceived++
			if dp.Date.IsZero() {
				result.AddError(fmt.Sprintf("%s: sample without date", m.Name))
				continue
			}
			source := dp.Source
			if source == "" {
				source = "health bridge"
			}
			rows = append(rows, models.HealthMetricRow{
				Time:       dp.Date.Time,
				MetricName: m.Name,
				Source:     source,
				Units:      m.Units,
				Qty:        dp.Qty,
			})
		}
	}

	for _, night := range payload.Sleep {
		date, err := time.Parse(models.SampleDateOnlyLayout, night.Date)
		if err != nil {
			in.log.Warn("skipping sleep: bad date", "date", night.Date, "error", err)
			result.AddError(fmt.Sprintf("sleep: bad date %q", night.Date))
			continue
		}
		row := models.SleepSessionRow{
			Date:       date,
			TotalSleep: night.TotalSleep,
			Core:       night.Core,
			Deep:       night.Deep,
			REM:        night.REM,
			InBed:      night.InBed,
			SleepStart: night.SleepStart.Time,
			SleepEnd:   night.SleepEnd.Time,
		}
		if err := in.store.InsertSleepSession(ctx, row); err != nil {
			return result, fmt.Errorf("inserting sleep session %s: %w", night.Date, err)
		}
		result.SleepSessionsInserted++

		// Mirrored into health_metrics so sleep can be charted next to nutrition.
		rows = append(rows, models.HealthMetricRow{
			Time:       night.SleepEnd.Time,
			MetricName: MetricSleepAnalysis,
			Source:     "health bridge",
			Units:      "hr",
			Qty:        night.TotalSleep,
		})
	}

	if len(rows) > 0 {
		inserted, err := in.store.InsertHealthMetrics(ctx, rows)
		if err != nil {
			return result, fmt.Errorf("inserting health metrics: %w", err)
		}
		result.MetricsInserted = inserted
		result.MetricsSkipped = int64(len(rows)) - inserted
	}

	if len(result.RejectedNames) > 0 {
		result.Message = fmt.Sprintf("some metrics were rejected because they are not tracked: %v", result.RejectedNames)
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result, nil
}
