// Package analytics aggregates stored health and training rows into the
// per-period summaries shown on the dashboard.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// Bucket sizes accepted by the summaries.
const (
	BucketWeek  = "1 week"
	BucketMonth = "1 month"
)

// PeriodStart returns the first day of the week (Monday) or month holding t.
// Unknown buckets are treated as months.
func PeriodStart(t time.Time, bucket string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if bucket == BucketWeek {
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SleepPeriod holds averaged sleep stats for one period.
type SleepPeriod struct {
	Period                   string  `json:"period"`
	Nights                   int     `json:"nights"`
	AvgTotalSleepHr          float64 `json:"avg_total_sleep_hr"`
	AvgDeepHr                float64 `json:"avg_deep_hr"`
	AvgREMHr                 float64 `json:"avg_rem_hr"`
	AvgCoreHr                float64 `json:"avg_core_hr"`
	AvgInBedHr               float64 `json:"avg_in_bed_hr"`
	AvgEfficiencyPct         float64 `json:"avg_efficiency_pct"`
	AvgBedtime               string  `json:"avg_bedtime"`
	AvgWaketime              string  `json:"avg_waketime"`
	BedtimeConsistencyStdHr  float64 `json:"bedtime_consistency_stddev_hr"`
	WaketimeConsistencyStdHr float64 `json:"waketime_consistency_stddev_hr"`
}

// SummarizeSleep groups nights into periods, newest first. Bed and wake
// times are averaged on the 24h circle so 23:00 and 01:00 give 00:00.
func SummarizeSleep(nights []models.SleepSessionRow, bucket string) []SleepPeriod {
	groups := map[string][]models.SleepSessionRow{}
	for _, n := range nights {
		key := PeriodStart(n.Date, bucket).Format("2006-01-02")
		groups[key] = append(groups[key], n)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]SleepPeriod, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		p := SleepPeriod{Period: key, Nights: len(group)}

		var bed, wake []float64
		var efficiency float64
		for _, n := range group {
			p.AvgTotalSleepHr += n.TotalSleep
			p.AvgDeepHr += n.Deep
			p.AvgREMHr += n.REM
			p.AvgCoreHr += n.Core
			p.AvgInBedHr += n.InBed
			if n.InBed > 0 {
				efficiency += n.TotalSleep / n.InBed * 100
			}
			if !n.SleepStart.IsZero() && !n.SleepEnd.IsZero() {
				bed = append(bed, ClockHours(n.SleepStart))
				wake = append(wake, ClockHours(n.SleepEnd))
			}
		}
		count := float64(len(group))
		p.AvgTotalSleepHr = round2(p.AvgTotalSleepHr / count)
		p.AvgDeepHr = round2(p.AvgDeepHr / count)
		p.AvgREMHr = round2(p.AvgREMHr / count)
		p.AvgCoreHr = round2(p.AvgCoreHr / count)
		p.AvgInBedHr = round2(p.AvgInBedHr / count)
		p.AvgEfficiencyPct = round2(efficiency / count)

		if len(bed) > 0 {
			bedMean, bedStd := CircularMean(bed)
			wakeMean, wakeStd := CircularMean(wake)
			p.AvgBedtime = FormatClock(bedMean)
			p.AvgWaketime = FormatClock(wakeMean)
			p.BedtimeConsistencyStdHr = round2(bedStd)
			p.WaketimeConsistencyStdHr = round2(wakeStd)
		}
		out = append(out, p)
	}
	return out
}

// ClockHours is the time of day of t as fractional hours.
func ClockHours(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// CircularMean returns the mean and circular standard deviation of times of
// day given in hours on [0, 24).
func CircularMean(hours []float64) (mean, std float64) {
	if len(hours) == 0 {
		return 0, 0
	}
	const hoursToRad = 2 * math.Pi / 24

	var sin, cos float64
	for _, h := range hours {
		sin += math.Sin(h * hoursToRad)
		cos += math.Cos(h * hoursToRad)
	}
	sin /= float64(len(hours))
	cos /= float64(len(hours))

	angle := math.Atan2(sin, cos)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	mean = angle / hoursToRad

	r := math.Min(1, math.Hypot(sin, cos))
	if r > 0 {
		std = math.Sqrt(-2*math.Log(r)) / hoursToRad
	}
	return mean, std
}

// FormatClock renders fractional hours as "HH:MM", wrapping at 24.
func FormatClock(h float64) string {
	total := int(math.Round(h*60)) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
