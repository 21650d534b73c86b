package model

// WeekStats holds per-day averages over the days that have any entries.
type WeekStats struct {
	DaysWithData    int     `json:"days_with_data"`
	AvgFeedings     float64 `json:"avg_feedings"`
	AvgSleepMinutes float64 `json:"avg_sleep_minutes"`
	AvgDiapers      float64 `json:"avg_diapers"`
}

// ComputeWeekStats averages counts over the non-empty logs.
func ComputeWeekStats(logs []*DailyLog) WeekStats {
	var feedings, sleep, diapers, days int
	for _, l := range logs {
		if l == nil || l.IsEmpty() {
			continue
		}
		days++
		feedings += l.FeedingCount()
		sleep += l.TotalSleepMinutes()
		diapers += l.DiaperCount()
	}
	divisor := float64(max(days, 1))
	return WeekStats{
		DaysWithData:    days,
		AvgFeedings:     float64(feedings) / divisor,
		AvgSleepMinutes: float64(sleep) / divisor,
		AvgDiapers:      float64(diapers) / divisor,
	}
}
