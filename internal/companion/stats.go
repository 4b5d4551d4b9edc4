package companion

import "refwatch/internal/core/match"

// Stats are totals over every received report.
type Stats struct {
	Matches     int `json:"matches"`
	Goals       int `json:"goals"`
	Events      int `json:"events"`
	YellowCards int `json:"yellowCards"`
	RedCards    int `json:"redCards"`
	Shootouts   int `json:"shootouts"`
}

// Summarize computes Stats for reports.
func Summarize(reports []match.Report) Stats {
	var stats Stats
	for _, report := range reports {
		stats.Matches++
		stats.Goals += report.HomeScore + report.AwayScore
		stats.Events += len(report.Events)
		_, yellows, reds := report.Counts()
		stats.YellowCards += yellows
		stats.RedCards += reds
		if report.WentToPenalties() {
			stats.Shootouts++
		}
	}
	return stats
}
