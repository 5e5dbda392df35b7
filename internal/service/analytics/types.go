package analytics

// Status marks whether a result was computed from live data. A degraded
// result carries the documented empty shape plus the reason.
type Status struct {
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Overview holds headline counts for the dashboard.
type Overview struct {
	TotalProjects  int `json:"total_projects"`
	TotalLogs      int `json:"total_logs"`
	ActiveProjects int `json:"active_projects"`
	WeeklyLogs     int `json:"weekly_logs"`
	Status
}

// Series is a labelled list of counts suitable for charting.
type Series struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Status
}

// DailySeries is a Series with the calendar date of every bucket.
type DailySeries struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Dates  []string `json:"dates"`
	Status
}

// HeatmapDay is one calendar cell.
type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Heatmap is a zero-filled day-by-day activity grid.
type Heatmap struct {
	Days []HeatmapDay `json:"days"`
	Status
}

// Report bundles every analytics view computed from one snapshot.
type Report struct {
	Overview           Overview    `json:"overview"`
	ActivityOverTime   DailySeries `json:"activity_over_time"`
	LogTypes           Series      `json:"log_types"`
	LogsPerProject     Series      `json:"logs_per_project"`
	WeeklyTrend        Series      `json:"weekly_trend"`
	Heatmap            Heatmap     `json:"heatmap"`
	StatusDistribution Series      `json:"status_distribution"`
	Status
}

func emptySeries() Series {
	return Series{Labels: []string{}, Values: []int{}}
}

func emptyDailySeries() DailySeries {
	return DailySeries{Labels: []string{}, Values: []int{}, Dates: []string{}}
}

func emptyHeatmap() Heatmap {
	return Heatmap{Days: []HeatmapDay{}}
}
