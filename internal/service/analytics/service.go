package analytics

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"log/slog"

	"github.com/buildlog-app/buildlog/internal/domain"
)

const (
	dayLayout   = "2006-01-02"
	labelLayout = "Jan 02"

	DefaultActivityDays   = 30
	DefaultProjectLimit   = 10
	DefaultTrendWeeks     = 8
	DefaultHeatmapDays    = 365
	projectLabelMaxRunes  = 20
	activityLabelInterval = 5
)

var logTypeLabels = map[string]string{
	"update":    "Update",
	"milestone": "Milestone",
	"feature":   "Feature",
	"bug_fix":   "Bug Fix",
	"note":      "Note",
}

var statusLabels = map[string]string{
	"in_progress": "In Progress",
	"completed":   "Completed",
	"archived":    "Archived",
	"planning":    "Planning",
	"on_hold":     "On Hold",
}

// ProjectLister lists a user's projects.
type ProjectLister interface {
	ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error)
}

// BuildLogLister lists a project's build logs.
type BuildLogLister interface {
	ListBuildLogsByProject(ctx context.Context, projectID string) ([]domain.BuildLog, error)
}

// Service aggregates a user's projects and logs into chart-ready views.
type Service struct {
	projects ProjectLister
	logs     BuildLogLister
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option customises the aggregator.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone whose calendar days are used for bucketing.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New constructs an analytics service.
func New(projects ProjectLister, logs BuildLogLister, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := Service{projects: projects, logs: logs, logger: logger, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type snapshot struct {
	projects []domain.Project
	perProj  [][]domain.BuildLog
	logs     []domain.BuildLog
}

func (s Service) load(ctx context.Context, userID string) (snapshot, error) {
	projects, err := s.projects.ListProjectsByUser(ctx, userID)
	if err != nil {
		return snapshot{}, err
	}
	snap := snapshot{projects: projects, perProj: make([][]domain.BuildLog, len(projects))}
	for i, p := range projects {
		logs, err := s.logs.ListBuildLogsByProject(ctx, p.ID)
		if err != nil {
			return snapshot{}, err
		}
		snap.perProj[i] = logs
		snap.logs = append(snap.logs, logs...)
	}
	return snap, nil
}

func (s Service) degraded(op, userID string, err error) Status {
	s.logger.Warn("analytics unavailable", "op", op, "user_id", userID, "error", err)
	return Status{Degraded: true, Reason: "upstream fetch failed: " + err.Error()}
}

func (s Service) today() time.Time {
	return s.now().In(s.loc)
}

func (s Service) dayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.loc).Format(dayLayout)
}

// Overview returns headline counts.
func (s Service) Overview(ctx context.Context, userID string) Overview {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return Overview{Status: s.degraded("overview", userID, err)}
	}
	return s.overview(snap)
}

func (s Service) overview(snap snapshot) Overview {
	out := Overview{TotalProjects: len(snap.projects), TotalLogs: len(snap.logs)}
	for _, p := range snap.projects {
		if p.Status == domain.StatusInProgress {
			out.ActiveProjects++
		}
	}
	weekAgo := s.today().AddDate(0, 0, -7).Format(dayLayout)
	for _, l := range snap.logs {
		if key := s.dayKey(l.CreatedAt); key != "" && key >= weekAgo {
			out.WeeklyLogs++
		}
	}
	return out
}

// ActivityOverTime returns days+1 daily buckets ending today.
func (s Service) ActivityOverTime(ctx context.Context, userID string, days int) DailySeries {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptyDailySeries()
		out.Status = s.degraded("activity_over_time", userID, err)
		return out
	}
	return s.activity(snap, days)
}

func (s Service) activity(snap snapshot, days int) DailySeries {
	if days < 0 {
		days = 0
	}
	counts := s.countByDay(snap.logs)
	out := DailySeries{
		Labels: make([]string, 0, days+1),
		Values: make([]int, 0, days+1),
		Dates:  make([]string, 0, days+1),
	}
	start := s.today().AddDate(0, 0, -days)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(dayLayout)
		label := ""
		if i%activityLabelInterval == 0 || i == days {
			label = day.Format(labelLayout)
		}
		out.Labels = append(out.Labels, label)
		out.Values = append(out.Values, counts[key])
		out.Dates = append(out.Dates, key)
	}
	return out
}

// LogTypeDistribution counts logs by type, largest first.
func (s Service) LogTypeDistribution(ctx context.Context, userID string) Series {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptySeries()
		out.Status = s.degraded("log_type_distribution", userID, err)
		return out
	}
	return s.logTypes(snap)
}

func (s Service) logTypes(snap snapshot) Series {
	keys, counts := groupCount(len(snap.logs), func(i int) string {
		if t := string(snap.logs[i].LogType); t != "" {
			return t
		}
		return string(domain.LogNote)
	})
	sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	out := emptySeries()
	for _, k := range keys {
		label, ok := logTypeLabels[k]
		if !ok {
			label = titleCase(strings.ReplaceAll(k, "_", " "))
		}
		out.Labels = append(out.Labels, label)
		out.Values = append(out.Values, counts[k])
	}
	return out
}

// LogsPerProject returns the top projects by log count.
func (s Service) LogsPerProject(ctx context.Context, userID string, limit int) Series {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptySeries()
		out.Status = s.degraded("logs_per_project", userID, err)
		return out
	}
	return s.perProject(snap, limit)
}

func (s Service) perProject(snap snapshot, limit int) Series {
	if limit <= 0 {
		limit = DefaultProjectLimit
	}
	type item struct {
		name  string
		count int
	}
	items := make([]item, 0, len(snap.projects))
	for i, p := range snap.projects {
		name := p.Name
		if name == "" {
			name = "Untitled"
		}
		items = append(items, item{name: name, count: len(snap.perProj[i])})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].count > items[j].count })
	if len(items) > limit {
		items = items[:limit]
	}
	out := emptySeries()
	for _, it := range items {
		out.Labels = append(out.Labels, truncateRunes(it.name, projectLabelMaxRunes))
		out.Values = append(out.Values, it.count)
	}
	return out
}

// WeeklyTrend returns exactly weeks Monday-aligned buckets, oldest first.
func (s Service) WeeklyTrend(ctx context.Context, userID string, weeks int) Series {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptySeries()
		out.Status = s.degraded("weekly_trend", userID, err)
		return out
	}
	return s.weekly(snap, weeks)
}

func (s Service) weekly(snap snapshot, weeks int) Series {
	out := emptySeries()
	if weeks <= 0 {
		return out
	}
	type window struct{ start, end string }
	now := s.today()
	sinceMonday := (int(now.Weekday()) + 6) % 7
	windows := make([]window, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		start := now.AddDate(0, 0, -(i*7 + sinceMonday))
		end := start.AddDate(0, 0, 6)
		windows = append(windows, window{start: start.Format(dayLayout), end: end.Format(dayLayout)})
		out.Labels = append(out.Labels, start.Format(labelLayout))
		out.Values = append(out.Values, 0)
	}
	for _, l := range snap.logs {
		key := s.dayKey(l.CreatedAt)
		if key == "" {
			continue
		}
		for i, w := range windows {
			if w.start <= key && key <= w.end {
				out.Values[i]++
				break
			}
		}
	}
	return out
}

// Heatmap returns a zero-filled count per day over the window ending today.
func (s Service) Heatmap(ctx context.Context, userID string, days int) Heatmap {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptyHeatmap()
		out.Status = s.degraded("heatmap", userID, err)
		return out
	}
	return s.heatmap(snap, days)
}

func (s Service) heatmap(snap snapshot, days int) Heatmap {
	if days <= 0 {
		days = DefaultHeatmapDays
	}
	counts := s.countByDay(snap.logs)
	out := Heatmap{Days: make([]HeatmapDay, 0, days+1)}
	start := s.today().AddDate(0, 0, -days)
	for i := 0; i <= days; i++ {
		key := start.AddDate(0, 0, i).Format(dayLayout)
		out.Days = append(out.Days, HeatmapDay{Date: key, Count: counts[key]})
	}
	return out
}

// StatusDistribution counts projects by status in first-seen order.
func (s Service) StatusDistribution(ctx context.Context, userID string) Series {
	snap, err := s.load(ctx, userID)
	if err != nil {
		out := emptySeries()
		out.Status = s.degraded("status_distribution", userID, err)
		return out
	}
	return s.statuses(snap)
}

func (s Service) statuses(snap snapshot) Series {
	keys, counts := groupCount(len(snap.projects), func(i int) string {
		if st := string(snap.projects[i].Status); st != "" {
			return st
		}
		return string(domain.StatusInProgress)
	})
	out := emptySeries()
	for _, k := range keys {
		label, ok := statusLabels[k]
		if !ok {
			label = titleCase(k)
		}
		out.Labels = append(out.Labels, label)
		out.Values = append(out.Values, counts[k])
	}
	return out
}

// Complete computes every view from a single fetch using default windows.
func (s Service) Complete(ctx context.Context, userID string) Report {
	snap, err := s.load(ctx, userID)
	if err != nil {
		status := s.degraded("complete", userID, err)
		report := Report{
			Overview:           Overview{Status: status},
			ActivityOverTime:   emptyDailySeries(),
			LogTypes:           emptySeries(),
			LogsPerProject:     emptySeries(),
			WeeklyTrend:        emptySeries(),
			Heatmap:            emptyHeatmap(),
			StatusDistribution: emptySeries(),
			Status:             status,
		}
		report.ActivityOverTime.Status = status
		report.LogTypes.Status = status
		report.LogsPerProject.Status = status
		report.WeeklyTrend.Status = status
		report.Heatmap.Status = status
		report.StatusDistribution.Status = status
		return report
	}
	return Report{
		Overview:           s.overview(snap),
		ActivityOverTime:   s.activity(snap, DefaultActivityDays),
		LogTypes:           s.logTypes(snap),
		LogsPerProject:     s.perProject(snap, DefaultProjectLimit),
		WeeklyTrend:        s.weekly(snap, DefaultTrendWeeks),
		Heatmap:            s.heatmap(snap, DefaultHeatmapDays),
		StatusDistribution: s.statuses(snap),
	}
}

func (s Service) countByDay(logs []domain.BuildLog) map[string]int {
	counts := make(map[string]int, len(logs))
	for _, l := range logs {
		if key := s.dayKey(l.CreatedAt); key != "" {
			counts[key]++
		}
	}
	return counts
}

// groupCount tallies keyOf(i) for i in [0,n) and returns keys in first-seen order.
func groupCount(n int, keyOf func(int) string) ([]string, map[string]int) {
	var keys []string
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		k := keyOf(i)
		if _, seen := counts[k]; !seen {
			keys = append(keys, k)
		}
		counts[k]++
	}
	return keys, counts
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
