package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
)

type fixtureStore struct {
	projects []domain.Project
	logs     map[string][]domain.BuildLog
	err      error
}

func (f fixtureStore) ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.projects, nil
}

func (f fixtureStore) ListBuildLogsByProject(ctx context.Context, projectID string) ([]domain.BuildLog, error) {
	return f.logs[projectID], nil
}

func at(day string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", day+" 09:30")
	if err != nil {
		panic(err)
	}
	return t
}

// fixture: Wednesday 2025-06-11, three projects (two in progress), four logs.
func newFixtureService(store fixtureStore) Service {
	now := time.Date(2025, time.June, 11, 12, 0, 0, 0, time.UTC)
	return New(store, store, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC))
}

func sampleStore() fixtureStore {
	return fixtureStore{
		projects: []domain.Project{
			{ID: "p1", Name: "Alpha", Status: domain.StatusInProgress},
			{ID: "p2", Name: "Beta", Status: domain.StatusInProgress},
			{ID: "p3", Name: "A very long project name exceeding", Status: domain.StatusCompleted},
		},
		logs: map[string][]domain.BuildLog{
			"p1": {
				{ID: "l1", ProjectID: "p1", LogType: domain.LogUpdate, CreatedAt: at("2025-06-11")},
				{ID: "l2", ProjectID: "p1", LogType: domain.LogMilestone, CreatedAt: at("2025-06-09")},
			},
			"p2": {
				{ID: "l3", ProjectID: "p2", LogType: domain.LogUpdate, CreatedAt: at("2025-06-01")},
			},
			"p3": {
				{ID: "l4", ProjectID: "p3", CreatedAt: at("2025-05-01")},
			},
		},
	}
}

func TestOverviewCounts(t *testing.T) {
	svc := newFixtureService(sampleStore())
	got := svc.Overview(context.Background(), "u1")
	want := Overview{TotalProjects: 3, TotalLogs: 4, ActiveProjects: 2, WeeklyLogs: 2}
	if got != want {
		t.Fatalf("unexpected overview %+v, want %+v", got, want)
	}
}

func TestActivityOverTimeBuckets(t *testing.T) {
	svc := newFixtureService(sampleStore())
	series := svc.ActivityOverTime(context.Background(), "u1", 10)
	if len(series.Values) != 11 || len(series.Labels) != 11 || len(series.Dates) != 11 {
		t.Fatalf("expected 11 buckets, got %d/%d/%d", len(series.Values), len(series.Labels), len(series.Dates))
	}
	if series.Dates[0] != "2025-06-01" || series.Dates[10] != "2025-06-11" {
		t.Fatalf("unexpected date range %s..%s", series.Dates[0], series.Dates[10])
	}
	wantValues := []int{1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1}
	for i, v := range wantValues {
		if series.Values[i] != v {
			t.Fatalf("bucket %d: got %d want %d", i, series.Values[i], v)
		}
	}
	for i, label := range series.Labels {
		shown := i%5 == 0 || i == 10
		if shown != (label != "") {
			t.Fatalf("label %d visibility mismatch: %q", i, label)
		}
	}
	if series.Labels[0] != "Jun 01" || series.Labels[5] != "Jun 06" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
}

func TestActivityOverTimeAlwaysReturnsNPlusOne(t *testing.T) {
	svc := newFixtureService(fixtureStore{})
	for _, n := range []int{0, 1, 7, 30, 90} {
		series := svc.ActivityOverTime(context.Background(), "u1", n)
		if len(series.Values) != n+1 {
			t.Fatalf("days=%d: expected %d buckets, got %d", n, n+1, len(series.Values))
		}
		for _, v := range series.Values {
			if v != 0 {
				t.Fatalf("expected zero fill, got %v", series.Values)
			}
		}
	}
}

func TestLogTypeDistribution(t *testing.T) {
	svc := newFixtureService(sampleStore())
	series := svc.LogTypeDistribution(context.Background(), "u1")
	if strings.Join(series.Labels, ",") != "Update,Milestone,Note" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	total := 0
	for _, v := range series.Values {
		total += v
	}
	if total != 4 || series.Values[0] != 2 {
		t.Fatalf("unexpected values %v", series.Values)
	}
}

func TestLogTypeLabelFallback(t *testing.T) {
	store := fixtureStore{
		projects: []domain.Project{{ID: "p1"}},
		logs: map[string][]domain.BuildLog{
			"p1": {{LogType: "code_review", CreatedAt: at("2025-06-10")}, {LogType: domain.LogBugFix}},
		},
	}
	series := newFixtureService(store).LogTypeDistribution(context.Background(), "u1")
	if strings.Join(series.Labels, ",") != "Code Review,Bug Fix" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
}

func TestLogsPerProjectTruncatesAndLimits(t *testing.T) {
	svc := newFixtureService(sampleStore())
	series := svc.LogsPerProject(context.Background(), "u1", 0)
	if strings.Join(series.Labels, "|") != "Alpha|Beta|A very long project " {
		t.Fatalf("unexpected labels %q", series.Labels)
	}
	limited := svc.LogsPerProject(context.Background(), "u1", 1)
	if len(limited.Labels) != 1 || limited.Values[0] != 2 {
		t.Fatalf("unexpected limited series %+v", limited)
	}

	untitled := newFixtureService(fixtureStore{projects: []domain.Project{{ID: "x"}}}).LogsPerProject(context.Background(), "u1", 5)
	if len(untitled.Labels) != 1 || untitled.Labels[0] != "Untitled" {
		t.Fatalf("expected Untitled label, got %v", untitled.Labels)
	}
}

func TestWeeklyTrendBuckets(t *testing.T) {
	svc := newFixtureService(sampleStore())
	series := svc.WeeklyTrend(context.Background(), "u1", 3)
	if strings.Join(series.Labels, ",") != "May 26,Jun 02,Jun 09" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	want := []int{1, 0, 2}
	for i, v := range want {
		if series.Values[i] != v {
			t.Fatalf("week %d: got %d want %d", i, series.Values[i], v)
		}
	}
	for _, n := range []int{0, 1, 8, 52} {
		if got := len(svc.WeeklyTrend(context.Background(), "u1", n).Values); got != n {
			t.Fatalf("weeks=%d: got %d buckets", n, got)
		}
	}
}

func TestHeatmapZeroFills(t *testing.T) {
	svc := newFixtureService(sampleStore())
	hm := svc.Heatmap(context.Background(), "u1", 3)
	if len(hm.Days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(hm.Days))
	}
	want := []HeatmapDay{{"2025-06-08", 0}, {"2025-06-09", 1}, {"2025-06-10", 0}, {"2025-06-11", 1}}
	for i, d := range want {
		if hm.Days[i] != d {
			t.Fatalf("day %d: got %+v want %+v", i, hm.Days[i], d)
		}
	}
	if got := len(svc.Heatmap(context.Background(), "u1", 0).Days); got != DefaultHeatmapDays+1 {
		t.Fatalf("expected default window, got %d days", got)
	}
}

func TestStatusDistribution(t *testing.T) {
	store := sampleStore()
	store.projects = append(store.projects, domain.Project{ID: "p4"}, domain.Project{ID: "p5", Status: "on_ice"})
	series := newFixtureService(store).StatusDistribution(context.Background(), "u1")
	if strings.Join(series.Labels, ",") != "In Progress,Completed,On_Ice" {
		t.Fatalf("unexpected labels %v", series.Labels)
	}
	if series.Values[0] != 3 {
		t.Fatalf("missing status should count as in progress, got %v", series.Values)
	}
}

func TestUpstreamFailureReturnsEmptyShapes(t *testing.T) {
	svc := newFixtureService(fixtureStore{err: errors.New("gateway down")})
	ctx := context.Background()

	overview := svc.Overview(ctx, "u1")
	if !overview.Degraded || overview.TotalProjects != 0 || overview.TotalLogs != 0 {
		t.Fatalf("unexpected overview %+v", overview)
	}
	if s := svc.ActivityOverTime(ctx, "u1", 30); !s.Degraded || s.Labels == nil || len(s.Values) != 0 {
		t.Fatalf("unexpected activity %+v", s)
	}
	if s := svc.LogTypeDistribution(ctx, "u1"); !s.Degraded || len(s.Labels) != 0 {
		t.Fatalf("unexpected log types %+v", s)
	}
	if s := svc.LogsPerProject(ctx, "u1", 10); !s.Degraded || len(s.Values) != 0 {
		t.Fatalf("unexpected per project %+v", s)
	}
	if s := svc.WeeklyTrend(ctx, "u1", 8); !s.Degraded || len(s.Values) != 0 {
		t.Fatalf("unexpected weekly %+v", s)
	}
	if h := svc.Heatmap(ctx, "u1", 365); !h.Degraded || h.Days == nil || len(h.Days) != 0 {
		t.Fatalf("unexpected heatmap %+v", h)
	}
	if s := svc.StatusDistribution(ctx, "u1"); !s.Degraded || len(s.Labels) != 0 {
		t.Fatalf("unexpected status %+v", s)
	}

	report := svc.Complete(ctx, "u1")
	if !report.Degraded || !report.WeeklyTrend.Degraded {
		t.Fatalf("expected degraded report")
	}
	data, err := json.Marshal(report.LogTypes)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"labels":[]`) {
		t.Fatalf("expected empty arrays in json, got %s", data)
	}
}

func TestEmptyDataIsNotDegraded(t *testing.T) {
	report := newFixtureService(fixtureStore{}).Complete(context.Background(), "u1")
	if report.Degraded || report.Overview.Degraded {
		t.Fatalf("empty data must not be reported as degraded")
	}
	if len(report.ActivityOverTime.Values) != DefaultActivityDays+1 || len(report.WeeklyTrend.Values) != DefaultTrendWeeks {
		t.Fatalf("unexpected default windows")
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"on_hold":     "On_Hold",
		"code review": "Code Review",
		"BLOCKED":     "Blocked",
		"3d model":    "3D Model",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
