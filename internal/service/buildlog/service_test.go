package buildlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/internal/ws"
)

type stubLogRepository struct {
	logs  map[string]domain.BuildLog
	calls int
}

func newStubRepo() *stubLogRepository {
	return &stubLogRepository{logs: map[string]domain.BuildLog{}}
}

func (s *stubLogRepository) CreateBuildLog(ctx context.Context, entry *domain.BuildLog) error {
	s.calls++
	entry.ID = fmt.Sprintf("log-%d", len(s.logs)+1)
	s.logs[entry.ID] = *entry
	return nil
}

func (s *stubLogRepository) GetBuildLog(ctx context.Context, logID string) (*domain.BuildLog, error) {
	s.calls++
	entry, ok := s.logs[logID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &entry, nil
}

func (s *stubLogRepository) ListBuildLogsByProject(ctx context.Context, projectID string) ([]domain.BuildLog, error) {
	s.calls++
	var out []domain.BuildLog
	for _, entry := range s.logs {
		if entry.ProjectID == projectID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *stubLogRepository) UpdateBuildLog(ctx context.Context, logID string, patch domain.BuildLogPatch) (*domain.BuildLog, error) {
	s.calls++
	entry, ok := s.logs[logID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.LogType != nil {
		entry.LogType = *patch.LogType
	}
	s.logs[logID] = entry
	return &entry, nil
}

func (s *stubLogRepository) DeleteBuildLog(ctx context.Context, logID string) error {
	s.calls++
	if _, ok := s.logs[logID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.logs, logID)
	return nil
}

type captureSubscriber struct {
	mu     sync.Mutex
	events []map[string]any
}

func (c *captureSubscriber) Send(p []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(p, &payload); err != nil {
		return err
	}
	c.mu.Lock()
	c.events = append(c.events, payload)
	c.mu.Unlock()
	return nil
}

func (c *captureSubscriber) Close() {}

func (c *captureSubscriber) wait(t *testing.T, n int) []map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.events) >= n {
			out := append([]map[string]any(nil), c.events...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d events", n)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateValidatesBeforeGateway(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, nil, discardLogger())
	ctx := context.Background()

	cases := []struct {
		input CreateInput
		want  error
	}{
		{CreateInput{ProjectID: "p1", Title: "", Content: "x"}, ErrInvalidTitle},
		{CreateInput{ProjectID: "p1", Title: strings.Repeat("t", MaxTitleLength+1), Content: "x"}, ErrInvalidTitle},
		{CreateInput{ProjectID: "p1", Title: "ok", Content: "  "}, ErrInvalidContent},
		{CreateInput{ProjectID: "p1", Title: "ok", Content: "x", LogType: "rant"}, ErrInvalidLogType},
		{CreateInput{Title: "ok", Content: "x"}, ErrMissingProject},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
		if !IsValidation(tc.want) {
			t.Fatalf("expected %v to be a validation error", tc.want)
		}
	}
	if repo.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", repo.calls)
	}
}

func TestCreateDefaultsAndBroadcasts(t *testing.T) {
	hub := ws.NewHub()
	defer hub.Close()
	sub := &captureSubscriber{}
	hub.Register("p1", sub)

	svc := New(newStubRepo(), hub, discardLogger())
	entry, err := svc.Create(context.Background(), CreateInput{
		ProjectID:    "p1",
		Title:        " Shipped auth ",
		Content:      "Session cookies work.",
		CodeSnippets: []domain.CodeSnippet{{Language: "go", Code: ""}, {Language: " go ", Code: "x := 1"}},
		Links:        []domain.Link{{URL: " https://example.com "}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.LogType != domain.LogUpdate {
		t.Fatalf("expected default log type update, got %q", entry.LogType)
	}
	if entry.Title != "Shipped auth" {
		t.Fatalf("expected trimmed title, got %q", entry.Title)
	}
	if len(entry.CodeSnippets) != 1 || entry.CodeSnippets[0].Language != "go" {
		t.Fatalf("unexpected snippets %#v", entry.CodeSnippets)
	}
	if len(entry.Links) != 1 || entry.Links[0].Title != "https://example.com" {
		t.Fatalf("unexpected links %#v", entry.Links)
	}

	events := sub.wait(t, 1)
	if events[0]["event"] != EventCreated || events[0]["project_id"] != "p1" {
		t.Fatalf("unexpected event %#v", events[0])
	}
}

func TestListSortsByCreatedAt(t *testing.T) {
	repo := newStubRepo()
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo.logs["a"] = domain.BuildLog{ID: "a", ProjectID: "p1", CreatedAt: base.Add(2 * time.Hour)}
	repo.logs["b"] = domain.BuildLog{ID: "b", ProjectID: "p1", CreatedAt: base}
	repo.logs["c"] = domain.BuildLog{ID: "c", ProjectID: "p1", CreatedAt: base.Add(time.Hour)}
	repo.logs["d"] = domain.BuildLog{ID: "d", ProjectID: "p2", CreatedAt: base}
	svc := New(repo, nil, discardLogger())

	newest, err := svc.List(context.Background(), "p1", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := ids(newest); got != "a,c,b" {
		t.Fatalf("unexpected descending order %s", got)
	}
	oldest, _ := svc.List(context.Background(), "p1", false)
	if got := ids(oldest); got != "b,c,a" {
		t.Fatalf("unexpected ascending order %s", got)
	}
}

func TestGetInProjectRejectsForeignLog(t *testing.T) {
	repo := newStubRepo()
	repo.logs["l1"] = domain.BuildLog{ID: "l1", ProjectID: "p2"}
	svc := New(repo, nil, discardLogger())

	if _, err := svc.GetInProject(context.Background(), "p1", "l1"); !errors.Is(err, ErrWrongProject) {
		t.Fatalf("expected ErrWrongProject, got %v", err)
	}
	if _, err := svc.GetInProject(context.Background(), "p1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAndDeleteBroadcast(t *testing.T) {
	hub := ws.NewHub()
	defer hub.Close()
	sub := &captureSubscriber{}
	hub.Register("p1", sub)

	repo := newStubRepo()
	repo.logs["l1"] = domain.BuildLog{ID: "l1", ProjectID: "p1", Title: "old", LogType: domain.LogNote}
	svc := New(repo, hub, discardLogger())

	title := "new"
	milestone := domain.LogMilestone
	entry, err := svc.Update(context.Background(), "p1", "l1", UpdateInput{Title: &title, LogType: &milestone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if entry.Title != "new" || entry.LogType != domain.LogMilestone {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if err := svc.Delete(context.Background(), "p1", "l1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	events := sub.wait(t, 2)
	if events[0]["event"] != EventUpdated || events[1]["event"] != EventDeleted {
		t.Fatalf("unexpected events %#v", events)
	}

	empty := ""
	if _, err := svc.Update(context.Background(), "p1", "l1", UpdateInput{Content: &empty}); !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
}

func ids(logs []domain.BuildLog) string {
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ID)
	}
	return strings.Join(out, ",")
}
