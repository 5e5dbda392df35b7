package buildlog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/internal/ws"
)

// MaxTitleLength bounds build log titles.
const MaxTitleLength = 200

var (
	ErrInvalidTitle   = errors.New("build log title must be between 1 and 200 characters")
	ErrInvalidContent = errors.New("build log content is required")
	ErrInvalidLogType = errors.New("log type must be update, milestone, bug_fix, feature or note")
	ErrMissingProject = errors.New("project id required")
	// ErrWrongProject is returned when a log is addressed through a project it
	// does not belong to.
	ErrWrongProject = errors.New("build log belongs to another project")
)

// Event names published on the live feed.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// CreateInput holds build log creation attributes.
type CreateInput struct {
	ProjectID    string
	Title        string
	Content      string
	LogType      domain.LogType
	Tags         []string
	CodeSnippets []domain.CodeSnippet
	Images       []string
	Links        []domain.Link
}

// UpdateInput carries optional fields; nil leaves a field unchanged.
type UpdateInput struct {
	Title        *string
	Content      *string
	LogType      *domain.LogType
	Tags         *[]string
	CodeSnippets *[]domain.CodeSnippet
	Images       *[]string
	Links        *[]domain.Link
}

// Service handles build log persistence and streaming.
type Service struct {
	repo   repository.BuildLogRepository
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a build log service. hub may be nil to disable streaming.
func New(repo repository.BuildLogRepository, hub *ws.Hub, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{repo: repo, hub: hub, logger: logger, now: time.Now}
}

func validateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" || utf8.RuneCountInString(t) > MaxTitleLength {
		return "", ErrInvalidTitle
	}
	return t, nil
}

func validateContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalidContent
	}
	return content, nil
}

// Create validates, stores and broadcasts a new build log.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.BuildLog, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, ErrMissingProject
	}
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	content, err := validateContent(input.Content)
	if err != nil {
		return nil, err
	}
	logType := input.LogType
	if logType == "" {
		logType = domain.LogUpdate
	}
	if !logType.Valid() {
		return nil, ErrInvalidLogType
	}
	entry := &domain.BuildLog{
		ProjectID:    input.ProjectID,
		Title:        title,
		Content:      content,
		LogType:      logType,
		Tags:         input.Tags,
		CodeSnippets: cleanSnippets(input.CodeSnippets),
		Images:       input.Images,
		Links:        cleanLinks(input.Links),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateBuildLog(ctx, entry); err != nil {
		s.logger.Error("build log create failed", "project_id", input.ProjectID, "error", err)
		return nil, err
	}
	s.logger.Info("build log created", "project_id", entry.ProjectID, "log_id", entry.ID, "log_type", entry.LogType)
	s.broadcast(EventCreated, *entry)
	return entry, nil
}

// List returns a project's logs sorted by creation time. newestFirst
// selects descending order.
func (s Service) List(ctx context.Context, projectID string, newestFirst bool) ([]domain.BuildLog, error) {
	logs, err := s.repo.ListBuildLogsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	SortByCreated(logs, newestFirst)
	return logs, nil
}

// GetInProject fetches a log and checks it is attached to projectID.
func (s Service) GetInProject(ctx context.Context, projectID, logID string) (*domain.BuildLog, error) {
	entry, err := s.repo.GetBuildLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry.ProjectID != projectID {
		return nil, ErrWrongProject
	}
	return entry, nil
}

// Update validates and applies a partial update.
func (s Service) Update(ctx context.Context, projectID, logID string, input UpdateInput) (*domain.BuildLog, error) {
	var patch domain.BuildLogPatch
	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if input.Content != nil {
		content, err := validateContent(*input.Content)
		if err != nil {
			return nil, err
		}
		patch.Content = &content
	}
	if input.LogType != nil {
		if !input.LogType.Valid() {
			return nil, ErrInvalidLogType
		}
		patch.LogType = input.LogType
	}
	patch.Tags = input.Tags
	patch.Images = input.Images
	if input.CodeSnippets != nil {
		snippets := cleanSnippets(*input.CodeSnippets)
		patch.CodeSnippets = &snippets
	}
	if input.Links != nil {
		links := cleanLinks(*input.Links)
		patch.Links = &links
	}
	entry, err := s.repo.UpdateBuildLog(ctx, logID, patch)
	if err != nil {
		s.logger.Error("build log update failed", "log_id", logID, "error", err)
		return nil, err
	}
	if entry.ProjectID == "" {
		entry.ProjectID = projectID
	}
	s.logger.Info("build log updated", "project_id", projectID, "log_id", logID)
	s.broadcast(EventUpdated, *entry)
	return entry, nil
}

// Delete removes a build log.
func (s Service) Delete(ctx context.Context, projectID, logID string) error {
	if err := s.repo.DeleteBuildLog(ctx, logID); err != nil {
		s.logger.Error("build log delete failed", "log_id", logID, "error", err)
		return err
	}
	s.logger.Info("build log deleted", "project_id", projectID, "log_id", logID)
	s.broadcast(EventDeleted, domain.BuildLog{ID: logID, ProjectID: projectID})
	return nil
}

// IsValidation reports whether err was produced by input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTitle) || errors.Is(err, ErrInvalidContent) ||
		errors.Is(err, ErrInvalidLogType) || errors.Is(err, ErrMissingProject)
}

// Hub returns the websocket hub (useful for HTTP handlers).
func (s Service) Hub() *ws.Hub {
	return s.hub
}

func (s Service) broadcast(event string, entry domain.BuildLog) {
	if s.hub == nil {
		return
	}
	data, err := MarshalEvent(event, entry)
	if err != nil {
		s.logger.Warn("failed to marshal build log event", "error", err)
		return
	}
	s.hub.Broadcast(entry.ProjectID, data)
}

// MarshalEvent formats a build log event for streaming payloads.
func MarshalEvent(event string, entry domain.BuildLog) ([]byte, error) {
	payload := map[string]any{
		"event":      event,
		"project_id": entry.ProjectID,
		"log": map[string]any{
			"id":         entry.ID,
			"title":      entry.Title,
			"content":    entry.Content,
			"log_type":   entry.LogType,
			"tags":       entry.Tags,
			"created_at": formatTime(entry.CreatedAt),
		},
	}
	return json.Marshal(payload)
}

// SortByCreated orders logs by creation time, stable for equal timestamps.
func SortByCreated(logs []domain.BuildLog, newestFirst bool) {
	sort.SliceStable(logs, func(i, j int) bool {
		if newestFirst {
			return logs[i].CreatedAt.After(logs[j].CreatedAt)
		}
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func cleanSnippets(in []domain.CodeSnippet) []domain.CodeSnippet {
	out := make([]domain.CodeSnippet, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Code) == "" {
			continue
		}
		s.Language = strings.TrimSpace(s.Language)
		out = append(out, s)
	}
	return out
}

func cleanLinks(in []domain.Link) []domain.Link {
	out := make([]domain.Link, 0, len(in))
	for _, l := range in {
		l.URL = strings.TrimSpace(l.URL)
		if l.URL == "" {
			continue
		}
		l.Title = strings.TrimSpace(l.Title)
		if l.Title == "" {
			l.Title = l.URL
		}
		out = append(out, l)
	}
	return out
}
