package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
)

// MaxNameLength bounds project names.
const MaxNameLength = 200

var (
	ErrInvalidName   = errors.New("project name must be between 1 and 200 characters")
	ErrInvalidStatus = errors.New("project status must be planning, in_progress, completed or on_hold")
	ErrMissingID     = errors.New("project id required")
	// ErrForbidden is returned when a project belongs to another user. Handlers
	// treat it like ErrNotFound so ids of other users do not leak.
	ErrForbidden = errors.New("project belongs to another user")
)

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	UserID        string
	Name          string
	Description   string
	TechStack     []string
	RepositoryURL string
	DemoURL       string
	Tags          []string
	Status        domain.ProjectStatus
}

// UpdateInput carries optional fields; nil leaves a field unchanged.
type UpdateInput struct {
	Name          *string
	Description   *string
	TechStack     *[]string
	RepositoryURL *string
	DemoURL       *string
	Tags          *[]string
	Status        *domain.ProjectStatus
}

// Service orchestrates project management.
type Service struct {
	projects repository.ProjectRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a project service.
func New(projects repository.ProjectRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{projects: projects, logger: logger, now: time.Now}
}

// ValidateName checks the trimmed name is 1..MaxNameLength characters.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// Create validates input and stores a new project.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Project, error) {
	name, err := ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = domain.StatusInProgress
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	now := s.now().UTC()
	project := &domain.Project{
		UserID:        input.UserID,
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		TechStack:     input.TechStack,
		RepositoryURL: strings.TrimSpace(input.RepositoryURL),
		DemoURL:       strings.TrimSpace(input.DemoURL),
		Tags:          input.Tags,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		s.logger.Error("project create failed", "user_id", input.UserID, "error", err)
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "user_id", project.UserID)
	return project, nil
}

// Get fetches a project.
func (s Service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrMissingID
	}
	return s.projects.GetProject(ctx, projectID)
}

// GetOwned fetches a project and checks it belongs to userID.
func (s Service) GetOwned(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrForbidden)
	}
	return project, nil
}

// List returns the projects owned by userID.
func (s Service) List(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.projects.ListProjectsByUser(ctx, userID)
}

// Update validates and applies a partial update.
func (s Service) Update(ctx context.Context, projectID string, input UpdateInput) (*domain.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrMissingID
	}
	patch := domain.ProjectPatch{
		Description:   trimmed(input.Description),
		TechStack:     input.TechStack,
		RepositoryURL: trimmed(input.RepositoryURL),
		DemoURL:       trimmed(input.DemoURL),
		Tags:          input.Tags,
		Status:        input.Status,
		UpdatedAt:     s.now().UTC(),
	}
	if input.Name != nil {
		name, err := ValidateName(*input.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	project, err := s.projects.UpdateProject(ctx, projectID, patch)
	if err != nil {
		s.logger.Error("project update failed", "project_id", projectID, "error", err)
		return nil, err
	}
	s.logger.Info("project updated", "project_id", projectID)
	return project, nil
}

// Delete removes a project. Its build logs are not cascaded.
func (s Service) Delete(ctx context.Context, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return ErrMissingID
	}
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		s.logger.Error("project delete failed", "project_id", projectID, "error", err)
		return err
	}
	s.logger.Info("project deleted", "project_id", projectID)
	return nil
}

// IsValidation reports whether err was produced by input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrMissingID)
}

// SplitList parses a comma separated form value, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
