package repository

import (
	"context"
	"io"

	"github.com/buildlog-app/buildlog/internal/domain"
)

// ProjectRepository persists projects in the remote document store.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// BuildLogRepository persists build logs in the remote document store.
type BuildLogRepository interface {
	CreateBuildLog(ctx context.Context, entry *domain.BuildLog) error
	GetBuildLog(ctx context.Context, logID string) (*domain.BuildLog, error)
	ListBuildLogsByProject(ctx context.Context, projectID string) ([]domain.BuildLog, error)
	UpdateBuildLog(ctx context.Context, logID string, patch domain.BuildLogPatch) (*domain.BuildLog, error)
	DeleteBuildLog(ctx context.Context, logID string) error
}

// FileStore stores uploaded blobs.
type FileStore interface {
	UploadFile(ctx context.Context, filename, contentType string, body io.Reader) (*domain.File, error)
	FileURL(fileID string) string
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, string, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// AccountStore wraps the remote account and session API.
type AccountStore interface {
	CreateAccount(ctx context.Context, name, email, password string) (*domain.User, error)
	CreateSession(ctx context.Context, email, password string) (string, error)
	GetAccount(ctx context.Context, sessionSecret string) (*domain.User, error)
	DeleteSession(ctx context.Context, sessionSecret string) error
}
