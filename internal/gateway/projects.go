package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildlog-app/buildlog/internal/domain"
)

type projectDocument struct {
	ID            string   `json:"$id"`
	SystemCreated string   `json:"$createdAt"`
	SystemUpdated string   `json:"$updatedAt"`
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	TechStack     []string `json:"tech_stack"`
	RepositoryURL string   `json:"repository_url"`
	DemoURL       string   `json:"demo_url"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func (c *Client) toProject(doc projectDocument) domain.Project {
	return domain.Project{
		ID:            doc.ID,
		UserID:        doc.UserID,
		Name:          doc.Name,
		Description:   doc.Description,
		TechStack:     doc.TechStack,
		RepositoryURL: doc.RepositoryURL,
		DemoURL:       doc.DemoURL,
		Tags:          doc.Tags,
		Status:        domain.ProjectStatus(doc.Status),
		CreatedAt:     c.parseTime(doc.CreatedAt, doc.SystemCreated),
		UpdatedAt:     c.parseTime(doc.UpdatedAt, doc.SystemUpdated),
	}
}

// CreateProject stores a new project document and fills in its id and timestamps.
func (c *Client) CreateProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = c.now().UTC()
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = project.CreatedAt
	}
	data := map[string]any{
		"user_id":        project.UserID,
		"name":           project.Name,
		"description":    project.Description,
		"tech_stack":     nonNil(project.TechStack),
		"repository_url": project.RepositoryURL,
		"demo_url":       project.DemoURL,
		"tags":           nonNil(project.Tags),
		"status":         string(project.Status),
		"created_at":     c.formatTime(project.CreatedAt),
		"updated_at":     c.formatTime(project.UpdatedAt),
	}
	var doc projectDocument
	if err := c.createDocument(ctx, c.cfg.ProjectsCollection, project.ID, data, &doc); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	*project = c.toProject(doc)
	return nil
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var doc projectDocument
	if err := c.getDocument(ctx, c.cfg.ProjectsCollection, projectID, &doc); err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	project := c.toProject(doc)
	return &project, nil
}

// ListProjectsByUser returns every project owned by userID.
func (c *Client) ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	docs, err := listAll[projectDocument](ctx, c, c.cfg.ProjectsCollection, Equal("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]domain.Project, 0, len(docs))
	for _, doc := range docs {
		projects = append(projects, c.toProject(doc))
	}
	return projects, nil
}

// UpdateProject applies the set fields of patch.
func (c *Client) UpdateProject(ctx context.Context, projectID string, patch domain.ProjectPatch) (*domain.Project, error) {
	data := map[string]any{"updated_at": c.formatTime(patch.UpdatedAt)}
	if patch.Name != nil {
		data["name"] = *patch.Name
	}
	if patch.Description != nil {
		data["description"] = *patch.Description
	}
	if patch.TechStack != nil {
		data["tech_stack"] = nonNil(*patch.TechStack)
	}
	if patch.RepositoryURL != nil {
		data["repository_url"] = *patch.RepositoryURL
	}
	if patch.DemoURL != nil {
		data["demo_url"] = *patch.DemoURL
	}
	if patch.Tags != nil {
		data["tags"] = nonNil(*patch.Tags)
	}
	if patch.Status != nil {
		data["status"] = string(*patch.Status)
	}
	var doc projectDocument
	if err := c.updateDocument(ctx, c.cfg.ProjectsCollection, projectID, data, &doc); err != nil {
		return nil, fmt.Errorf("update project %s: %w", projectID, err)
	}
	project := c.toProject(doc)
	return &project, nil
}

// DeleteProject removes a project document. Build logs are left in place.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.deleteDocument(ctx, c.cfg.ProjectsCollection, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}
