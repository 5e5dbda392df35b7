package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/buildlog-app/buildlog/internal/domain"
)

type buildLogDocument struct {
	ID            string                          `json:"$id"`
	SystemCreated string                          `json:"$createdAt"`
	ProjectID     string                          `json:"project_id"`
	Title         string                          `json:"title"`
	Content       string                          `json:"content"`
	LogType       string                          `json:"log_type"`
	Tags          []string                        `json:"tags"`
	CodeSnippets  encodedList[domain.CodeSnippet] `json:"code_snippets"`
	Images        []string                        `json:"images"`
	Links         encodedList[domain.Link]        `json:"links"`
	CreatedAt     string                          `json:"created_at"`
}

func (c *Client) toBuildLog(doc buildLogDocument) domain.BuildLog {
	return domain.BuildLog{
		ID:           doc.ID,
		ProjectID:    doc.ProjectID,
		Title:        doc.Title,
		Content:      doc.Content,
		LogType:      domain.LogType(doc.LogType),
		Tags:         doc.Tags,
		CodeSnippets: []domain.CodeSnippet(doc.CodeSnippets),
		Images:       doc.Images,
		Links:        []domain.Link(doc.Links),
		CreatedAt:    c.parseTime(doc.CreatedAt, doc.SystemCreated),
	}
}

// CreateBuildLog stores a new build log document.
func (c *Client) CreateBuildLog(ctx context.Context, entry *domain.BuildLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC()
	}
	data := map[string]any{
		"project_id":    entry.ProjectID,
		"title":         entry.Title,
		"content":       entry.Content,
		"log_type":      string(entry.LogType),
		"tags":          nonNil(entry.Tags),
		"code_snippets": encodeList(entry.CodeSnippets),
		"images":        nonNil(entry.Images),
		"links":         encodeList(entry.Links),
		"created_at":    c.formatTime(entry.CreatedAt),
	}
	var doc buildLogDocument
	if err := c.createDocument(ctx, c.cfg.BuildLogsCollection, entry.ID, data, &doc); err != nil {
		return fmt.Errorf("create build log: %w", err)
	}
	*entry = c.toBuildLog(doc)
	return nil
}

// GetBuildLog fetches a build log by id.
func (c *Client) GetBuildLog(ctx context.Context, logID string) (*domain.BuildLog, error) {
	var doc buildLogDocument
	if err := c.getDocument(ctx, c.cfg.BuildLogsCollection, logID, &doc); err != nil {
		return nil, fmt.Errorf("get build log %s: %w", logID, err)
	}
	entry := c.toBuildLog(doc)
	return &entry, nil
}

// ListBuildLogsByProject returns every log attached to projectID, unordered.
func (c *Client) ListBuildLogsByProject(ctx context.Context, projectID string) ([]domain.BuildLog, error) {
	docs, err := listAll[buildLogDocument](ctx, c, c.cfg.BuildLogsCollection, Equal("project_id", projectID))
	if err != nil {
		return nil, fmt.Errorf("list build logs: %w", err)
	}
	logs := make([]domain.BuildLog, 0, len(docs))
	for _, doc := range docs {
		logs = append(logs, c.toBuildLog(doc))
	}
	return logs, nil
}

// UpdateBuildLog applies the set fields of patch.
func (c *Client) UpdateBuildLog(ctx context.Context, logID string, patch domain.BuildLogPatch) (*domain.BuildLog, error) {
	data := map[string]any{}
	if patch.Title != nil {
		data["title"] = *patch.Title
	}
	if patch.Content != nil {
		data["content"] = *patch.Content
	}
	if patch.LogType != nil {
		data["log_type"] = string(*patch.LogType)
	}
	if patch.Tags != nil {
		data["tags"] = nonNil(*patch.Tags)
	}
	if patch.CodeSnippets != nil {
		data["code_snippets"] = encodeList(*patch.CodeSnippets)
	}
	if patch.Images != nil {
		data["images"] = nonNil(*patch.Images)
	}
	if patch.Links != nil {
		data["links"] = encodeList(*patch.Links)
	}
	var doc buildLogDocument
	if err := c.updateDocument(ctx, c.cfg.BuildLogsCollection, logID, data, &doc); err != nil {
		return nil, fmt.Errorf("update build log %s: %w", logID, err)
	}
	entry := c.toBuildLog(doc)
	return &entry, nil
}

// DeleteBuildLog removes a build log document.
func (c *Client) DeleteBuildLog(ctx context.Context, logID string) error {
	if err := c.deleteDocument(ctx, c.cfg.BuildLogsCollection, logID); err != nil {
		return fmt.Errorf("delete build log %s: %w", logID, err)
	}
	return nil
}
