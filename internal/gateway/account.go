package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/buildlog-app/buildlog/internal/domain"
)

type accountDocument struct {
	ID    string `json:"$id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a accountDocument) user() *domain.User {
	return &domain.User{ID: a.ID, Email: a.Email, Name: a.Name}
}

// CreateAccount registers a new end-user account.
func (c *Client) CreateAccount(ctx context.Context, name, email, password string) (*domain.User, error) {
	body := map[string]any{
		"userId":   uuid.NewString(),
		"email":    email,
		"password": password,
		"name":     name,
	}
	var doc accountDocument
	if err := c.do(ctx, call{method: http.MethodPost, path: "/account", body: body}, &doc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return doc.user(), nil
}

// CreateSession exchanges credentials for a session secret.
func (c *Client) CreateSession(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Secret string `json:"secret"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/account/sessions/email", body: body}, &resp); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if resp.Secret == "" {
		return "", errors.New("create session: response carried no secret")
	}
	return resp.Secret, nil
}

// GetAccount resolves the account that owns sessionSecret.
func (c *Client) GetAccount(ctx context.Context, sessionSecret string) (*domain.User, error) {
	if sessionSecret == "" {
		return nil, errors.New("get account: empty session")
	}
	var doc accountDocument
	if err := c.do(ctx, call{method: http.MethodGet, path: "/account", session: sessionSecret}, &doc); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return doc.user(), nil
}

// DeleteSession invalidates the current session.
func (c *Client) DeleteSession(ctx context.Context, sessionSecret string) error {
	if sessionSecret == "" {
		return nil
	}
	if err := c.do(ctx, call{method: http.MethodDelete, path: "/account/sessions/current", session: sessionSecret}, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
