// Package auth signs users in against the remote account API and carries
// the resulting session in a signed cookie token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/buildlog-app/buildlog/internal/domain"
	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/pkg/crypto"
	jwtpkg "github.com/buildlog-app/buildlog/pkg/jwt"
)

// MinPasswordLength mirrors the remote account API's minimum.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidEmail       = errors.New("auth: a valid email is required")
	ErrWeakPassword       = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("auth: an account with this email already exists")
	ErrInvalidToken       = errors.New("auth: invalid session token")
)

// Service handles sign-in, registration and session tokens.
type Service struct {
	accounts repository.AccountStore
	logger   *slog.Logger
	secret   string
	ttl      time.Duration
}

// New constructs a Service. secret signs tokens and seals session secrets.
func New(accounts repository.AccountStore, logger *slog.Logger, secret string, ttl time.Duration) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return Service{accounts: accounts, logger: logger, secret: secret, ttl: ttl}
}

// TTL returns the lifetime of issued tokens.
func (s Service) TTL() time.Duration {
	return s.ttl
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

// Login opens a remote session and loads the account behind it.
func (s Service) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	secret, err := s.accounts.CreateSession(ctx, addr, password)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthorized) || errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user, err := s.accounts.GetAccount(ctx, secret)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return &domain.Session{User: *user, Secret: secret}, nil
}

// Register creates an account and signs it in.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.Session, error) {
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	user, err := s.accounts.CreateAccount(ctx, strings.TrimSpace(name), addr, password)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return s.Login(ctx, addr, password)
}

// Logout ends the remote session. Failures are logged and swallowed so the
// caller can always clear its cookie.
func (s Service) Logout(ctx context.Context, secret string) {
	if strings.TrimSpace(secret) == "" {
		return
	}
	if err := s.accounts.DeleteSession(ctx, secret); err != nil {
		s.logger.Warn("failed to delete remote session", "error", err)
	}
}

// Issue signs a cookie token for session.
func (s Service) Issue(session domain.Session) (string, error) {
	sealed, err := crypto.SealString(s.secret, session.Secret)
	if err != nil {
		return "", err
	}
	return jwtpkg.GenerateToken(jwtpkg.Identity{
		UserID:  session.User.ID,
		Email:   session.User.Email,
		Name:    session.User.Name,
		Session: sealed,
	}, s.secret, s.ttl)
}

// Parse validates token and recovers the session it carries.
func (s Service) Parse(token string) (*domain.Session, error) {
	claims, err := jwtpkg.Parse(token, s.secret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id := claims.Identity()
	secret, err := crypto.OpenString(s.secret, id.Session)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &domain.Session{
		User:   domain.User{ID: id.UserID, Email: id.Email, Name: id.Name},
		Secret: secret,
	}, nil
}
