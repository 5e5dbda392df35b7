package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/buildlog-app/buildlog/internal/gateway"
	httpx "github.com/buildlog-app/buildlog/internal/http"
	"github.com/buildlog-app/buildlog/internal/service/ai"
	"github.com/buildlog-app/buildlog/internal/service/analytics"
	"github.com/buildlog-app/buildlog/internal/service/auth"
	"github.com/buildlog-app/buildlog/internal/service/buildlog"
	"github.com/buildlog-app/buildlog/internal/service/project"
	"github.com/buildlog-app/buildlog/internal/ws"
	"github.com/buildlog-app/buildlog/pkg/config"
	"github.com/buildlog-app/buildlog/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to read .env", "error", err)
	}
	cfg := config.LoadAppConfig()
	log := logger.New("buildlog", cfg.Level())

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(gateway.ConfigFromApp(cfg), gateway.WithLocation(cfg.Location()))
	if err != nil {
		log.Error("failed to configure backend client", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	defer hub.Close()

	authSvc := auth.New(gw, log, cfg.SecretKey, cfg.SessionTTL)
	projectSvc := project.New(gw, log)
	logSvc := buildlog.New(gw, hub, log)
	analyticsSvc := analytics.New(gw, gw, log, analytics.WithLocation(cfg.Location()))
	aiSvc := ai.New(newCompleter(cfg, log), cfg.AIAvailable(), log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router, err := httpx.NewRouter(log, httpx.Services{
		Auth:      authSvc,
		Projects:  projectSvc,
		BuildLogs: logSvc,
		Analytics: analyticsSvc,
		AI:        aiSvc,
		Files:     gw,
	}, limiter, httpx.Options{
		CookieName:     cfg.SessionCookieName,
		CookieSecure:   cfg.CookieSecure,
		UploadMaxBytes: cfg.UploadMaxBytes,
		RateLimitAI:    cfg.RateLimitAI,
		RateLimitUp:    cfg.RateLimitUpload,
		Health:         gw.Ping,
		Location:       cfg.Location(),
	})
	if err != nil {
		log.Error("failed to build router", "error", err)
		os.Exit(1)
	}
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("buildlog server starting", "addr", cfg.Addr, "env", cfg.Environment, "ai_enabled", aiSvc.Enabled())
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("buildlog server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func newCompleter(cfg config.AppConfig, log *slog.Logger) ai.Completer {
	if !cfg.AIEnabled {
		return nil
	}
	switch cfg.AIProvider {
	case "template":
		return ai.TemplateCompleter{}
	case "openai", "":
		completer := ai.NewOpenAI(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
		if completer == nil {
			log.Info("OPENAI_API_KEY not set, AI features disabled")
			return nil
		}
		return completer
	default:
		log.Warn("unknown AI provider, AI features disabled", "provider", cfg.AIProvider)
		return nil
	}
}
