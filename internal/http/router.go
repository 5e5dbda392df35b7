package httpx

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buildlog-app/buildlog/internal/repository"
	"github.com/buildlog-app/buildlog/internal/service/ai"
	"github.com/buildlog-app/buildlog/internal/service/analytics"
	"github.com/buildlog-app/buildlog/internal/service/auth"
	"github.com/buildlog-app/buildlog/internal/service/buildlog"
	"github.com/buildlog-app/buildlog/internal/service/project"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	rateWindowDefault  = time.Minute
	rateLimitLogin     = 12
	upstreamTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// Services bundles the domain services the router dispatches to.
type Services struct {
	Auth      auth.Service
	Projects  project.Service
	BuildLogs buildlog.Service
	Analytics analytics.Service
	AI        ai.Service
	Files     repository.FileStore
}

// Options tunes router behaviour.
type Options struct {
	CookieName     string
	CookieSecure   bool
	UploadMaxBytes int64
	RateLimitAI    int
	RateLimitUp    int
	// Health probes the remote backend for /health.
	Health func(context.Context) error
	// Location is the zone pages and exports display timestamps in.
	Location *time.Location
}

// Router wires HTTP endpoints to services.
type Router struct {
	engine    *gin.Engine
	logger    *slog.Logger
	auth      auth.Service
	projects  project.Service
	logs      buildlog.Service
	analytics analytics.Service
	ai        ai.Service
	files     repository.FileStore
	limiter   RateLimiter
	upgrader  websocket.Upgrader
	opts      Options

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	uploadBytes        prometheus.Counter
	liveSubscribers    prometheus.Gauge
}

// NewRouter assembles routes with dependencies. A nil limiter falls back to
// the in-memory implementation.
func NewRouter(logger *slog.Logger, svcs Services, limiter RateLimiter, opts Options) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if svcs.Files == nil {
		return nil, errors.New("file store is required")
	}
	if strings.TrimSpace(opts.CookieName) == "" {
		opts.CookieName = "buildlog_session"
	}
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 10 << 20
	}
	r := &Router{
		engine:    gin.New(),
		logger:    logger,
		auth:      svcs.Auth,
		projects:  svcs.Projects,
		logs:      svcs.BuildLogs,
		analytics: svcs.Analytics,
		ai:        svcs.AI,
		files:     svcs.Files,
		limiter:   limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	tmpl, err := template.New("base").Funcs(templateFuncs(opts.Location)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r.engine.SetHTMLTemplate(tmpl)
	r.initMetrics()
	r.engine.Use(r.audit(), gin.Recovery())
	r.register()
	return r, nil
}

// ServeHTTP delegates to the gin engine.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	e := r.engine
	e.GET("/health", r.handleHealth)
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	e.GET("/", r.handleIndex)
	e.GET("/login", r.handleLoginForm)
	e.POST("/login", r.rateLimit("login", rateLimitLogin, rateWindowDefault), r.handleLogin)
	e.GET("/register", r.handleRegisterForm)
	e.POST("/register", r.rateLimit("register", rateLimitLogin, rateWindowDefault), r.handleRegister)
	e.POST("/logout", r.handleLogout)
	e.GET("/portfolio/:id", r.handlePortfolio)
	e.GET("/files/:id", r.handleFile)
	e.GET("/ai/status", r.handleAIStatus)

	pages := e.Group("/", r.requirePage())
	pages.GET("/dashboard", r.handleDashboard)
	pages.GET("/analytics", r.handleAnalyticsPage)
	pages.GET("/projects/new", r.handleProjectNewForm)
	pages.POST("/projects/new", r.handleProjectCreate)
	pages.GET("/projects/:id", r.handleProjectDetail)
	pages.GET("/projects/:id/edit", r.handleProjectEditForm)
	pages.POST("/projects/:id/edit", r.handleProjectUpdate)
	pages.POST("/projects/:id/delete", r.handleProjectDelete)
	pages.GET("/projects/:id/logs/new", r.handleLogNewForm)
	pages.POST("/projects/:id/logs/new", r.handleLogCreate)
	pages.GET("/projects/:id/logs/:logID/edit", r.handleLogEditForm)
	pages.POST("/projects/:id/logs/:logID/edit", r.handleLogUpdate)
	pages.POST("/projects/:id/logs/:logID/delete", r.handleLogDelete)
	pages.GET("/projects/:id/export", r.handleExport)

	api := e.Group("/", r.requireAPI())
	api.GET("/api/analytics", r.handleAnalyticsAPI)
	api.POST("/upload", r.rateLimit("upload", r.opts.RateLimitUp, rateWindowDefault), r.handleUpload)
	api.GET("/ws/projects/:id/logs", r.handleLogsWS)

	aiRoutes := api.Group("/ai", r.rateLimit("ai", r.opts.RateLimitAI, rateWindowDefault))
	aiRoutes.POST("/generate-description", r.handleGenerateDescription)
	aiRoutes.POST("/generate-log-content", r.handleGenerateLogContent)
	aiRoutes.POST("/generate", r.handleGenerate)

	e.NoRoute(func(c *gin.Context) {
		r.renderError(c, http.StatusNotFound, "Page not found")
	})
}

func (r *Router) handleHealth(c *gin.Context) {
	components := make(map[string]any)
	status := "healthy"
	if r.opts.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.opts.Health(ctx); err != nil {
			status = "degraded"
			components["backend"] = gin.H{"status": "down", "error": err.Error()}
		} else {
			components["backend"] = gin.H{"status": "up"}
		}
	}
	components["ai"] = gin.H{"enabled": r.ai.Enabled()}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"service":    "BuildLog API",
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		r.recordRequestMetrics(c.Request.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", reqID,
		}
		if session, ok := sessionFromContext(c); ok {
			actor = "user"
			fields = append(fields, "user_id", session.User.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}
