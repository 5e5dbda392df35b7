package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AppConfig holds runtime configuration for the BuildLog server and CLI.
type AppConfig struct {
	Environment string
	Addr        string
	Debug       bool
	LogLevel    string

	AppwriteEndpoint     string
	AppwriteProjectID    string
	AppwriteAPIKey       string
	DatabaseID           string
	ProjectsCollectionID string
	BuildLogsCollection  string
	StorageBucketID      string
	GatewayTimeout       time.Duration

	SecretKey         string
	SessionCookieName string
	SessionTTL        time.Duration
	CookieSecure      bool

	AIEnabled     bool
	AIProvider    string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	RateLimitAI        int
	RateLimitUpload    int

	UploadMaxBytes    int64
	AnalyticsTimezone string
}

// LoadAppConfig constructs an AppConfig from environment variables.
func LoadAppConfig() AppConfig {
	return AppConfig{
		Environment:          GetString("APP_ENV", "development"),
		Addr:                 GetString("ADDR", ":8000"),
		Debug:                GetBool("DEBUG", true),
		LogLevel:             GetString("LOG_LEVEL", ""),
		AppwriteEndpoint:     GetString("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
		AppwriteProjectID:    GetString("APPWRITE_PROJECT_ID", ""),
		AppwriteAPIKey:       GetString("APPWRITE_API_KEY", ""),
		DatabaseID:           GetString("APPWRITE_DATABASE_ID", "buildlog_db"),
		ProjectsCollectionID: GetString("APPWRITE_PROJECTS_COLLECTION_ID", "projects"),
		BuildLogsCollection:  GetString("APPWRITE_BUILD_LOGS_COLLECTION_ID", "build_logs"),
		StorageBucketID:      GetString("APPWRITE_STORAGE_BUCKET_ID", "buildlog_files"),
		GatewayTimeout:       GetSeconds("APPWRITE_TIMEOUT_SECONDS", 15*time.Second),
		SecretKey:            GetString("SECRET_KEY", ""),
		SessionCookieName:    GetString("SESSION_COOKIE_NAME", "buildlog_session"),
		SessionTTL:           time.Duration(GetInt("SESSION_TTL_HOURS", 168)) * time.Hour,
		CookieSecure:         GetBool("COOKIE_SECURE", false),
		AIEnabled:            GetBool("AI_ENABLED", true),
		AIProvider:           strings.ToLower(strings.TrimSpace(GetString("AI_PROVIDER", "openai"))),
		OpenAIAPIKey:         GetString("OPENAI_API_KEY", ""),
		OpenAIModel:          GetString("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:        GetString("OPENAI_BASE_URL", ""),
		OpenAITimeout:        GetSeconds("OPENAI_TIMEOUT_SECONDS", 30*time.Second),
		RateLimitRedisAddr:   GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:   GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:     GetInt("RATE_LIMIT_REDIS_DB", 0),
		RateLimitAI:          GetInt("RATE_LIMIT_AI_PER_MINUTE", 20),
		RateLimitUpload:      GetInt("RATE_LIMIT_UPLOAD_PER_MINUTE", 30),
		UploadMaxBytes:       GetInt64("UPLOAD_MAX_BYTES", 10<<20),
		AnalyticsTimezone:    GetString("ANALYTICS_TIMEZONE", "Local"),
	}
}

// Validate reports required settings that are missing.
func (c AppConfig) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"APPWRITE_PROJECT_ID", c.AppwriteProjectID},
		{"APPWRITE_API_KEY", c.AppwriteAPIKey},
		{"SECRET_KEY", c.SecretKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Level resolves the slog level from LOG_LEVEL, falling back to debug when
// DEBUG is set and info otherwise.
func (c AppConfig) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Location resolves the analytics timezone, defaulting to the process local zone.
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.AnalyticsTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// AIAvailable reports whether the configured AI provider can serve requests.
func (c AppConfig) AIAvailable() bool {
	if !c.AIEnabled {
		return false
	}
	if c.AIProvider == "template" {
		return true
	}
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}
