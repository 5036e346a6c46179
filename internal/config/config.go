package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// SupabaseConfig holds the hosted database/storage endpoint and its public API key.
type SupabaseConfig struct {
	URL     string
	AnonKey string
}

// Configured reports whether both the endpoint and the key are present.
func (c SupabaseConfig) Configured() bool {
	return c.URL != "" && c.AnonKey != ""
}

// StorageConfig selects and configures the object storage driver.
type StorageConfig struct {
	Driver       string // "supabase" or "s3"
	Bucket       string
	SignedURLTTL time.Duration // 0 means public URLs
	S3           S3Config
}

// S3Config holds settings for an S3-compatible endpoint (Supabase exposes one under /storage/v1/s3).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// DatabaseConfig holds PostgreSQL connection settings for the direct database driver.
type DatabaseConfig struct {
	Driver             string // "postgrest" or "postgres"
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

// BackendConfig points at the external processing service.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// PushConfig holds push notification settings.
type PushConfig struct {
	ProjectID   string
	DeviceToken string
	TokenType   string
	TokenURL    string
}

// RecorderConfig holds the ffmpeg capture settings.
type RecorderConfig struct {
	FFmpegPath  string
	InputFormat string
	InputDevice string
	OutputDir   string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port     string
	LogLevel string
	StateDir string
	Supabase SupabaseConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Backend  BackendConfig
	Push     PushConfig
	Recorder RecorderConfig
}

// HostedConfigured is the single predicate for "storage and database are reachable at all".
func (c *AppConfig) HostedConfigured() bool {
	return c.Supabase.Configured()
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	stateDir := getEnv("STATE_DIR", defaultStateDir())
	inputFormat, inputDevice := defaultInput(runtime.GOOS)

	return &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		StateDir: stateDir,
		Supabase: SupabaseConfig{
			URL:     strings.TrimRight(getEnvAny([]string{"SUPABASE_URL", "EXPO_PUBLIC_SUPABASE_URL"}, ""), "/"),
			AnonKey: getEnvAny([]string{"SUPABASE_ANON_KEY", "EXPO_PUBLIC_SUPABASE_ANON_KEY"}, ""),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "supabase"),
			Bucket:       getEnv("STORAGE_BUCKET", "recordings"),
			SignedURLTTL: getEnvDuration("STORAGE_SIGNED_URL_TTL", 0),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Region:    getEnv("S3_REGION", ""),
				UseSSL:    getEnvBool("S3_USE_SSL", true),
			},
		},
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgrest"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnvAny([]string{"BACKEND_URL", "EXPO_PUBLIC_BACKEND_URL"}, "http://localhost:8000"), "/"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 2*time.Minute),
		},
		Push: PushConfig{
			ProjectID:   getEnvAny([]string{"PUSH_PROJECT_ID", "EXPO_PUBLIC_PROJECT_ID"}, ""),
			DeviceToken: getEnv("PUSH_DEVICE_TOKEN", ""),
			TokenType:   getEnv("PUSH_TOKEN_TYPE", "fcm"),
			TokenURL:    getEnv("PUSH_TOKEN_URL", "https://exp.host/--/api/v2/push/getExpoPushToken"),
		},
		Recorder: RecorderConfig{
			FFmpegPath:  getEnv("RECORDER_FFMPEG", "ffmpeg"),
			InputFormat: getEnv("RECORDER_INPUT_FORMAT", inputFormat),
			InputDevice: getEnv("RECORDER_INPUT_DEVICE", inputDevice),
			OutputDir:   getEnv("RECORDER_OUTPUT_DIR", filepath.Join(stateDir, "recordings")),
		},
	}
}

func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "meetnote")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "meetnote")
	}
	return filepath.Join(".", ".meetnote")
}

func defaultInput(goos string) (format, device string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAny returns the first non-empty variable among keys.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
