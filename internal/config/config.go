package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DOC_STORE and BLOB_STORE.
const (
	DocStorePostgres  = "postgres"
	DocStoreFirestore = "firestore"

	BlobStoreMinIO    = "minio"
	BlobStoreFirebase = "firebase"
	BlobStoreSupabase = "supabase"

	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
	AuthModeNone     = "none"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// FirebaseConfig selects the Firebase project backing Firestore, Cloud Storage and ID tokens.
// An empty CredentialsPath falls back to application default credentials.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	StorageBucket   string
}

// SupabaseConfig holds Supabase Storage settings.
type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
}

// RedisConfig configures the optional list cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// IngestConfig bounds uploaded images.
type IngestConfig struct {
	MaxWidth int
	Quality  int
	Folder   string
}

// AuthConfig selects the admin authorization predicate.
type AuthConfig struct {
	Mode        string
	JWTSecret   string
	AdminEmails []string
	// Requests per second allowed on admin mutations, per client IP.
	RateLimit float64
	Burst     int
}

// SweepConfig schedules orphaned blob reconciliation. An empty Schedule disables it.
type SweepConfig struct {
	Schedule string
	Grace    time.Duration
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	PublicBaseURL string
	DocStore      string
	BlobStore     string
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Firebase      FirebaseConfig
	Supabase      SupabaseConfig
	Redis         RedisConfig
	Ingest        IngestConfig
	Auth          AuthConfig
	Sweep         SweepConfig
	Log           LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	port := getEnv("PORT", "8080")
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          port,
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		DocStore:      getEnv("DOC_STORE", DocStorePostgres),
		BlobStore:     getEnv("BLOB_STORE", BlobStoreMinIO),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			StorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:     getEnv("SUPABASE_BUCKET", "portfolio"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Ingest: IngestConfig{
			MaxWidth: getEnvInt("IMAGE_MAX_WIDTH", 1200),
			Quality:  getEnvInt("IMAGE_QUALITY", 85),
			Folder:   getEnv("IMAGE_FOLDER", "projects"),
		},
		Auth: AuthConfig{
			Mode:        getEnv("AUTH_MODE", AuthModeFirebase),
			JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
			AdminEmails: getEnvList("ADMIN_EMAILS"),
			RateLimit:   getEnvFloat("ADMIN_RATE_LIMIT", 2),
			Burst:       getEnvInt("ADMIN_RATE_BURST", 10),
		},
		Sweep: SweepConfig{
			Schedule: getEnv("SWEEP_SCHEDULE", ""),
			Grace:    getEnvDuration("SWEEP_GRACE", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks backend selection and the credentials each selected backend needs.
func (c *AppConfig) Validate() error {
	switch c.DocStore {
	case DocStorePostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for DOC_STORE=%s", c.DocStore)
		}
	case DocStoreFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for DOC_STORE=%s", c.DocStore)
		}
	default:
		return fmt.Errorf("unknown DOC_STORE %q", c.DocStore)
	}

	switch c.BlobStore {
	case BlobStoreMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for BLOB_STORE=%s", c.BlobStore)
		}
	case BlobStoreFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for BLOB_STORE=%s", c.BlobStore)
		}
	case BlobStoreSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for BLOB_STORE=%s", c.BlobStore)
		}
	default:
		return fmt.Errorf("unknown BLOB_STORE %q", c.BlobStore)
	}

	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for AUTH_MODE=%s", c.Auth.Mode)
		}
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required for AUTH_MODE=%s", c.Auth.Mode)
		}
	case AuthModeNone:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}

	if c.Ingest.MaxWidth <= 0 {
		return fmt.Errorf("IMAGE_MAX_WIDTH must be positive")
	}
	if c.Ingest.Quality < 1 || c.Ingest.Quality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be within [1,100]")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
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

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
