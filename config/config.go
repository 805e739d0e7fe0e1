package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	PublicBaseURL      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Content store behaviour
	StoreTimeoutMS int
	FeedPageSize   int
	// Redis for caching and token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Media uploads
	UploadMaxBytes int64
	UploadDir      string

	Storage StorageConfig
	Events  EventsConfig
}

// StorageConfig selects the primary object store for media.
type StorageConfig struct {
	Backend string // disk, minio or gcs
	Minio   MinioConfig
	GCS     GCSConfig
}

// MinioConfig configures the MinIO backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
	PublicURL       string
}

// EventsConfig selects the broker domain events are relayed through.
type EventsConfig struct {
	Backend  string // none, nats, rabbitmq or pubsub
	Channel  string
	NATS     NATSConfig
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

// NATSConfig configures the NATS backend.
type NATSConfig struct {
	URL string
}

// RabbitMQConfig configures the RabbitMQ backend.
type RabbitMQConfig struct {
	URL           string
	PrefetchCount int
}

// PubSubConfig configures the Google Cloud Pub/Sub backend.
type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionPrefix string
}

// StoreTimeout is the bound applied to each content store operation.
func (c AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// TokenTTL is the lifetime of issued session tokens.
func (c AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := Parse(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatal(err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Commands and tests use it to inject settings.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// Parse builds a configuration without caching it.
// Precedence: .env (APP_ENV=dev only) -> JSON file -> defaults -> environment variable overrides.
func Parse(path string) (AppConfig, error) {
	if os.Getenv("APP_ENV") == "dev" {
		_ = godotenv.Load()
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}

	if c.JWTSecret == "" {
		return c, errors.New("JWT_SECRET must be set in environment variables")
	}
	return c, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	section := func(m map[string]any, key string) map[string]any {
		s, _ := m[key].(map[string]any)
		return s
	}

	if app := section(raw, "app"); app != nil {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.PublicBaseURL = getString(app, "PublicBaseURL")
		out.StoreTimeoutMS = getInt(app, "StoreTimeoutMS")
		out.FeedPageSize = getInt(app, "FeedPageSize")
		out.UploadMaxBytes = int64(getInt(app, "UploadMaxBytes"))
		out.UploadDir = getString(app, "UploadDir")
	}

	if dbs := section(raw, "database"); dbs != nil {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds := section(raw, "redis"); rds != nil {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg := section(raw, "log"); lg != nil {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if st := section(raw, "storage"); st != nil {
		out.Storage.Backend = getString(st, "Backend")
		if mn := section(st, "minio"); mn != nil {
			out.Storage.Minio = MinioConfig{
				Endpoint:  getString(mn, "Endpoint"),
				AccessKey: getString(mn, "AccessKey"),
				SecretKey: getString(mn, "SecretKey"),
				Bucket:    getString(mn, "Bucket"),
				UseSSL:    getBool(mn, "UseSSL"),
				PublicURL: getString(mn, "PublicURL"),
			}
		}
		if gc := section(st, "gcs"); gc != nil {
			out.Storage.GCS = GCSConfig{
				Bucket:          getString(gc, "Bucket"),
				ProjectID:       getString(gc, "ProjectID"),
				CredentialsFile: getString(gc, "CredentialsFile"),
				PublicURL:       getString(gc, "PublicURL"),
			}
		}
	}

	if ev := section(raw, "events"); ev != nil {
		out.Events.Backend = getString(ev, "Backend")
		out.Events.Channel = getString(ev, "Channel")
		if n := section(ev, "nats"); n != nil {
			out.Events.NATS.URL = getString(n, "URL")
		}
		if r := section(ev, "rabbitmq"); r != nil {
			out.Events.RabbitMQ = RabbitMQConfig{URL: getString(r, "URL"), PrefetchCount: getInt(r, "PrefetchCount")}
		}
		if p := section(ev, "pubsub"); p != nil {
			out.Events.PubSub = PubSubConfig{
				ProjectID:          getString(p, "ProjectID"),
				CredentialsFile:    getString(p, "CredentialsFile"),
				SubscriptionPrefix: getString(p, "SubscriptionPrefix"),
			}
		}
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "social"
	}
	if c.StoreTimeoutMS == 0 {
		c.StoreTimeoutMS = 5000
	}
	if c.FeedPageSize == 0 {
		c.FeedPageSize = 10
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadMaxBytes == 0 {
		c.UploadMaxBytes = 10 << 20
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "disk"
	}
	if c.Events.Backend == "" {
		c.Events.Backend = "none"
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "social.events"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, errors.New("invalid integer value for "+key+": "+v))
				return
			}
			*dst = i
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	setInt("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	setString("PUBLIC_BASE_URL", &c.PublicBaseURL)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)

	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)
	setInt("STORE_TIMEOUT_MS", &c.StoreTimeoutMS)
	setInt("FEED_PAGE_SIZE", &c.FeedPageSize)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	if v := getEnv("UPLOAD_MAX_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, errors.New("invalid integer value for UPLOAD_MAX_BYTES: "+v))
		} else {
			c.UploadMaxBytes = n
		}
	}
	setString("UPLOAD_DIR", &c.UploadDir)

	setString("STORAGE_BACKEND", &c.Storage.Backend)
	setString("MINIO_ENDPOINT", &c.Storage.Minio.Endpoint)
	setString("MINIO_ACCESS_KEY", &c.Storage.Minio.AccessKey)
	setString("MINIO_SECRET_KEY", &c.Storage.Minio.SecretKey)
	setString("MINIO_BUCKET", &c.Storage.Minio.Bucket)
	setBool("MINIO_USE_SSL", &c.Storage.Minio.UseSSL)
	setString("MINIO_PUBLIC_URL", &c.Storage.Minio.PublicURL)
	setString("GCS_BUCKET", &c.Storage.GCS.Bucket)
	setString("GCS_PROJECT_ID", &c.Storage.GCS.ProjectID)
	setString("GCS_CREDENTIALS_FILE", &c.Storage.GCS.CredentialsFile)
	setString("GCS_PUBLIC_URL", &c.Storage.GCS.PublicURL)

	setString("EVENTS_BACKEND", &c.Events.Backend)
	setString("EVENTS_CHANNEL", &c.Events.Channel)
	setString("NATS_URL", &c.Events.NATS.URL)
	setString("RABBITMQ_URL", &c.Events.RabbitMQ.URL)
	setInt("RABBITMQ_PREFETCH", &c.Events.RabbitMQ.PrefetchCount)
	setString("PUBSUB_PROJECT_ID", &c.Events.PubSub.ProjectID)
	setString("PUBSUB_CREDENTIALS_FILE", &c.Events.PubSub.CredentialsFile)
	setString("PUBSUB_SUBSCRIPTION_PREFIX", &c.Events.PubSub.SubscriptionPrefix)

	return errors.Join(errs...)
}

func readListEnv(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaults
	}
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
