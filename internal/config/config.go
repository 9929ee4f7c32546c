package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Storage      StorageConfig
	Slack        SlackConfig
	Notification NotificationConfig
	Cron         CronConfig
	Agent        AgentConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret            string
	RefreshExpiration string
	AccessExpiration  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	FrontendOrigin []string
	Timezone       string
}

// StorageConfig selects where receipts and exports are written.
type StorageConfig struct {
	Type     string // local or s3
	BasePath string
	BaseURL  string
	Bucket   string
	Region   string
	Prefix   string
}

type SlackConfig struct {
	BotToken          string
	SupervisorChannel string
}

type NotificationConfig struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

type CronConfig struct {
	AutoCheckoutInterval time.Duration
	AutoCheckoutGrace    time.Duration
}

// AgentConfig configures the crew device agent.
type AgentConfig struct {
	APIBaseURL        string
	ClientID          string
	Username          string
	Password          string
	QueueDir          string
	SyncInterval      time.Duration
	ProbeTimeout      time.Duration
	GPSRefresh        time.Duration
	RequiredAccuracy  float64
	StaticLatitude    float64
	StaticLongitude   float64
	StaticAccuracy    float64
	GeocoderURL       string
	GeocoderUserAgent string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "crew-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		FrontendOrigin: getEnvSlice("FRONTEND_ORIGIN"),
		Timezone:       getEnv("APP_TIMEZONE", "Europe/Rome"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:            getEnv("JWT_SECRET_KEY", ""),
		RefreshExpiration: getEnv("JWT_REFRESH_EXPIRATION_TIME", "168h"),
		AccessExpiration:  getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", "local"),
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "/uploads"),
		Bucket:   getEnv("STORAGE_S3_BUCKET", ""),
		Region:   getEnv("STORAGE_S3_REGION", "eu-south-1"),
		Prefix:   getEnv("STORAGE_S3_PREFIX", ""),
	}

	config.Slack = SlackConfig{
		BotToken:          getEnv("SLACK_BOT_TOKEN", ""),
		SupervisorChannel: getEnv("SLACK_SUPERVISOR_CHANNEL", ""),
	}

	workers, err := getEnvInt("NOTIFICATION_WORKERS", 3)
	if err != nil {
		return nil, err
	}
	batchSize, err := getEnvInt("NOTIFICATION_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	queueSize, err := getEnvInt("NOTIFICATION_QUEUE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	flushInterval, err := getEnvDuration("NOTIFICATION_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	config.Notification = NotificationConfig{
		Workers:       workers,
		BatchSize:     batchSize,
		FlushInterval: flushInterval,
		QueueSize:     queueSize,
	}

	autoCheckoutInterval, err := getEnvDuration("CRON_AUTO_CHECKOUT_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	autoCheckoutGrace, err := getEnvDuration("CRON_AUTO_CHECKOUT_GRACE", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	config.Cron = CronConfig{
		AutoCheckoutInterval: autoCheckoutInterval,
		AutoCheckoutGrace:    autoCheckoutGrace,
	}

	agent, err := loadAgent()
	if err != nil {
		return nil, err
	}
	config.Agent = agent

	return config, nil
}

func loadAgent() (AgentConfig, error) {
	syncInterval, err := getEnvDuration("AGENT_SYNC_INTERVAL", 30*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	probeTimeout, err := getEnvDuration("AGENT_PROBE_TIMEOUT", 5*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	gpsRefresh, err := getEnvDuration("AGENT_GPS_REFRESH", 5*time.Minute)
	if err != nil {
		return AgentConfig{}, err
	}
	accuracy, err := getEnvFloat("AGENT_REQUIRED_ACCURACY", 50)
	if err != nil {
		return AgentConfig{}, err
	}
	lat, err := getEnvFloat("AGENT_STATIC_LATITUDE", 0)
	if err != nil {
		return AgentConfig{}, err
	}
	lng, err := getEnvFloat("AGENT_STATIC_LONGITUDE", 0)
	if err != nil {
		return AgentConfig{}, err
	}
	staticAccuracy, err := getEnvFloat("AGENT_STATIC_ACCURACY", 10)
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{
		APIBaseURL:        strings.TrimRight(getEnv("AGENT_API_BASE_URL", "http://localhost:8080"), "/"),
		ClientID:          getEnv("AGENT_CLIENT_ID", "crew-agent"),
		Username:          getEnv("AGENT_USERNAME", ""),
		Password:          getEnv("AGENT_PASSWORD", ""),
		QueueDir:          getEnv("AGENT_QUEUE_DIR", "./.crew-agent"),
		SyncInterval:      syncInterval,
		ProbeTimeout:      probeTimeout,
		GPSRefresh:        gpsRefresh,
		RequiredAccuracy:  accuracy,
		StaticLatitude:    lat,
		StaticLongitude:   lng,
		StaticAccuracy:    staticAccuracy,
		GeocoderURL:       getEnv("AGENT_GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("AGENT_GEOCODER_USER_AGENT", "crew-attendance-agent/1.0"),
	}, nil
}

// Validate validates the configuration required by the API server
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("STORAGE_TYPE must be local or s3")
	}
	if c.Storage.Type == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_S3_BUCKET is required when STORAGE_TYPE=s3")
	}
	return nil
}

// ValidateAgent validates the configuration required by the device agent
func (c *Config) ValidateAgent() error {
	if c.Agent.APIBaseURL == "" {
		return fmt.Errorf("AGENT_API_BASE_URL is required")
	}
	if c.Agent.Username == "" {
		return fmt.Errorf("AGENT_USERNAME is required")
	}
	if c.Agent.Password == "" {
		return fmt.Errorf("AGENT_PASSWORD is required")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
