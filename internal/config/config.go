package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	S3     S3Config
	Log    LogConfig
	CORS   CORSConfig
	Books  BooksConfig
	Export ExportConfig
	Email  EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for the export archive bucket.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BooksConfig holds connection settings for the bookkeeping backend.
type BooksConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ExportConfig holds the default export filters and delivery settings.
//
// The filter defaults mirror the request fields: a request that omits
// direction/document_type/state_filter inherits these values.
type ExportConfig struct {
	Direction     string `mapstructure:"direction"`
	DocumentType  string `mapstructure:"document_type"`
	StateFilter   string `mapstructure:"state_filter"`
	SelfBilling   bool   `mapstructure:"self_billing"`
	FileExtension string `mapstructure:"file_extension"`
	SendDay       int    `mapstructure:"send_day"`
	UBLEmail      string `mapstructure:"ubl_email"`
	SummaryEmail  string `mapstructure:"summary_email"`
	SendAsZip     bool   `mapstructure:"send_as_zip"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// Load reads configuration from environment variables with the UBLEX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UBLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ublex")
	v.SetDefault("db.password", "ublex_secret")
	v.SetDefault("db.name", "ublex_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-west-1")
	v.SetDefault("s3.bucket", "ublex-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "exports")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bookkeeping backend defaults
	v.SetDefault("books.base_url", "")
	v.SetDefault("books.api_key", "")
	v.SetDefault("books.timeout_secs", 60)

	// Export defaults
	v.SetDefault("export.direction", "both")
	v.SetDefault("export.document_type", "all")
	v.SetDefault("export.state_filter", "posted_draft_bills")
	v.SetDefault("export.self_billing", false)
	v.SetDefault("export.file_extension", "xml")
	v.SetDefault("export.send_day", 5)
	v.SetDefault("export.ubl_email", "")
	v.SetDefault("export.summary_email", "")
	v.SetDefault("export.send_as_zip", true)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-west-1")
	v.SetDefault("email.from_address", "noreply@ublex.local")
	v.SetDefault("email.from_name", "UBL Export")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":           "UBLEX_SERVER_PORT",
		"server.read_timeout":   "UBLEX_SERVER_READ_TIMEOUT",
		"server.write_timeout":  "UBLEX_SERVER_WRITE_TIMEOUT",
		"server.environment":    "UBLEX_SERVER_ENVIRONMENT",
		"db.host":               "UBLEX_DB_HOST",
		"db.port":               "UBLEX_DB_PORT",
		"db.user":               "UBLEX_DB_USER",
		"db.password":           "UBLEX_DB_PASSWORD",
		"db.name":               "UBLEX_DB_NAME",
		"db.sslmode":            "UBLEX_DB_SSLMODE",
		"db.max_open":           "UBLEX_DB_MAX_OPEN",
		"db.max_idle":           "UBLEX_DB_MAX_IDLE",
		"s3.region":             "UBLEX_S3_REGION",
		"s3.bucket":             "UBLEX_S3_BUCKET",
		"s3.endpoint":           "UBLEX_S3_ENDPOINT",
		"s3.access_key":         "UBLEX_S3_ACCESS_KEY",
		"s3.secret_key":         "UBLEX_S3_SECRET_KEY",
		"s3.prefix":             "UBLEX_S3_PREFIX",
		"s3.presign_expiry":     "UBLEX_S3_PRESIGN_EXPIRY",
		"log.level":             "UBLEX_LOG_LEVEL",
		"log.format":            "UBLEX_LOG_FORMAT",
		"cors.allowed_origins":  "UBLEX_CORS_ALLOWED_ORIGINS",
		"books.base_url":        "UBLEX_BOOKS_BASE_URL",
		"books.api_key":         "UBLEX_BOOKS_API_KEY",
		"books.timeout_secs":    "UBLEX_BOOKS_TIMEOUT_SECS",
		"export.direction":      "UBLEX_EXPORT_DIRECTION",
		"export.document_type":  "UBLEX_EXPORT_DOCUMENT_TYPE",
		"export.state_filter":   "UBLEX_EXPORT_STATE_FILTER",
		"export.self_billing":   "UBLEX_EXPORT_SELF_BILLING",
		"export.file_extension": "UBLEX_EXPORT_FILE_EXTENSION",
		"export.send_day":       "UBLEX_EXPORT_SEND_DAY",
		"export.ubl_email":      "UBLEX_EXPORT_UBL_EMAIL",
		"export.summary_email":  "UBLEX_EXPORT_SUMMARY_EMAIL",
		"export.send_as_zip":    "UBLEX_EXPORT_SEND_AS_ZIP",
		"email.provider":        "UBLEX_EMAIL_PROVIDER",
		"email.region":          "UBLEX_EMAIL_REGION",
		"email.from_address":    "UBLEX_EMAIL_FROM_ADDRESS",
		"email.from_name":       "UBLEX_EMAIL_FROM_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if UBLEX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("UBLEX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		Prefix:        v.GetString("s3.prefix"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Books = BooksConfig{
		BaseURL:     v.GetString("books.base_url"),
		APIKey:      v.GetString("books.api_key"),
		TimeoutSecs: v.GetInt("books.timeout_secs"),
	}
	cfg.Export = ExportConfig{
		Direction:     v.GetString("export.direction"),
		DocumentType:  v.GetString("export.document_type"),
		StateFilter:   v.GetString("export.state_filter"),
		SelfBilling:   v.GetBool("export.self_billing"),
		FileExtension: v.GetString("export.file_extension"),
		SendDay:       v.GetInt("export.send_day"),
		UBLEmail:      v.GetString("export.ubl_email"),
		SummaryEmail:  v.GetString("export.summary_email"),
		SendAsZip:     v.GetBool("export.send_as_zip"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}

	return cfg, nil
}
