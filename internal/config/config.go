package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// App
	AppPort string `envconfig:"APP_PORT" default:"5000"`
	AppEnv  string `envconfig:"APP_ENV" default:"development"`
	// CORS allowlist, comma separated
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:5174"`
	// Base URL embedded in password reset emails
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`

	// DB
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"backend_mern"`

	// JWT; required by the API server, unused by the worker
	JWTSecret string `envconfig:"JWT_SECRET"`

	// NATS
	NatsURL string `envconfig:"NATS_URL" default:"nats://localhost:4222"`

	// S3-compatible object storage
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3Region       string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3Bucket       string `envconfig:"S3_BUCKET_NAME" default:"uploads"`
	S3AccessKey    string `envconfig:"AWS_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`

	// SMTP; worker runs in mock mode when host is empty
	SMTPHost string `envconfig:"SMTP_HOST"`
	SMTPPort string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser string `envconfig:"SMTP_USER"`
	SMTPPass string `envconfig:"SMTP_PASS"`
	SMTPFrom string `envconfig:"SMTP_FROM" default:"no-reply@localhost"`

	// Tracing
	OtelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"jaeger:4317"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL assembles the Postgres DSN the same way the services expect it.
func (c *Config) DatabaseURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=disable"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
