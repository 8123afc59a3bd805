package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	InfluxDB InfluxDBConfig
	OpenAI   OpenAIConfig
	MongoDB  MongoDBConfig
	Email    EmailConfig
	Server   ServerConfig
}

// InfluxDBConfig holds InfluxDB 2.x connection details.
type InfluxDBConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// OpenAIConfig holds the generation engine configuration. Temperature is kept
// deliberately low so repeated runs over the same telemetry stay close.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// MongoDBConfig holds document store connection details.
type MongoDBConfig struct {
	URI        string
	Username   string
	Password   string
	Host       string
	Port       string
	Database   string
	AuthSource string // database to authenticate against (default: admin)
}

// EmailConfig holds SendGrid configuration for weekly report delivery.
type EmailConfig struct {
	APIKey    string
	FromEmail string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host     string
	Port     string
	APIToken string // optional bearer token for the report routes
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		InfluxDB: InfluxDBConfig{
			URL:    getEnv("INFLUXDB2_URL", "http://localhost:8086"),
			Token:  getEnv("INFLUXDB2_TOKEN", ""),
			Org:    getEnv("INFLUXDB2_ORG", ""),
			Bucket: getEnv("INFLUXDB2_BUCKET", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.2),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 0), // 0 means model default
		},
		MongoDB: MongoDBConfig{
			URI:        getEnv("MONGODB_URI", ""),
			Username:   getEnv("MONGODB_USERNAME", ""),
			Password:   getEnv("MONGODB_PASSWORD", ""),
			Host:       getEnv("MONGODB_HOST", ""),
			Port:       getEnv("MONGODB_PORT", "27017"),
			Database:   getEnv("MONGODB_DATABASE", "reports"),
			AuthSource: getEnv("MONGODB_AUTH_SOURCE", "admin"),
		},
		Email: EmailConfig{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		},
		Server: ServerConfig{
			Host:     getEnv("HOST", "0.0.0.0"),
			Port:     getEnv("PORT", "8085"),
			APIToken: getEnv("API_TOKEN", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.InfluxDB.Token == "" {
		return fmt.Errorf("INFLUXDB2_TOKEN is required")
	}
	if cfg.InfluxDB.Org == "" {
		return fmt.Errorf("INFLUXDB2_ORG is required")
	}
	if cfg.InfluxDB.Bucket == "" {
		return fmt.Errorf("INFLUXDB2_BUCKET is required")
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
