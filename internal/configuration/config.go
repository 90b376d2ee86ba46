package configuration

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	VirusTotal VirusTotalConfig
	SMTP       SMTPConfig
	NATSURL    string
	AppURL     string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ServerConfig struct {
	Port    string
	TempDir string
	// MaxUploadBytes caps file scans before the workflow runs; the
	// reputation service rejects anything over 32MB anyway.
	MaxUploadBytes int64
}

type VirusTotalConfig struct {
	APIKey  string
	BaseURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load builds the process-wide configuration once, at startup. Core logic
// never reads the environment; it gets this struct injected.
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "guardian"),
			Password: getEnv("DB_PASSWORD", "guardian"),
			DBName:   getEnv("DB_NAME", "cyberthreat_guardian"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "5000"),
			TempDir:        getEnv("TEMP_UPLOAD_DIR", "temp-uploads"),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 26<<20),
		},
		VirusTotal: VirusTotalConfig{
			APIKey:  getEnv("VIRUS_TOTAL_API_KEY", ""),
			BaseURL: getEnv("VIRUS_TOTAL_API_URL", "https://www.virustotal.com/api/v3"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     int(getEnvInt64("SMTP_PORT", 587)),
			Username: getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_FROM", getEnv("EMAIL_USER", "")),
		},
		NATSURL: getEnv("NATS_URL", ""),
		AppURL:  getEnv("APP_URL", "http://localhost:5000"),
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
