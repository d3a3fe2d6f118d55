package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	godotenv "github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SupportedExtension = ".svg"
	SupportedMimeType  = "image/svg+xml"
	bytesPerMB         = 1024 * 1024
)

type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	UploadDir      string        `yaml:"upload_dir"`
	PublicDir      string        `yaml:"public_dir"`
	PublicPrefix   string        `yaml:"public_prefix"`
	MaxFileSizeMB  int64         `yaml:"max_file_size_mb"`
	RetentionTTL   time.Duration `yaml:"retention_ttl"`
	ReaperInterval time.Duration `yaml:"reaper_interval"`

	DbURL            string `yaml:"database_url"`
	RabbitMqURL      string `yaml:"rabbitmq_url"`
	RabbitMqExchange string `yaml:"rabbitmq_exchange"`
	AwsBucketName    string `yaml:"aws_bucket_name"`
	AwsRegion        string `yaml:"aws_region"`
	AwsS3Endpoint    string `yaml:"aws_s3_endpoint"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func NewConfig() *Config {
	return &Config{
		Host:             "0.0.0.0",
		Port:             3001,
		UploadDir:        "uploads",
		PublicDir:        "uploads/images",
		PublicPrefix:     "/uploads/images",
		MaxFileSizeMB:    10,
		RetentionTTL:     24 * time.Hour,
		ReaperInterval:   time.Hour,
		RabbitMqExchange: "image_processing",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// MaxFileSize is the upload ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.MaxFileSizeMB * bytesPerMB
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSizeMB)
	}
	if c.RetentionTTL <= 0 {
		return fmt.Errorf("RETENTION_TTL must be positive, got %s", c.RetentionTTL)
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be positive, got %s", c.ReaperInterval)
	}
	if c.UploadDir == "" || c.PublicDir == "" {
		return fmt.Errorf("UPLOAD_DIR and PUBLIC_DIR must not be empty")
	}
	if !strings.HasPrefix(c.PublicPrefix, "/") {
		return fmt.Errorf("PUBLIC_PREFIX must start with '/', got %q", c.PublicPrefix)
	}
	if c.DbURL != "" && !strings.HasPrefix(c.DbURL, "sqlite:") && !strings.HasPrefix(c.DbURL, "postgres") {
		return fmt.Errorf("DATABASE_URL must start with sqlite: or postgres")
	}
	if c.AwsBucketName != "" && c.AwsRegion == "" {
		return fmt.Errorf("AWS_REGION is required when AWS_BUCKET_NAME is set")
	}
	return nil
}

func loadDotEnv() {
	switch os.Getenv("APP_ENV") {
	case "docker":
		if err := godotenv.Overload(".env.docker"); err == nil {
			log.Println("Loaded .env.docker")
		} else {
			log.Println(".env.docker not found, using existing environment")
		}
	case "dev", "":
		if err := godotenv.Overload(".env.dev"); err == nil {
			log.Println("Loaded .env.dev")
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Println("Loaded .env")
		} else {
			log.Println("No .env.dev or .env found, using system environment variables")
		}
	default:
		fname := ".env." + os.Getenv("APP_ENV")
		if err := godotenv.Overload(fname); err == nil {
			log.Printf("Loaded %s", fname)
		} else if err := godotenv.Overload(".env"); err == nil {
			log.Println("Loaded .env")
		} else {
			log.Printf("No %s or .env found, using system environment variables", fname)
		}
	}
}

// InitializeEnvs loads .env files, an optional YAML file named by CONFIG_PATH,
// and applies environment overrides on top.
func InitializeEnvs() (*Config, error) {
	loadDotEnv()
	return Load(os.Getenv("CONFIG_PATH"))
}

// Load builds a Config from defaults, the YAML file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("PUBLIC_DIR"); v != "" {
		cfg.PublicDir = v
	}
	if v := os.Getenv("PUBLIC_PREFIX"); v != "" {
		cfg.PublicPrefix = v
	}
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_FILE_SIZE_MB %q: %w", v, err)
		}
		cfg.MaxFileSizeMB = size
	}
	if v := os.Getenv("RETENTION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RETENTION_TTL %q: %w", v, err)
		}
		cfg.RetentionTTL = ttl
	}
	if v := os.Getenv("REAPER_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REAPER_INTERVAL %q: %w", v, err)
		}
		cfg.ReaperInterval = interval
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DbURL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMqURL = v
	}
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitMqExchange = v
	}
	if v := os.Getenv("AWS_BUCKET_NAME"); v != "" {
		cfg.AwsBucketName = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AwsRegion = v
	}
	if v := os.Getenv("AWS_S3_ENDPOINT"); v != "" {
		cfg.AwsS3Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}
