package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	App        AppConfig        `yaml:"app"`
	Waitlist   WaitlistConfig   `yaml:"waitlist"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Log        LogConfig        `yaml:"log"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	ExpireHour        int    `yaml:"expire_hour"`
	RefreshExpireHour int    `yaml:"refresh_expire_hour"`
}

// RedisConfig for the optional task queue and checkout guard
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CheckoutConfig points at the payment provider's session function.
type CheckoutConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"api_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	GuardTTL      time.Duration `yaml:"guard_ttl"`
}

type AppConfig struct {
	PublicURL        string `yaml:"public_url"`
	JoinRedirectMs   int    `yaml:"join_redirect_ms"`
	SignupPath       string `yaml:"signup_path"`
	LogRetentionDays int    `yaml:"log_retention_days"`
	AdminEmail       string `yaml:"admin_email"`
	AdminPassword    string `yaml:"admin_password"`
}

type WaitlistConfig struct {
	DefaultSource string  `yaml:"default_source"`
	RPS           float64 `yaml:"rps"`
	Burst         int     `yaml:"burst"`
}

type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MigrationsConfig struct {
	ManualDir string `yaml:"manual_dir"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "creatorclub.db",
		},
		JWT: JWTConfig{
			Secret:            "creatorclub-secret-key-change-in-production",
			ExpireHour:        24,
			RefreshExpireHour: 720,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Checkout: CheckoutConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
			SessionTTL: 30 * time.Minute,
			GuardTTL:   15 * time.Second,
		},
		App: AppConfig{
			PublicURL:        "http://localhost:3000",
			JoinRedirectMs:   1000,
			SignupPath:       "/auth/signup",
			LogRetentionDays: 30,
		},
		Waitlist: WaitlistConfig{
			DefaultSource: "landing_page",
			RPS:           1,
			Burst:         5,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Log: LogConfig{
			Level: "info",
		},
		Migrations: MigrationsConfig{
			ManualDir: "migrations/manual",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if endpoint := os.Getenv("CHECKOUT_ENDPOINT"); endpoint != "" {
		c.Checkout.Endpoint = endpoint
	}
	if apiKey := os.Getenv("CHECKOUT_API_KEY"); apiKey != "" {
		c.Checkout.APIKey = apiKey
	}
	if secret := os.Getenv("CHECKOUT_WEBHOOK_SECRET"); secret != "" {
		c.Checkout.WebhookSecret = secret
	}
	if publicURL := os.Getenv("APP_PUBLIC_URL"); publicURL != "" {
		c.App.PublicURL = strings.TrimRight(publicURL, "/")
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		c.App.AdminEmail = email
	}
	if pass := os.Getenv("ADMIN_PASSWORD"); pass != "" {
		c.App.AdminPassword = pass
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.SMTP.Enabled = true
		c.SMTP.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.SMTP.Port = p
		}
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		c.SMTP.Username = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.SMTP.Password = pass
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		c.SMTP.From = from
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// HasDatabase reports whether a connection can be attempted at all.
func (c *Config) HasDatabase() bool {
	return c.Database.Driver != "" && c.Database.DSN != ""
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
