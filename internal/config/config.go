package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable at startup.
const (
	BackendSQLite     = "sqlite"
	BackendContentAPI = "contentapi"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

type ContentAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Configured reports whether enough is set to attempt real delivery.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// APIToken grants one user access through the bearer-token middleware.
// TokenHash is a bcrypt hash; plaintext tokens never appear in config.
type APIToken struct {
	TokenHash string `yaml:"token_hash"`
	UserID    string `yaml:"user_id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
}

type AuthConfig struct {
	Tokens []APIToken `yaml:"tokens"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	ContentAPI ContentAPIConfig `yaml:"content_api"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Auth       AuthConfig       `yaml:"auth"`
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./secblog.db"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// applyEnv lets deployment environments override file settings without
// editing the config on disk. Secrets in particular arrive this way.
func (c *Config) applyEnv() {
	if v := os.Getenv("SECBLOG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SECBLOG_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SECBLOG_DB_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("SECBLOG_CONTENT_API_URL"); v != "" {
		c.ContentAPI.BaseURL = v
	}
	if v := os.Getenv("SECBLOG_CONTENT_API_TOKEN"); v != "" {
		c.ContentAPI.Token = v
	}
	if v := os.Getenv("SECBLOG_SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SECBLOG_SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SECBLOG_SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SECBLOG_SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SECBLOG_SMTP_FROM"); v != "" {
		c.SMTP.From = v
	}
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result. A missing file is not an error;
// defaults plus environment carry a development setup.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendContentAPI:
	default:
		return fmt.Errorf("storage backend %q is unknown (valid: %s, %s)",
			cfg.Storage.Backend, BackendSQLite, BackendContentAPI)
	}

	if cfg.Storage.Backend == BackendContentAPI {
		if cfg.ContentAPI.BaseURL == "" {
			return fmt.Errorf("content_api.base_url is required for the %s backend", BackendContentAPI)
		}
		u, err := url.Parse(cfg.ContentAPI.BaseURL)
		if err != nil {
			return fmt.Errorf("content_api.base_url: invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("content_api.base_url: scheme must be http or https, got %q", u.Scheme)
		}
	}

	for i, t := range cfg.Auth.Tokens {
		if t.TokenHash == "" {
			return fmt.Errorf("auth token %d: token_hash is required", i)
		}
		if t.UserID == "" {
			return fmt.Errorf("auth token %d: user_id is required", i)
		}
		switch t.Role {
		case "admin", "moderator", "author":
		default:
			return fmt.Errorf("auth token %d: unknown role %q (valid: admin, moderator, author)", i, t.Role)
		}
	}

	return nil
}
