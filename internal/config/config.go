// Package config loads the service configuration from a YAML file, a .env
// file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Security  SecurityConfig  `yaml:"security"`
	Mail      MailConfig      `yaml:"mail"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	// Registry maps the form ids handled by the pipeline to their type.
	Registry map[int]string `yaml:"registry"`
	Forms    []FormConfig   `yaml:"forms"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type PipelineConfig struct {
	Routes        []string `yaml:"routes"`
	DefaultLocale string   `yaml:"defaultLocale"`
	MaxBodyBytes  int64    `yaml:"maxBodyBytes"`
}

type SecurityConfig struct {
	Secret     string `yaml:"secret"`
	BcryptCost int    `yaml:"bcryptCost"`
	// VerifyTokens enables checksum verification in the form engine.
	VerifyTokens bool `yaml:"verifyTokens"`
}

type MailConfig struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
	// MaxConcurrent bounds parallel deliveries.
	MaxConcurrent int `yaml:"maxConcurrent"`
}

type RateLimitConfig struct {
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	IdleTTL time.Duration `yaml:"idleTTL"`
}

// FormConfig defines one form of the built-in engine.
type FormConfig struct {
	ID          int               `yaml:"id"`
	Type        string            `yaml:"type"`
	Name        string            `yaml:"name"`
	Subject     string            `yaml:"subject"`
	Receivers   []string          `yaml:"receivers"`
	SuccessText map[string]string `yaml:"successText"`
	Fields      []FieldConfig     `yaml:"fields"`
}

type FieldConfig struct {
	Name  string `yaml:"name"`
	Rules string `yaml:"rules"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Pipeline: PipelineConfig{
			Routes:        []string{"/contact.json"},
			DefaultLocale: "en",
			MaxBodyBytes:  1 << 20,
		},
		Security: SecurityConfig{
			BcryptCost:   10,
			VerifyTokens: true,
		},
		Mail: MailConfig{
			From:          "no-reply@localhost",
			To:            []string{"admin@localhost"},
			MaxConcurrent: 4,
		},
		RateLimit: RateLimitConfig{
			RPS:     5,
			Burst:   10,
			IdleTTL: 10 * time.Minute,
		},
		Registry: map[int]string{2: "contact_form"},
		Forms: []FormConfig{{
			ID:      2,
			Type:    "contact",
			Name:    "Contact",
			Subject: "New contact request",
			SuccessText: map[string]string{
				"en": "Thank you for your submission!",
				"de": "Vielen Dank für Ihre Nachricht!",
			},
			Fields: []FieldConfig{
				{Name: "firstName", Rules: "max=100"},
				{Name: "lastName", Rules: "max=100"},
				{Name: "email", Rules: "required,email"},
				{Name: "message", Rules: "required,max=5000"},
			},
		}},
	}
}

// DefaultPaths are tried in order when Load gets no explicit path.
var DefaultPaths = []string{
	"formgate.yaml",
	"configs/formgate.yaml",
}

// Load reads the configuration. An explicit path must exist; without one
// the first readable default path is used, if any. envFiles default to
// ".env"; missing env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	candidates := DefaultPaths
	if path != "" {
		candidates = []string{path}
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return Config{}, fmt.Errorf("read config %s: %w", candidate, err)
			}
			continue
		}
		if err := Parse(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", candidate, err)
		}
		break
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML data over cfg. Keys absent from data keep their
// current values; lists and maps present in data replace them.
func Parse(cfg *Config, data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["registry"]; ok {
		cfg.Registry = nil
	}
	if _, ok := raw["forms"]; ok {
		cfg.Forms = nil
	}
	return yaml.Unmarshal(data, cfg)
}

// ApplyEnvOverrides applies the FORMGATE_* and mailer variables.
func ApplyEnvOverrides(cfg *Config) error {
	if v := env("FORMGATE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := env("APP_SECRET"); v != "" {
		cfg.Security.Secret = v
	}
	if v := env("MAILER_FROM_EMAIL"); v != "" {
		cfg.Mail.From = v
	}
	if v := env("MAILER_TO_EMAIL"); v != "" {
		cfg.Mail.To = splitList(v)
	}
	if v := env("FORMGATE_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FORMGATE_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}
	if v := env("FORMGATE_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FORMGATE_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = burst
	}
	return nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr is required")
	}
	if len(c.Pipeline.Routes) == 0 {
		return errors.New("config: pipeline.routes must not be empty")
	}
	if c.Security.Secret == "" {
		return errors.New("config: security.secret (APP_SECRET) is required")
	}
	seen := make(map[int]bool, len(c.Forms))
	for _, f := range c.Forms {
		if seen[f.ID] {
			return fmt.Errorf("config: duplicate form id %d", f.ID)
		}
		seen[f.ID] = true
		for _, field := range f.Fields {
			if field.Name == "" {
				return fmt.Errorf("config: form %d has a field without name", f.ID)
			}
		}
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
