package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DevJWTSecret is used when no secret is configured. Only suitable for local runs.
const DevJWTSecret = "huna-dev-secret-change-me"

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port                   string `yaml:"port"`
		ShutdownTimeoutSeconds int64  `yaml:"shutdown_timeout_seconds"`
		MaxUploadMB            int64  `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Log struct {
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"log"`
	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		URL  string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		Username      string `yaml:"username"`
		Password      string `yaml:"password"`
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int64  `yaml:"token_ttl_hours"`
		CookieName    string `yaml:"cookie_name"`
		SecureCookie  bool   `yaml:"secure_cookie"`
	} `yaml:"auth"`
	Branding Branding `yaml:"branding"`
	Results  struct {
		DiscardedPath string `yaml:"discarded_path"`
		RankedPath    string `yaml:"ranked_path"`
		RiskColumn    string `yaml:"risk_column"`
	} `yaml:"results"`
	Delays Delays `yaml:"delays"`
}

// Branding is the presentation copy shown on every page.
type Branding struct {
	PageTitle   string `yaml:"page_title"`
	Heading     string `yaml:"heading"`
	Tagline     string `yaml:"tagline"`
	LogoPath    string `yaml:"logo_path"`
	TemplateURL string `yaml:"template_url"`
	GuideURL    string `yaml:"guide_url"`
	HelpURL     string `yaml:"help_url"`
	BugURL      string `yaml:"bug_url"`
}

// Delays are the scripted wait times, in seconds, of each simulated processing stage.
// Pointers distinguish "unset" from an explicit zero.
type Delays struct {
	LoadingSeconds      *float64 `yaml:"loading_seconds"`
	ProcessingSeconds   *float64 `yaml:"processing_seconds"`
	TransformingSeconds *float64 `yaml:"transforming_seconds"`
	InferenceSeconds    *float64 `yaml:"inference_seconds"`
}

// Durations returns the delays keyed by stage name.
func (d Delays) Durations() map[string]time.Duration {
	return map[string]time.Duration{
		"loading":      seconds(d.LoadingSeconds),
		"processing":   seconds(d.ProcessingSeconds),
		"transforming": seconds(d.TransformingSeconds),
		"inferring":    seconds(d.InferenceSeconds),
	}
}

func seconds(v *float64) time.Duration {
	if v == nil || *v <= 0 {
		return 0
	}
	return time.Duration(*v * float64(time.Second))
}

// TokenTTL returns how long an issued session token stays valid.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the multipart memory limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)
	config.Auth.Password = os.ExpandEnv(config.Auth.Password)
	config.Database.URL = os.ExpandEnv(config.Database.URL)

	config.ApplyDefaults()

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return nil, fmt.Errorf("unsupported database type %q", config.Database.Type)
	}

	return config, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8501"
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 32
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.URL == "" && c.Database.Type == "sqlite" {
		c.Database.URL = "./data/dashboard.db"
	}

	if c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.Auth.Password == "" {
		c.Auth.Password = "admin"
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DevJWTSecret
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "huna_session"
	}

	b := &c.Branding
	if b.PageTitle == "" {
		b.PageTitle = "Huna ai"
	}
	if b.Heading == "" {
		b.Heading = "Plataforma de rastreamento de câncer da Huna"
	}
	if b.Tagline == "" {
		b.Tagline = "A Huna fornece soluções acessíveis baseadas em IA para detecção precoce do câncer."
	}
	if b.LogoPath == "" {
		b.LogoPath = "huna.png"
	}
	if b.TemplateURL == "" {
		b.TemplateURL = "https://docs.google.com/spreadsheets/d/1ibIFINcDmMcy4H-68_9WzWkFbY1-8mcqiLQmotre-B0/edit?usp=sharing"
	}
	if b.GuideURL == "" {
		b.GuideURL = "https://docs.google.com/document/d/1MzKQbJtei3azss6x3hppbS4jwN8PwK-PFTs6Cf_6ZsA/edit?usp=sharing"
	}
	if b.HelpURL == "" {
		b.HelpURL = "https://www.hunaai.com/help"
	}
	if b.BugURL == "" {
		b.BugURL = "https://www.hunaai.com/bug"
	}

	if c.Results.DiscardedPath == "" {
		c.Results.DiscardedPath = "medsenior_discarded.xlsx"
	}
	if c.Results.RankedPath == "" {
		c.Results.RankedPath = "final_medsenior_rankeado_cliente_final.xlsx"
	}
	if c.Results.RiskColumn == "" {
		c.Results.RiskColumn = "RISCO"
	}

	setDefault(&c.Delays.LoadingSeconds, 3)
	setDefault(&c.Delays.ProcessingSeconds, 3)
	setDefault(&c.Delays.TransformingSeconds, 5)
	setDefault(&c.Delays.InferenceSeconds, 5)
}

func setDefault(field **float64, v float64) {
	if *field == nil {
		*field = &v
	}
}
