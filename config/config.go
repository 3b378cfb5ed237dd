// Package config loads server settings. Values are layered: built-in defaults, then an optional
// YAML file, then a .env file and the process environment, then command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/compute/metadata"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environments.
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
)

// Config is the complete server configuration.
type Config struct {
	Environment     string   `yaml:"environment"`
	Addr            string   `yaml:"addr"`
	ProjectID       string   `yaml:"project_id"`
	CredentialsFile string   `yaml:"credentials_file"`
	StaticDir       string   `yaml:"static_dir"`
	PublicBaseURL   string   `yaml:"public_base_url"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	LogName         string   `yaml:"log_name"`
	// TimeZone is the IANA zone that decides which calendar day is "today" for bookings.
	TimeZone string `yaml:"time_zone"`
	EventsTopic     string   `yaml:"events_topic"`

	// RoleCacheTTL bounds how long a resolved role is reused before profiles are read again.
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl"`

	Admin  AdminConfig  `yaml:"admin"`
	PayPal PayPalConfig `yaml:"paypal"`
}

// AdminConfig holds the single admin account.
type AdminConfig struct {
	Email string `yaml:"email"`
	// PasswordHash is a bcrypt hash. Admin login is disabled while it is empty.
	PasswordHash string `yaml:"password_hash"`
}

// PayPalConfig only holds values that are safe to expose to the browser.
type PayPalConfig struct {
	ClientID    string `yaml:"client_id"`
	CheckoutURL string `yaml:"checkout_url"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Environment:   Production,
		Addr:          ":8080",
		StaticDir:     "web/dist",
		PublicBaseURL: "http://localhost:8080",
		LogName:       "booking_server",
		EventsTopic:   "marketplace-events",
		TimeZone:      "Asia/Manila",
		RoleCacheTTL:  5 * time.Minute,
		PayPal: PayPalConfig{
			CheckoutURL: "https://www.sandbox.paypal.com/checkoutnow",
		},
	}
}

// Load builds the configuration from path (may be empty), a .env file in the working directory
// and the environment. Flags are applied afterwards with Flags.Apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.Addr = getEnv("ADDR", c.Addr)
	if port, ok := os.LookupEnv("PORT"); ok {
		c.Addr = ":" + port
	}
	c.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", c.ProjectID)
	c.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.CredentialsFile)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.LogName = getEnv("LOG_NAME", c.LogName)
	c.EventsTopic = getEnv("EVENTS_TOPIC", c.EventsTopic)
	c.TimeZone = getEnv("APP_TIMEZONE", c.TimeZone)
	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(origins)
	}

	c.Admin.Email = getEnv("ADMIN_EMAIL", c.Admin.Email)
	c.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", c.Admin.PasswordHash)
	c.PayPal.ClientID = getEnv("PAYPAL_CLIENT_ID", c.PayPal.ClientID)
	c.PayPal.CheckoutURL = getEnv("PAYPAL_CHECKOUT_URL", c.PayPal.CheckoutURL)

	var err error
	if c.RoleCacheTTL, err = getDuration("ROLE_CACHE_TTL", c.RoleCacheTTL); err != nil {
		return err
	}
	return nil
}

// ResolveProjectID fills in ProjectID from the metadata server when running on Google Cloud.
func (c *Config) ResolveProjectID(ctx context.Context) error {
	if c.ProjectID != "" {
		return nil
	}
	if !metadata.OnGCE() {
		return errors.New("project id not configured and not running on Google Cloud")
	}
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return fmt.Errorf("fetching project id from metadata: %w", err)
	}
	c.ProjectID = projectID
	return nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.ProjectID == "" {
		return errors.New("project id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RoleCacheTTL <= 0 {
		return errors.New("role cache ttl must be greater than 0")
	}
	if c.Admin.PasswordHash != "" && c.Admin.Email == "" {
		return errors.New("admin email is required when an admin password is set")
	}
	for name, raw := range map[string]string{"public base url": c.PublicBaseURL, "paypal checkout url": c.PayPal.CheckoutURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q is not an absolute url", name, raw)
		}
	}
	return nil
}

// Location loads TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// IsDevelopment reports whether debugging detail may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// Flags are the command-line overrides.
type Flags struct {
	ConfigFile string
	Addr       string
	Env        string
	StaticDir  string
}

// RegisterFlags defines the overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVarP(&f.ConfigFile, "config", "c", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	fs.StringVar(&f.Addr, "addr", "", "listen address, overrides the config")
	fs.StringVar(&f.Env, "env", "", "environment: development, staging or production")
	fs.StringVar(&f.StaticDir, "static-dir", "", "directory holding the built web app")
	return f
}

// Apply copies every flag that was set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.Addr != "" {
		cfg.Addr = f.Addr
	}
	if f.Env != "" {
		cfg.Environment = f.Env
	}
	if f.StaticDir != "" {
		cfg.StaticDir = f.StaticDir
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
