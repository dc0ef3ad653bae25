// Package config loads runtime settings from defaults, .env files, an
// optional config file and ADMISSION_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ADMISSION"

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Env             string
	Debug           bool
	Addr            string
	APIBaseURL      string
	UploadsBaseURL  string
	DefaultCountry  string
	MinApplicantAge int
	MaxRepeat       int
	RequestTimeout  time.Duration
	RollbarToken    string
}

// keys maps viper keys to their environment variable suffix.
var keys = map[string]string{
	"env":             "ENV",
	"debug":           "DEBUG",
	"addr":            "ADDR",
	"apiBaseURL":      "API_BASE_URL",
	"uploadsBaseURL":  "UPLOADS_BASE_URL",
	"defaultCountry":  "DEFAULT_COUNTRY",
	"minApplicantAge": "MIN_APPLICANT_AGE",
	"maxRepeat":       "MAX_REPEAT",
	"requestTimeout":  "REQUEST_TIMEOUT",
	"rollbarToken":    "ROLLBAR_TOKEN",
}

// Option adjusts where Load looks for settings.
type Option func(*loader)

type loader struct {
	dir  string
	file string
}

// WithDir sets the directory searched for .env and .env.<env> files.
func WithDir(dir string) Option {
	return func(l *loader) { l.dir = dir }
}

// WithFile reads a config file (yaml, json or toml) as well.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// Load resolves the configuration. Precedence, highest first: environment,
// config file, .env.<env>, .env, defaults.
func Load(opts ...Option) (*Config, error) {
	l := &loader{dir: "."}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", "DEV")
	v.SetDefault("debug", false)
	v.SetDefault("addr", ":8080")
	v.SetDefault("apiBaseURL", "")
	v.SetDefault("uploadsBaseURL", "")
	v.SetDefault("defaultCountry", "IN")
	v.SetDefault("minApplicantAge", 16)
	v.SetDefault("maxRepeat", 20)
	v.SetDefault("requestTimeout", 15*time.Second)
	v.SetDefault("rollbarToken", "")

	for key, suffix := range keys {
		if err := v.BindEnv(key, EnvPrefix+"_"+suffix); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	env := strings.ToUpper(strings.TrimSpace(v.GetString("env")))
	if env == "" {
		env = "DEV"
	}
	files := []string{".env", ".env." + strings.ToLower(env)}
	for _, name := range files {
		if err := applyDotEnv(v, filepath.Join(l.dir, name)); err != nil {
			return nil, err
		}
	}

	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", l.file, err)
		}
	}

	cfg := &Config{
		Env:             strings.ToUpper(v.GetString("env")),
		Debug:           v.GetBool("debug"),
		Addr:            v.GetString("addr"),
		APIBaseURL:      strings.TrimSpace(v.GetString("apiBaseURL")),
		UploadsBaseURL:  strings.TrimSpace(v.GetString("uploadsBaseURL")),
		DefaultCountry:  strings.ToUpper(strings.TrimSpace(v.GetString("defaultCountry"))),
		MinApplicantAge: v.GetInt("minApplicantAge"),
		MaxRepeat:       v.GetInt("maxRepeat"),
		RequestTimeout:  v.GetDuration("requestTimeout"),
		RollbarToken:    v.GetString("rollbarToken"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDotEnv layers a .env file just above the defaults. A missing file is
// not an error.
func applyDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	for key, suffix := range keys {
		if value, ok := values[EnvPrefix+"_"+suffix]; ok {
			v.SetDefault(key, value)
		}
	}
	return nil
}

// Validate checks value ranges and URL shapes.
func (c *Config) Validate() error {
	var problems []string
	for name, raw := range map[string]string{"apiBaseURL": c.APIBaseURL, "uploadsBaseURL": c.UploadsBaseURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("%s %q is not an http(s) URL", name, raw))
		}
	}
	if c.MinApplicantAge < 0 {
		problems = append(problems, "minApplicantAge must not be negative")
	}
	if c.MaxRepeat <= 0 {
		problems = append(problems, "maxRepeat must be positive")
	}
	if c.RequestTimeout < 0 {
		problems = append(problems, "requestTimeout must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("config: %s", strings.Join(problems, "; "))
}

// Production reports whether the environment is PROD.
func (c *Config) Production() bool { return c.Env == "PROD" }
