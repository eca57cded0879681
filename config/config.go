package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultUpstreamURL = "http://localhost:8000"

// Viper keys.
const (
	KeyUpstreamURL     = "ml_api_url"
	KeyRequireUpstream = "ml_api_url_required"
	KeyPort            = "port"
	KeyEnv             = "env"
	KeyCORSOrigins     = "cors_origins"
	KeyHealthTimeout   = "health_timeout"
	KeyPredictTimeout  = "predict_timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

var envNames = map[string]string{
	KeyUpstreamURL:     "ML_API_URL",
	KeyRequireUpstream: "ML_API_URL_REQUIRED",
	KeyPort:            "PORT",
	KeyEnv:             "NODE_ENV",
	KeyCORSOrigins:     "CORS_ALLOWED_ORIGINS",
	KeyHealthTimeout:   "ML_HEALTH_TIMEOUT",
	KeyPredictTimeout:  "ML_PREDICT_TIMEOUT",
	KeyLogLevel:        "LOG_LEVEL",
	KeyLogFormat:       "LOG_FORMAT",
}

// ErrMissingUpstreamURL is returned when ML_API_URL is required but unset.
var ErrMissingUpstreamURL = errors.New("ML_API_URL is required but not set")

// Error reports an invalid or missing configuration value.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds the gateway settings. It is built once at startup and
// never mutated afterwards.
type Config struct {
	UpstreamURL    string
	Port           int
	Env            string
	AllowedOrigins []string
	HealthTimeout  time.Duration
	PredictTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// AllowAllOrigins reports whether CORS is in allow-all mode.
func (c *Config) AllowAllOrigins() bool {
	return len(c.AllowedOrigins) == 0
}

// IsProduction reports whether NODE_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// New returns a viper instance with defaults set and every key bound to its
// environment variable. The upstream URL has no viper default so
// that Load can tell "unset" apart from "defaulted".
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRequireUpstream, false)
	v.SetDefault(KeyPort, 5000)
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyCORSOrigins, "")
	v.SetDefault(KeyHealthTimeout, 3*time.Second)
	v.SetDefault(KeyPredictTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	for key, env := range envNames {
		// BindEnv only fails when called without arguments.
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &Error{Key: "env_file", Err: err}
	}
	return nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:            strings.TrimSpace(v.GetString(KeyEnv)),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat:      strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		AllowedOrigins: ParseOrigins(v.GetString(KeyCORSOrigins)),
	}

	upstream := strings.TrimSpace(v.GetString(KeyUpstreamURL))
	if upstream == "" {
		if v.GetBool(KeyRequireUpstream) {
			return nil, &Error{Key: KeyUpstreamURL, Err: ErrMissingUpstreamURL}
		}
		upstream = DefaultUpstreamURL
	}
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, &Error{Key: KeyUpstreamURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Key: KeyUpstreamURL, Err: fmt.Errorf("%q is not an absolute http(s) URL", upstream)}
	}
	cfg.UpstreamURL = strings.TrimRight(upstream, "/")

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyPort)))
	if err != nil {
		return nil, &Error{Key: KeyPort, Err: err}
	}
	if port < 1 || port > 65535 {
		return nil, &Error{Key: KeyPort, Err: fmt.Errorf("%d out of range", port)}
	}
	cfg.Port = port

	if cfg.HealthTimeout, err = duration(v, KeyHealthTimeout); err != nil {
		return nil, err
	}
	if cfg.PredictTimeout, err = duration(v, KeyPredictTimeout); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &Error{Key: KeyLogFormat, Err: fmt.Errorf("unknown format %q", cfg.LogFormat)}
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &Error{Key: key, Err: err}
	}
	if d < 0 {
		return 0, &Error{Key: key, Err: errors.New("must not be negative")}
	}
	return d, nil
}

// ParseOrigins splits a comma separated allow-list. An empty list or a "*"
// entry means every origin is allowed, which is reported as a nil slice.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			return nil
		}
		origins = append(origins, o)
	}
	return origins
}
