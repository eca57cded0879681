package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names. Flags override the matching environment variables.
const (
	FlagEnvFile = "env-file"
)

var flagKeys = map[string]string{
	"ml-api-url":         KeyUpstreamURL,
	"require-ml-api-url": KeyRequireUpstream,
	"port":               KeyPort,
	"env":                KeyEnv,
	"cors-origins":       KeyCORSOrigins,
	"health-timeout":     KeyHealthTimeout,
	"predict-timeout":    KeyPredictTimeout,
	"log-level":          KeyLogLevel,
	"log-format":         KeyLogFormat,
}

// RegisterFlags adds the gateway flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagEnvFile, ".env", "Path to a .env file (ignored when missing)")
	fs.String("ml-api-url", "", "Base URL of the ML prediction API (env ML_API_URL)")
	fs.Bool("require-ml-api-url", false, "Fail at startup when the ML API URL is not set (env ML_API_URL_REQUIRED)")
	fs.Int("port", 5000, "Port to listen on (env PORT)")
	fs.String("env", "development", "Runtime environment (env NODE_ENV)")
	fs.String("cors-origins", "", "Comma separated CORS allow-list, empty or * allows all (env CORS_ALLOWED_ORIGINS)")
	fs.Duration("health-timeout", 0, "Timeout of the ML API health probe (env ML_HEALTH_TIMEOUT, default 3s)")
	fs.Duration("predict-timeout", 0, "Timeout of forwarded predictions, 0 disables (env ML_PREDICT_TIMEOUT)")
	fs.String("log-level", "info", "Log level (env LOG_LEVEL)")
	fs.String("log-format", "text", "Log format: text or json (env LOG_FORMAT)")
}

// BindFlags binds the flags registered by RegisterFlags into v. Only flags
// set explicitly on the command line take precedence over the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
