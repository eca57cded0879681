package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the gateway reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envNames {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, DefaultUpstreamURL, cfg.UpstreamURL)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.AllowAllOrigins())
	assert.Equal(t, 3*time.Second, cfg.HealthTimeout)
	assert.Zero(t, cfg.PredictTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ML_API_URL", "https://ml.internal:8000/")
	t.Setenv("PORT", "8081")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example, https://admin.example/")
	t.Setenv("ML_HEALTH_TIMEOUT", "500ms")
	t.Setenv("ML_PREDICT_TIMEOUT", "30s")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "https://ml.internal:8000", cfg.UpstreamURL)
	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://app.example", "https://admin.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.HealthTimeout)
	assert.Equal(t, 30*time.Second, cfg.PredictTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_RequiredUpstreamMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("ML_API_URL_REQUIRED", "true")

	_, err := Load(New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingUpstreamURL))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeyUpstreamURL, cfgErr.Key)
}

func TestLoad_RequiredUpstreamPresent(t *testing.T) {
	clearEnv(t)
	t.Setenv("ML_API_URL_REQUIRED", "true")
	t.Setenv("ML_API_URL", "http://ml:8000")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "http://ml:8000", cfg.UpstreamURL)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]struct {
		env, value, key string
	}{
		"relative url":   {"ML_API_URL", "ml:8000/x", KeyUpstreamURL},
		"ftp url":        {"ML_API_URL", "ftp://ml:8000", KeyUpstreamURL},
		"port text":      {"PORT", "http", KeyPort},
		"port range":     {"PORT", "0", KeyPort},
		"bad timeout":    {"ML_HEALTH_TIMEOUT", "soon", KeyHealthTimeout},
		"neg timeout":    {"ML_PREDICT_TIMEOUT", "-1s", KeyPredictTimeout},
		"unknown format": {"LOG_FORMAT", "xml", KeyLogFormat},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.env, tc.value)

			_, err := Load(New())
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.key, cfgErr.Key)
		})
	}
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ML_API_URL", "http://from-env:8000")
	t.Setenv("PORT", "6000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--ml-api-url", "http://from-flag:9000", "--cors-origins", "*"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:9000", cfg.UpstreamURL)
	// Unset flags fall through to the environment.
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HealthTimeout)
	assert.True(t, cfg.AllowAllOrigins())
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, ParseOrigins(""))
	assert.Nil(t, ParseOrigins(" , "))
	assert.Nil(t, ParseOrigins("https://a.example,*"))
	assert.Equal(t, []string{"https://a.example", "http://b.example:3000"}, ParseOrigins("https://a.example/, http://b.example:3000"))
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ML_API_URL=http://dotenv:8000\nPORT=7000\n"), 0o600))

	// godotenv does not override variables that are already set, even when
	// empty, so unset them for the duration of the test.
	for _, env := range []string{"ML_API_URL", "PORT"} {
		require.NoError(t, os.Unsetenv(env))
	}
	t.Cleanup(func() {
		os.Unsetenv("ML_API_URL")
		os.Unsetenv("PORT")
	})

	require.NoError(t, LoadEnvFile(path))
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:8000", cfg.UpstreamURL)
	assert.Equal(t, 7000, cfg.Port)

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
