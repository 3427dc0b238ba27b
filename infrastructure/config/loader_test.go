package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/civic-triage/infrastructure/config"
)

type testConfig struct {
	Service struct {
		Port    int           `env:"TEST_SERVICE_PORT" yaml:"port"`
		Name    string        `yaml:"name"`
		Timeout time.Duration `env:"TEST_SERVICE_TIMEOUT" yaml:"timeout"`
	} `yaml:"service"`
	Languages []string `env:"TEST_LANGUAGES" yaml:"languages"`
	Debug     bool     `env:"TEST_DEBUG" yaml:"debug"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ReadsYAMLAndAppliesEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("TEST_SERVICE_PORT", "9090")
	t.Setenv("TEST_LANGUAGES", "english, kinyarwanda")
	t.Setenv("TEST_DEBUG", "yes")

	path := writeConfig(t, "service:\n  port: 8080\n  name: triage\n  timeout: 5s\n")

	cfg, err := config.Load[testConfig](path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Service.Port)
	assert.Equal(t, "triage", cfg.Service.Name)
	assert.Equal(t, 5*time.Second, cfg.Service.Timeout)
	assert.Equal(t, []string{"english", "kinyarwanda"}, cfg.Languages)
	assert.True(t, cfg.Debug)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := config.Load[testConfig](filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfigNotFound))
}

func TestLoadWithDefaults_EnvBeatsDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("TEST_SERVICE_TIMEOUT", "2m")

	cfg, err := config.LoadWithDefaults[testConfig](filepath.Join(t.TempDir(), "nope.yml"), func(c *testConfig) {
		c.Service.Port = 8080
		c.Service.Timeout = time.Second
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, 2*time.Minute, cfg.Service.Timeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	path := writeConfig(t, "service: [unclosed\n")
	_, err := config.Load[testConfig](path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, config.ErrConfigNotFound))
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/triage/config.yml")
	assert.Equal(t, "/etc/triage/config.yml", config.GetConfigPath("config.yml"))
}

func TestValidators(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"port ok", config.ValidatePort("service.port", 8080), false},
		{"port zero", config.ValidatePort("service.port", 0), true},
		{"required ok", config.ValidateRequired("auth.jwt_secret", "s3cret"), false},
		{"required blank", config.ValidateRequired("auth.jwt_secret", "  "), true},
		{"positive", config.ValidatePositive("ticket.max_attempts", 0), true},
		{"one of ok", config.ValidateOneOf("database.driver", "sqlite3", "postgres", "sqlite3"), false},
		{"one of bad", config.ValidateOneOf("database.driver", "mysql", "postgres", "sqlite3"), true},
		{"level", config.ValidateLogLevel("verbose"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if (tc.err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", tc.err, tc.wantErr)
			}
		})
	}
}
