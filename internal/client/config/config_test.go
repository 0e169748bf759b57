package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

// isolate runs the test in an empty directory so no stray .env is read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	want := Config{
		ServerURL:         "http://127.0.0.1:8000",
		DatabasePath:      "taskkeeper.db",
		AuthCheckInterval: 5 * time.Minute,
		RequestTimeout:    10 * time.Second,
		LogLevel:          "info",
		LogFormat:         "text",
	}
	if diff := cmp.Diff(want, defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_NoSources(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	if diff := cmp.Diff(defaults(), *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_JSONFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "tk.json", `{
		"server_url": "https://tasks.example.com",
		"auth_check_interval": "30s",
		"request_timeout": 2000000000
	}`)

	cfg, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "https://tasks.example.com"
	want.AuthCheckInterval = 30 * time.Second
	want.RequestTimeout = 2 * time.Second
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "tk.yaml", "database_path: /var/lib/tk.db\nlog_level: debug\nlog_format: json\nauth_check_interval: 1m\n")

	cfg, err := LoadConfig([]string{"-config", path})
	require.NoError(t, err)

	want := defaults()
	want.DatabasePath = "/var/lib/tk.db"
	want.LogLevel = "debug"
	want.LogFormat = "json"
	want.AuthCheckInterval = time.Minute
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "tk.json", `{"server_url": "http://file", "log_level": "warn", "database_path": "file.db"}`)
	writeFile(t, dir, ".env", "TASKKEEPER_LOG_LEVEL=error\nTASKKEEPER_DATABASE_PATH=dotenv.db\n")
	t.Setenv("TASKKEEPER_SERVER_URL", "http://env")
	t.Setenv("TASKKEEPER_REQUEST_TIMEOUT", "3s")
	// Unset so the .env value can be applied; restored after the test.
	t.Setenv("TASKKEEPER_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("TASKKEEPER_LOG_LEVEL"))
	t.Setenv("TASKKEEPER_DATABASE_PATH", "")
	require.NoError(t, os.Unsetenv("TASKKEEPER_DATABASE_PATH"))

	cfg, err := LoadConfig([]string{"-c", path, "-a", "http://flag", "-i", "90"})
	require.NoError(t, err)

	assert.Equal(t, "http://flag", cfg.ServerURL, "flag beats env and file")
	assert.Equal(t, "error", cfg.LogLevel, ".env beats file")
	assert.Equal(t, "dotenv.db", cfg.DatabasePath)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 90*time.Second, cfg.AuthCheckInterval)
}

func TestLoadConfig_ProcessEnvBeatsDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".env", "TASKKEEPER_LOG_FORMAT=json\n")
	t.Setenv("TASKKEEPER_LOG_FORMAT", "text")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := isolate(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig([]string{"-c", filepath.Join(dir, "nope.json")})
		require.Error(t, err)
	})

	t.Run("broken json", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{"server_url":`)
		_, err := LoadConfig([]string{"-c", path})
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yml", "request_timeout: soon\n")
		_, err := LoadConfig([]string{"-c", path})
		require.Error(t, err)
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("TASKKEEPER_AUTH_CHECK_INTERVAL", "often")
		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("non-numeric flag", func(t *testing.T) {
		_, err := LoadConfig([]string{"-t", "ten"})
		require.Error(t, err)
	})

	t.Run("zero interval", func(t *testing.T) {
		_, err := LoadConfig([]string{"-i", "0"})
		require.Error(t, err)
	})
}

func TestParseFlags_IgnoresForeignArgs(t *testing.T) {
	cfg := defaults()
	require.NoError(t, parseFlags(&cfg, []string{"-c", "x.json", "--verbose", "-l", "debug", "positional"}))

	want := defaults()
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}
