package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { AppFs = prev })
	return AppFs
}

// clearEnv makes sure the keys are unset and restored after the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_File(t *testing.T) {
	fs := useMemFs(t)
	clearEnv(t, "QUARRY_HOST", "QUARRY_SCHEMA", "QUARRY_PORT", "DATABASE_URL")

	require.NoError(t, afero.WriteFile(fs, "/etc/quarry.yaml", []byte(`
host: db.internal
port: 3307
user: app
schema: shop
stmt_cache: false
read_timeout: 30s
`), 0644))

	cfg, err := LoadConfig("/etc/quarry.yaml")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "shop", cfg.Schema)
	assert.Equal(t, "utf8mb4", cfg.Charset)
	assert.False(t, cfg.StmtCache)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	useMemFs(t)

	_, err := LoadConfig("/nope.yaml")
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	fs := useMemFs(t)
	clearEnv(t, "QUARRY_SCHEMA", "QUARRY_USER", "DATABASE_URL")
	t.Setenv("QUARRY_HOST", "from-env")

	require.NoError(t, afero.WriteFile(fs, "/q.yaml", []byte("host: from-file\nschema: shop\n"), 0644))

	cfg, err := LoadConfig("/q.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Host)
	assert.Equal(t, "shop", cfg.Schema)
}

func TestLoad_DotEnv(t *testing.T) {
	fs := useMemFs(t)
	clearEnv(t, "QUARRY_SCHEMA", "QUARRY_USER", "QUARRY_HOST", "DATABASE_URL")

	require.NoError(t, afero.WriteFile(fs, "/q.yaml", []byte("schema: shop\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("QUARRY_USER=dotenv\nQUARRY_HOST=env-host\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("QUARRY_HOST=local-host\n"), 0644))

	cfg, err := LoadConfig("/q.yaml")
	require.NoError(t, err)
	assert.Equal(t, "dotenv", cfg.User)
	assert.Equal(t, "local-host", cfg.Host)
}

func TestLoad_DotEnvKeepsProcessEnv(t *testing.T) {
	fs := useMemFs(t)
	clearEnv(t, "DATABASE_URL")
	t.Setenv("QUARRY_USER", "process")

	require.NoError(t, afero.WriteFile(fs, "/q.yaml", []byte("schema: shop\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("QUARRY_USER=dotenv\n"), 0644))

	cfg, err := LoadConfig("/q.yaml")
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.User)
}

func TestConfig_ClientOptions(t *testing.T) {
	cfg := &Config{Host: "h", Port: 1, User: "u", Schema: "s", Charset: "latin1", StmtCache: true}
	opts, err := cfg.ClientOptions()
	require.NoError(t, err)
	assert.Equal(t, "h", opts.Host)
	assert.Equal(t, 1, opts.Port)
	assert.Equal(t, "latin1", opts.Charset)
	assert.True(t, opts.StmtCache)

	cfg.DatabaseURL = "root:pw@tcp(url-host:3310)/app"
	opts, err = cfg.ClientOptions()
	require.NoError(t, err)
	assert.Equal(t, "url-host", opts.Host)
	assert.Equal(t, 3310, opts.Port)
	assert.Equal(t, "app", opts.Schema)
	assert.True(t, opts.StmtCache)

	cfg.DatabaseURL = "tcp(broken"
	_, err = cfg.ClientOptions()
	assert.ErrorContains(t, err, "invalid DATABASE_URL")
}

func TestSaveConfig(t *testing.T) {
	fs := useMemFs(t)
	clearEnv(t, "QUARRY_HOST", "QUARRY_SCHEMA", "QUARRY_PASSWORD", "DATABASE_URL")

	path, err := SaveConfig(&Config{
		Host: "saved", Port: 3306, Schema: "shop", Password: "secret",
		Charset: "utf8mb4", StmtCache: true, ConnectTimeout: 5 * time.Second,
	}, "/cfg/.quarry.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/cfg/.quarry.yaml", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", cfg.Host)
	assert.Equal(t, "shop", cfg.Schema)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Empty(t, cfg.Password)
}
